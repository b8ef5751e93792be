package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit log",
	Long: `Query the audit log of configuration changes.

Every state-changing operation (commits, template applies, device
additions) is recorded with timestamp, device, operation, commit
comment, applied diff, and success or failure.

Examples:
  jmcpd audit list --audit-log audit.jsonl --device r1
  jmcpd audit list --audit-log audit.jsonl --last 24h --failures`,
}

var (
	auditLogPath   string
	auditDevice    string
	auditOperation string
	auditLast      string
	auditLimit     int
	auditFailures  bool
	auditJSON      bool
)

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit events",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := auditLogPath
		if path == "" {
			path = os.Getenv("JMCP_AUDIT_LOG")
		}
		if path == "" {
			return fmt.Errorf("no audit log configured, pass --audit-log or set JMCP_AUDIT_LOG")
		}

		filter := audit.Filter{
			Device:      auditDevice,
			Operation:   auditOperation,
			Limit:       auditLimit,
			FailureOnly: auditFailures,
		}

		if auditLast != "" {
			duration, err := time.ParseDuration(auditLast)
			if err != nil {
				return fmt.Errorf("invalid duration: %s", auditLast)
			}
			filter.StartTime = time.Now().Add(-duration)
		}

		logger, err := audit.NewFileLogger(path, audit.RotationConfig{})
		if err != nil {
			return err
		}
		defer logger.Close()

		events, err := logger.Query(filter)
		if err != nil {
			return fmt.Errorf("querying audit log: %w", err)
		}

		if auditJSON {
			return json.NewEncoder(os.Stdout).Encode(events)
		}

		if len(events) == 0 {
			fmt.Println("No audit events found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIMESTAMP\tDEVICE\tOPERATION\tSTATUS\tCOMMENT")
		fmt.Fprintln(w, "---------\t------\t---------\t------\t-------")

		for _, event := range events {
			status := "ok"
			if !event.Success {
				status = "failed"
			}

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				event.Timestamp.Format("2006-01-02 15:04:05"),
				event.Device,
				event.Operation,
				status,
				event.Comment,
			)
		}
		return w.Flush()
	},
}

func init() {
	auditListCmd.Flags().StringVar(&auditLogPath, "audit-log", "", "Audit log file to query (defaults to JMCP_AUDIT_LOG)")
	auditListCmd.Flags().StringVar(&auditDevice, "device", "", "Filter by device")
	auditListCmd.Flags().StringVar(&auditOperation, "operation", "", "Filter by operation")
	auditListCmd.Flags().StringVar(&auditLast, "last", "", "Show events from the last duration (e.g. 24h)")
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 100, "Maximum events to show")
	auditListCmd.Flags().BoolVar(&auditFailures, "failures", false, "Show only failed operations")
	auditListCmd.Flags().BoolVar(&auditJSON, "json", false, "Output events as JSON")

	auditCmd.AddCommand(auditListCmd)
}
