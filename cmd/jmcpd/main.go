// jmcpd - Junos MCP gateway
//
// An MCP server exposing Junos device operations as tools:
//   - Command execution, configuration retrieval, rollback diffs
//   - Template rendering with two-phase (lock/load/diff/commit) apply
//   - Device fact gathering and runtime inventory additions
//   - stdio and streamable-HTTP transports with bearer-token auth
//
// Examples:
//
//	jmcpd -f devices.json                          # streamable-http on 127.0.0.1:30030
//	jmcpd -f devices.json -H 0.0.0.0 -p 8080       # custom bind address
//	jmcpd -f devices.json -t stdio                 # stdio transport
//	jmcpd token generate --id ci                   # mint an API token
//	jmcpd device add r1 -f devices.json            # add a device to the mapping
//	jmcpd audit list --audit-log audit.jsonl       # query the commit history
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/server"
	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/util"
	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/version"
)

var (
	flagMapping   string // -f, --device-mapping
	flagHost      string // -H, --host
	flagTransport string // -t, --transport
	flagPort      int    // -p, --port
	flagLogLevel  string // --log-level
	flagAuditLog  string // --audit-log
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "jmcpd",
	Short:         "Junos MCP gateway",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `jmcpd serves Junos device operations over the Model Context Protocol.

Devices come from a JSON or YAML mapping file. Flags can be overridden
with JMCP_* environment variables; an explicit flag always wins.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := serverConfig(cmd)
		if err != nil {
			return err
		}
		if err := util.SetLogLevel(cfg.LogLevel); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.Serve(ctx, cfg)
	},
}

// serverConfig merges defaults, JMCP_* environment variables, and flags,
// in ascending precedence.
func serverConfig(cmd *cobra.Command) (*server.Config, error) {
	cfg, err := server.FromEnv()
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("device-mapping") {
		cfg.Mapping = flagMapping
	}
	if cmd.Flags().Changed("host") {
		cfg.Host = flagHost
	}
	if cmd.Flags().Changed("transport") {
		cfg.Transport = flagTransport
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = flagPort
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	if cmd.Flags().Changed("audit-log") {
		cfg.AuditLog = flagAuditLog
	}

	cfg.BindExplicit = cmd.Flags().Changed("host") || cmd.Flags().Changed("port") ||
		os.Getenv("JMCP_HOST") != "" || os.Getenv("JMCP_PORT") != ""
	return cfg, nil
}

func init() {
	rootCmd.Flags().StringVarP(&flagMapping, "device-mapping", "f", "devices.json", "JSON or YAML file containing the device mapping")
	rootCmd.Flags().StringVarP(&flagHost, "host", "H", "127.0.0.1", "Server bind host (streamable-http only)")
	rootCmd.Flags().StringVarP(&flagTransport, "transport", "t", "streamable-http", "Transport: stdio or streamable-http")
	rootCmd.Flags().IntVarP(&flagPort, "port", "p", 30030, "Server bind port (streamable-http only)")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&flagAuditLog, "audit-log", "", "Audit log file for configuration changes (disabled when empty)")

	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(deviceCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if version.Version == "dev" {
			fmt.Println("jmcpd dev build (use 'make build' for version info)")
		} else {
			fmt.Printf("jmcpd %s (%s)\n", version.Version, version.GitCommit)
		}
	},
}
