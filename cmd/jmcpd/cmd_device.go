package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/inventory"
)

var (
	addIP         string
	addPort       int
	addUsername   string
	addKeyPath    string
	addPassphrase string
	addSSHConfig  string
	addTimeout    int
	addOverwrite  bool
)

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Edit the device mapping file",
}

var deviceAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a device to the mapping file",
	Long: `Add a device entry to the mapping file given with -f.

With --ssh-key the device authenticates with the key file; otherwise a
password is prompted for (never echoed, never read from argv).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		registry, err := loadOrCreate(flagMapping)
		if err != nil {
			return err
		}

		d := &inventory.DeviceDescriptor{
			IP:             addIP,
			Port:           addPort,
			Username:       addUsername,
			TimeoutSeconds: addTimeout,
			SSHConfig:      addSSHConfig,
		}
		if addKeyPath != "" {
			d.Auth = &inventory.Auth{
				Type:           inventory.AuthSSHKey,
				PrivateKeyPath: addKeyPath,
				Passphrase:     addPassphrase,
			}
		} else {
			password, err := promptPassword(fmt.Sprintf("Password for %s@%s: ", addUsername, addIP))
			if err != nil {
				return err
			}
			d.Auth = &inventory.Auth{Type: inventory.AuthPassword, Password: password}
		}

		if err := registry.Register(name, d, addOverwrite); err != nil {
			return err
		}
		if err := registry.SaveTo(flagMapping); err != nil {
			return err
		}
		fmt.Printf("Device %q added to %s\n", name, flagMapping)
		return nil
	},
}

func loadOrCreate(path string) (*inventory.Registry, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return inventory.NewRegistry(), nil
	}
	return inventory.LoadFile(path)
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(password), nil
}

func init() {
	deviceAddCmd.Flags().StringVarP(&flagMapping, "device-mapping", "f", "devices.json", "Device mapping file to edit")
	deviceAddCmd.Flags().StringVar(&addIP, "ip", "", "Device IP address or hostname")
	deviceAddCmd.Flags().IntVar(&addPort, "port", 22, "SSH port")
	deviceAddCmd.Flags().StringVar(&addUsername, "username", "", "Username for authentication")
	deviceAddCmd.Flags().StringVar(&addKeyPath, "ssh-key", "", "Path to SSH private key file")
	deviceAddCmd.Flags().StringVar(&addPassphrase, "passphrase", "", "Passphrase for the private key")
	deviceAddCmd.Flags().StringVar(&addSSHConfig, "ssh-config", "", "ssh_config file for jump-host resolution")
	deviceAddCmd.Flags().IntVar(&addTimeout, "timeout", 0, "Per-operation timeout in seconds")
	deviceAddCmd.Flags().BoolVar(&addOverwrite, "overwrite", false, "Replace an existing entry")

	deviceCmd.AddCommand(deviceAddCmd)
}
