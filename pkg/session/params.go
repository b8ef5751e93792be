package session

import (
	"os"
	"time"

	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/inventory"
	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/util"
)

// Params is the fully resolved set of session-establishment parameters for
// one invocation. It is derived from a DeviceDescriptor, used once, and
// discarded; it is never logged.
type Params struct {
	Device   string
	Host     string
	Port     int
	Username string

	// Exactly one credential is set, per the descriptor's auth tag.
	Password   string
	KeyPath    string
	Passphrase string

	// SSHConfigPath, when set, points at an SSH client configuration
	// the dialer consults for host aliases and ProxyJump directives.
	SSHConfigPath string

	// Timeout bounds establish plus operate for the invocation.
	Timeout time.Duration
}

// Resolve turns a validated descriptor into connection parameters,
// branching on the declared auth type. It fails fast with a ConfigError
// before any network attempt: empty secrets, unreadable key files, and
// missing ssh_config files are all caught here.
func Resolve(name string, d *inventory.DeviceDescriptor) (*Params, error) {
	if err := d.Validate(name); err != nil {
		return nil, err
	}

	p := &Params{
		Device:   name,
		Host:     d.IP,
		Port:     d.Port,
		Username: d.Username,
		Timeout:  time.Duration(d.Timeout()) * time.Second,
	}

	switch {
	case d.Auth == nil:
		// Deprecated flat password form; Validate guarantees it is set.
		p.Password = d.Password
	case d.Auth.Type == inventory.AuthPassword:
		p.Password = d.Auth.Password
	case d.Auth.Type == inventory.AuthSSHKey:
		if err := checkReadable(d.Auth.PrivateKeyPath); err != nil {
			return nil, util.ConfigError("device %q private key %q: %v", name, d.Auth.PrivateKeyPath, err)
		}
		p.KeyPath = d.Auth.PrivateKeyPath
		p.Passphrase = d.Auth.Passphrase
	}

	if d.SSHConfig != "" {
		if _, err := os.Stat(d.SSHConfig); err != nil {
			return nil, util.ConfigError("device %q ssh_config %q: %v", name, d.SSHConfig, err)
		}
		p.SSHConfigPath = d.SSHConfig
	}

	return p, nil
}

func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}
