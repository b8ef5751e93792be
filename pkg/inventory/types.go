// Package inventory holds the device registry: the mapping from device
// names to connection descriptors loaded from the inventory file.
package inventory

import (
	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/util"
)

// Supported authentication types for the auth tagged union.
const (
	AuthPassword = "password"
	AuthSSHKey   = "ssh_key"
)

// DefaultTimeoutSeconds is the per-invocation timeout applied when a
// descriptor does not override it. Junos CLIs can be slow on large
// configurations, so the default is deliberately generous.
const DefaultTimeoutSeconds = 360

// Auth is the authentication section of a device descriptor. Type selects
// which credential field is mandatory: password auth carries Password,
// ssh_key auth carries PrivateKeyPath (and optionally Passphrase).
type Auth struct {
	Type           string `json:"type" yaml:"type"`
	Password       string `json:"password,omitempty" yaml:"password,omitempty"`
	PrivateKeyPath string `json:"private_key_path,omitempty" yaml:"private_key_path,omitempty"`
	Passphrase     string `json:"passphrase,omitempty" yaml:"passphrase,omitempty"`
}

// DeviceDescriptor is one entry of the device inventory.
type DeviceDescriptor struct {
	IP       string `json:"ip" yaml:"ip"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Auth     *Auth  `json:"auth,omitempty" yaml:"auth,omitempty"`

	// Password is the deprecated flat-form secret from old inventory
	// files, honored when no auth section is present.
	Password string `json:"password,omitempty" yaml:"password,omitempty"`

	// SSHConfig points at an SSH client configuration file whose host
	// aliases and ProxyJump directives the session layer honors.
	SSHConfig string `json:"ssh_config,omitempty" yaml:"ssh_config,omitempty"`

	// TimeoutSeconds bounds establish+operate for one invocation.
	// Zero means DefaultTimeoutSeconds.
	TimeoutSeconds int `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
}

// Validate checks the descriptor for the named device. Every failure is a
// ConfigError naming the device and the offending field so a malformed
// inventory entry is rejected with an actionable message at load time.
func (d *DeviceDescriptor) Validate(name string) error {
	if d.IP == "" {
		return util.ConfigError("device %q missing required field 'ip'", name)
	}
	if d.Username == "" {
		return util.ConfigError("device %q missing required field 'username'", name)
	}
	if d.Port < 1 || d.Port > 65535 {
		return util.ConfigError("device %q has invalid 'port' value %d, expected 1-65535", name, d.Port)
	}

	if d.Auth == nil {
		if d.Password == "" {
			return util.ConfigError("device %q missing authentication configuration: provide an 'auth' section or a 'password' field (deprecated)", name)
		}
		return nil
	}

	switch d.Auth.Type {
	case AuthPassword:
		if d.Auth.Password == "" {
			return util.ConfigError("device %q auth type is 'password' but 'password' field is missing", name)
		}
		if d.Auth.PrivateKeyPath != "" {
			return util.ConfigError("device %q auth type is 'password' but 'private_key_path' is also set", name)
		}
	case AuthSSHKey:
		if d.Auth.PrivateKeyPath == "" {
			return util.ConfigError("device %q auth type is 'ssh_key' but 'private_key_path' field is missing", name)
		}
		if d.Auth.Password != "" {
			return util.ConfigError("device %q auth type is 'ssh_key' but 'password' is also set", name)
		}
	case "":
		return util.ConfigError("device %q has 'auth' section but missing 'type' field, expected 'password' or 'ssh_key'", name)
	default:
		return util.ConfigError("device %q has unsupported auth type %q, supported types are 'password' and 'ssh_key'", name, d.Auth.Type)
	}
	return nil
}

// Timeout returns the effective per-invocation timeout in seconds.
func (d *DeviceDescriptor) Timeout() int {
	if d.TimeoutSeconds > 0 {
		return d.TimeoutSeconds
	}
	return DefaultTimeoutSeconds
}
