// Package session establishes and scopes managed sessions to Junos
// devices. A session is opened for exactly one operation and closed on
// every exit path; nothing here pools or reuses connections.
package session

import (
	"context"

	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/util"
)

// Format declares how candidate configuration text is interpreted.
type Format string

const (
	FormatSet  Format = "set"
	FormatText Format = "text"
	FormatXML  Format = "xml"
)

// ParseFormat validates a caller-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatSet, FormatText, FormatXML:
		return Format(s), nil
	case "":
		return FormatSet, nil
	default:
		return "", util.ConfigError("unsupported config format %q, use 'set', 'text', or 'xml'", s)
	}
}

// Facts is the device identity reported by the management session.
type Facts struct {
	Hostname     string `json:"hostname"`
	Model        string `json:"model"`
	Version      string `json:"version"`
	SerialNumber string `json:"serial_number"`
	Description  string `json:"description,omitempty"`
}

// Session is an open management channel to one device for the duration of
// one operation. Implementations must make Close idempotent.
type Session interface {
	// RunCommand executes one CLI command and returns its textual output.
	RunCommand(ctx context.Context, command string) (string, error)

	// Facts collects device identity and version information.
	Facts(ctx context.Context) (*Facts, error)

	// Lock takes the exclusive configuration lock.
	Lock(ctx context.Context) error

	// Unlock releases the configuration lock.
	Unlock(ctx context.Context) error

	// LoadConfig stages text as a configuration candidate.
	LoadConfig(ctx context.Context, text string, format Format) error

	// DiffCandidate returns the diff between the candidate and the
	// running configuration, or "" when the candidate changes nothing.
	DiffCandidate(ctx context.Context) (string, error)

	// Commit activates the candidate configuration.
	Commit(ctx context.Context, comment string) error

	// Discard drops the candidate, restoring the running configuration.
	Discard(ctx context.Context) error

	Close() error
}

// Dialer opens sessions. The production dialer speaks NETCONF over SSH;
// tests substitute doubles.
type Dialer interface {
	Dial(ctx context.Context, params *Params) (Session, error)
}
