package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/session"
	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/util"
)

// getConfigCommand requests the full configuration with inherited groups
// expanded and comments stripped, so two retrievals of an unchanged
// device are byte-identical and diffable regardless of group structure.
const getConfigCommand = "show configuration | display inheritance no-comments | no-more"

// defaultCommitComment matches the comment used when the caller supplies
// none.
const defaultCommitComment = "Configuration loaded via MCP"

func execCommand(g *Gateway, ctx context.Context, s session.Session, req *Request) (string, error) {
	if req.Command == "" {
		return "", util.ConfigError("'command' is required")
	}
	return s.RunCommand(ctx, req.Command)
}

func execGetConfig(g *Gateway, ctx context.Context, s session.Session, req *Request) (string, error) {
	return s.RunCommand(ctx, getConfigCommand)
}

func execConfigDiff(g *Gateway, ctx context.Context, s session.Session, req *Request) (string, error) {
	rev := req.Revision
	if rev == 0 {
		rev = 1
	}
	if rev < 1 || rev > 49 {
		return "", util.ConfigError("rollback revision %d out of range 1-49", rev)
	}

	out, err := s.RunCommand(ctx, fmt.Sprintf("show configuration | compare rollback %d", rev))
	if err != nil {
		if isMissingRollback(err.Error(), rev) {
			return "", util.NotFoundError("rollback revision %d does not exist on the device", rev)
		}
		return "", err
	}
	if isMissingRollback(out, rev) {
		return "", util.NotFoundError("rollback revision %d does not exist on the device", rev)
	}
	return out, nil
}

func isMissingRollback(text string, rev int) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "could not find rollback") ||
		strings.Contains(lower, fmt.Sprintf("rollback %d does not exist", rev))
}

func execRenderTemplate(g *Gateway, ctx context.Context, s session.Session, req *Request) (string, error) {
	if req.Template == "" {
		return "", util.ConfigError("'template_content' is required")
	}

	vars := map[string]interface{}{}
	if req.VarsYAML != "" {
		if err := yaml.Unmarshal([]byte(req.VarsYAML), &vars); err != nil {
			return "", fmt.Errorf("%w: parsing variables: %v", util.ErrTemplate, err)
		}
	}

	rendered, err := Render(req.Template, vars)
	if err != nil {
		return "", err
	}

	out, diff, err := loadAndCommit(ctx, s, rendered, req.Format, req.Comment)
	if err != nil {
		return "", err
	}
	req.commitDiff = diff
	return fmt.Sprintf("Rendered configuration:\n%s\n\n%s", rendered, out), nil
}

func execLoadAndCommit(g *Gateway, ctx context.Context, s session.Session, req *Request) (string, error) {
	if req.Config == "" {
		return "", util.ConfigError("'config_text' is required")
	}
	out, diff, err := loadAndCommit(ctx, s, req.Config, req.Format, req.Comment)
	if err != nil {
		return "", err
	}
	req.commitDiff = diff
	return out, nil
}

// loadAndCommit is the two-phase candidate flow shared by the template
// and plain-text commit operations: lock, load, diff, then either commit
// or discard. On any failure after the load the candidate is discarded so
// nothing is partially applied. The committed diff is returned separately
// so it can land in the audit trail.
func loadAndCommit(ctx context.Context, s session.Session, text, format, comment string) (string, string, error) {
	f, err := session.ParseFormat(format)
	if err != nil {
		return "", "", err
	}
	if comment == "" {
		comment = defaultCommitComment
	}

	if err := s.Lock(ctx); err != nil {
		return "", "", fmt.Errorf("%w: failed to lock configuration: %v", util.ErrCommit, err)
	}

	if err := s.LoadConfig(ctx, text, f); err != nil {
		discard(ctx, s)
		return "", "", fmt.Errorf("%w: device rejected the candidate: %v", util.ErrCommit, err)
	}

	diff, err := s.DiffCandidate(ctx)
	if err != nil {
		discard(ctx, s)
		return "", "", fmt.Errorf("%w: comparing candidate: %v", util.ErrCommit, err)
	}
	if diff == "" {
		unlock(ctx, s)
		return "No configuration changes detected", "", nil
	}

	if err := s.Commit(ctx, comment); err != nil {
		discard(ctx, s)
		return "", "", fmt.Errorf("%w: %v", util.ErrCommit, err)
	}

	unlock(ctx, s)
	return fmt.Sprintf("Configuration successfully loaded and committed.\n\nChanges:\n%s", diff), diff, nil
}

// discard drops the candidate and releases the lock on the failure path.
// Both are best effort: the session is torn down right after, and the
// original error is the one worth reporting.
func discard(ctx context.Context, s session.Session) {
	if err := s.Discard(ctx); err != nil {
		util.Warnf("discarding candidate: %v", err)
	}
	unlock(ctx, s)
}

func unlock(ctx context.Context, s session.Session) {
	if err := s.Unlock(ctx); err != nil {
		util.Warnf("unlocking configuration: %v", err)
	}
}

func execGatherFacts(g *Gateway, ctx context.Context, s session.Session, req *Request) (string, error) {
	facts, err := s.Facts(ctx)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(facts, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// execListDevices never opens a session: it reads the registry only.
func execListDevices(g *Gateway, ctx context.Context, _ session.Session, _ *Request) (string, error) {
	return strings.Join(g.registry.Names(), ", "), nil
}

// execAddDevice is the single registry mutation path. With TestConnection
// set it first proves the descriptor can open (and close) a session.
func execAddDevice(g *Gateway, ctx context.Context, _ session.Session, req *Request) (string, error) {
	if req.Device == "" {
		return "", util.ConfigError("'device_name' is required")
	}
	if req.NewDevice == nil {
		return "", util.ConfigError("device descriptor is required")
	}
	if err := req.NewDevice.Validate(req.Device); err != nil {
		return "", err
	}

	if req.TestConnection {
		params, err := session.Resolve(req.Device, req.NewDevice)
		if err != nil {
			return "", err
		}
		err = g.sessions.WithSession(ctx, params, func(ctx context.Context, s session.Session) error {
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("connection test failed, device not added: %w", err)
		}
	}

	if err := g.registry.Register(req.Device, req.NewDevice, req.Overwrite); err != nil {
		return "", err
	}

	util.WithDevice(req.Device).Infof("device registered")
	return fmt.Sprintf("Device %q added successfully and is now available to all tools.", req.Device), nil
}
