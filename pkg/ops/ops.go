// Package ops implements the operation executors and the dispatcher that
// ties the registry, the resolver, and the session lifecycle together.
// Each invocation resolves a device, opens exactly one scoped session,
// runs one executor, and returns a normalized result.
package ops

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/audit"
	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/inventory"
	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/session"
	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/util"
)

// Operation names, as exposed at the tool-invocation boundary.
const (
	OpExecuteCommand = "execute_junos_command"
	OpGetConfig      = "get_junos_config"
	OpConfigDiff     = "junos_config_diff"
	OpRenderTemplate = "render_and_apply_template"
	OpLoadAndCommit  = "load_and_commit_config"
	OpGatherFacts    = "gather_device_facts"
	OpListDevices    = "get_device_list"
	OpAddDevice      = "add_device"
)

// Request is the named-argument bundle for one invocation. Only the
// fields the dispatched operation reads are consulted.
type Request struct {
	Device string

	// execute_junos_command
	Command string

	// junos_config_diff
	Revision int

	// render_and_apply_template
	Template string
	VarsYAML string

	// load_and_commit_config (also the render target)
	Config  string
	Format  string
	Comment string

	// TimeoutSeconds overrides the per-invocation timeout when > 0.
	TimeoutSeconds int

	// add_device
	NewDevice      *inventory.DeviceDescriptor
	Overwrite      bool
	TestConnection bool

	// commitDiff captures the diff a successful commit applied so the
	// dispatcher can attach it to the audit event.
	commitDiff string
}

// Gateway dispatches named operations against the device fleet.
type Gateway struct {
	registry *inventory.Registry
	sessions *session.Manager
}

// NewGateway wires a registry and a dialer into a dispatcher.
func NewGateway(registry *inventory.Registry, dialer session.Dialer) *Gateway {
	return &Gateway{
		registry: registry,
		sessions: session.NewManager(dialer),
	}
}

// Registry exposes the device registry for the protocol layer.
func (g *Gateway) Registry() *inventory.Registry {
	return g.registry
}

type executor struct {
	needsSession bool
	run          func(g *Gateway, ctx context.Context, s session.Session, req *Request) (string, error)
}

var executors = map[string]executor{
	OpExecuteCommand: {needsSession: true, run: execCommand},
	OpGetConfig:      {needsSession: true, run: execGetConfig},
	OpConfigDiff:     {needsSession: true, run: execConfigDiff},
	OpRenderTemplate: {needsSession: true, run: execRenderTemplate},
	OpLoadAndCommit:  {needsSession: true, run: execLoadAndCommit},
	OpGatherFacts:    {needsSession: true, run: execGatherFacts},
	OpListDevices:    {run: execListDevices},
	OpAddDevice:      {run: execAddDevice},
}

// auditedOps are the operations that change device or registry state and
// therefore leave an audit trail.
var auditedOps = map[string]bool{
	OpLoadAndCommit:  true,
	OpRenderTemplate: true,
	OpAddDevice:      true,
}

// Dispatch runs the named operation and shapes the outcome. Errors never
// escape: every failure comes back as a classified Failure so one bad
// invocation cannot affect unrelated ones. State-changing operations are
// recorded in the audit log whether they succeed or not.
func (g *Gateway) Dispatch(ctx context.Context, op string, req *Request) *Result {
	start := time.Now()
	res := g.dispatch(ctx, op, req)
	if auditedOps[op] {
		event := audit.NewEvent(req.Device, op).
			WithComment(req.Comment).
			WithDiff(req.commitDiff).
			WithDuration(time.Since(start))
		if res.OK() {
			event.WithSuccess()
		} else {
			event.WithError(errors.New(res.Failure.Message))
		}
		if err := audit.Log(event); err != nil {
			util.Warnf("writing audit event: %v", err)
		}
	}
	return res
}

func (g *Gateway) dispatch(ctx context.Context, op string, req *Request) *Result {
	ex, ok := executors[op]
	if !ok {
		return failure(req.Device, op, util.NotFoundError("unknown operation %q", op))
	}

	log := util.WithFields(map[string]interface{}{"operation": op, "device": req.Device})
	start := time.Now()

	if !ex.needsSession {
		out, err := ex.run(g, ctx, nil, req)
		if err != nil {
			return failure(req.Device, op, err)
		}
		return success(out)
	}

	desc, err := g.registry.Lookup(req.Device)
	if err != nil {
		return failure(req.Device, op, err)
	}

	params, err := session.Resolve(req.Device, desc)
	if err != nil {
		return failure(req.Device, op, err)
	}
	params.Timeout = effectiveTimeout(req.TimeoutSeconds, params.Timeout)

	var out string
	err = g.sessions.WithSession(ctx, params, func(ctx context.Context, s session.Session) error {
		var runErr error
		out, runErr = ex.run(g, ctx, s, req)
		return runErr
	})
	if err != nil {
		return failureScrubbed(req.Device, op, err, descriptorSecrets(desc))
	}

	log.Debugf("completed in %s", time.Since(start).Round(time.Millisecond))
	return success(out)
}

// effectiveTimeout applies the fallback chain: request argument, then the
// JUNOS_TIMEOUT environment variable, then the descriptor value.
func effectiveTimeout(requested int, fromDescriptor time.Duration) time.Duration {
	if requested > 0 {
		return time.Duration(requested) * time.Second
	}
	if env := os.Getenv("JUNOS_TIMEOUT"); env != "" {
		if secs, err := strconv.Atoi(env); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
		util.Warnf("Invalid JUNOS_TIMEOUT value %q, using configured timeout", env)
	}
	return fromDescriptor
}

// descriptorSecrets lists credential material that must never appear in a
// reported failure message.
func descriptorSecrets(d *inventory.DeviceDescriptor) []string {
	var secrets []string
	if d.Password != "" {
		secrets = append(secrets, d.Password)
	}
	if d.Auth != nil {
		if d.Auth.Password != "" {
			secrets = append(secrets, d.Auth.Password)
		}
		if d.Auth.Passphrase != "" {
			secrets = append(secrets, d.Auth.Passphrase)
		}
	}
	return secrets
}
