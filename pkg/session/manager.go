package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/util"
)

// Manager scopes session acquisition: it opens a session, runs the
// operation body, and guarantees the session is closed on every exit path.
type Manager struct {
	dialer Dialer
}

// NewManager returns a manager that opens sessions through dialer.
func NewManager(dialer Dialer) *Manager {
	return &Manager{dialer: dialer}
}

// WithSession opens a session for params, invokes fn, and closes the
// session before returning. The context passed to fn carries the
// invocation deadline covering both establishment and operation; when it
// expires the session is forcibly released and the error classifies as a
// timeout. Establishment failures never invoke fn.
func (m *Manager) WithSession(ctx context.Context, params *Params, fn func(ctx context.Context, s Session) error) error {
	ctx, cancel := context.WithTimeout(ctx, params.Timeout)
	defer cancel()

	log := util.WithDevice(params.Device)
	log.Debugf("opening session to %s:%d", params.Host, params.Port)

	s, err := m.dialer.Dial(ctx, params)
	if err != nil {
		return classify(params.Device, err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			log.Warnf("closing session: %v", cerr)
		}
	}()

	if err := fn(ctx, s); err != nil {
		return classify(params.Device, err)
	}
	return nil
}

// classify maps establishment and transport failures into the error
// taxonomy. Errors already carrying a taxonomy sentinel pass through.
func classify(device string, err error) error {
	switch {
	case errors.Is(err, util.ErrConfig),
		errors.Is(err, util.ErrNotFound),
		errors.Is(err, util.ErrConnect),
		errors.Is(err, util.ErrTimeout),
		errors.Is(err, util.ErrTemplate),
		errors.Is(err, util.ErrCommit),
		errors.Is(err, util.ErrConflict):
		return err
	case isDeadline(err):
		return fmt.Errorf("%w: device %q did not respond within the configured timeout", util.ErrTimeout, device)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: invocation for device %q was cancelled", util.ErrTimeout, device)
	default:
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			// The device answered; this is not a reachability problem.
			return err
		}
		return fmt.Errorf("%w: device %q: %v", util.ErrConnect, device, err)
	}
}

// isDeadline matches deadline expiry in every form the stack produces:
// context errors from the invocation deadline, and i/o timeouts from the
// net layer when a conn deadline fires mid-establishment.
func isDeadline(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
