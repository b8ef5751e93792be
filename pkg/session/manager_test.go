package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/util"
)

// fakeSession records lifecycle calls so tests can assert exactly one
// close per open.
type fakeSession struct {
	closed int
}

func (f *fakeSession) RunCommand(ctx context.Context, command string) (string, error) {
	return command, nil
}
func (f *fakeSession) Facts(ctx context.Context) (*Facts, error) { return &Facts{}, nil }
func (f *fakeSession) Lock(ctx context.Context) error            { return nil }
func (f *fakeSession) Unlock(ctx context.Context) error          { return nil }
func (f *fakeSession) LoadConfig(ctx context.Context, text string, format Format) error {
	return nil
}
func (f *fakeSession) DiffCandidate(ctx context.Context) (string, error) { return "", nil }
func (f *fakeSession) Commit(ctx context.Context, comment string) error  { return nil }
func (f *fakeSession) Discard(ctx context.Context) error                 { return nil }
func (f *fakeSession) Close() error {
	f.closed++
	return nil
}

type fakeDialer struct {
	session *fakeSession
	dialErr error
	dials   int
}

func (d *fakeDialer) Dial(ctx context.Context, p *Params) (Session, error) {
	d.dials++
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	return d.session, nil
}

func testParams() *Params {
	return &Params{Device: "r1", Host: "192.0.2.1", Port: 830, Username: "admin", Password: "x", Timeout: 5 * time.Second}
}

func TestWithSessionClosesOnSuccess(t *testing.T) {
	fs := &fakeSession{}
	m := NewManager(&fakeDialer{session: fs})

	err := m.WithSession(context.Background(), testParams(), func(ctx context.Context, s Session) error {
		return nil
	})
	if err != nil {
		t.Fatalf("WithSession() error: %v", err)
	}
	if fs.closed != 1 {
		t.Errorf("Close called %d times, want exactly 1", fs.closed)
	}
}

func TestWithSessionClosesOnOperationError(t *testing.T) {
	fs := &fakeSession{}
	m := NewManager(&fakeDialer{session: fs})

	opErr := errors.New("boom")
	err := m.WithSession(context.Background(), testParams(), func(ctx context.Context, s Session) error {
		return opErr
	})
	if err == nil {
		t.Fatal("WithSession() expected error")
	}
	if fs.closed != 1 {
		t.Errorf("Close called %d times, want exactly 1", fs.closed)
	}
}

func TestWithSessionDialFailure(t *testing.T) {
	d := &fakeDialer{dialErr: errors.New("connection refused")}
	m := NewManager(d)

	called := false
	err := m.WithSession(context.Background(), testParams(), func(ctx context.Context, s Session) error {
		called = true
		return nil
	})
	if called {
		t.Error("operation body must not run when establishment fails")
	}
	if !errors.Is(err, util.ErrConnect) {
		t.Errorf("dial failure should classify as ConnectError: %v", err)
	}
}

func TestWithSessionDialConfigErrorPassesThrough(t *testing.T) {
	d := &fakeDialer{dialErr: util.ConfigError("bad key")}
	m := NewManager(d)

	err := m.WithSession(context.Background(), testParams(), func(ctx context.Context, s Session) error {
		return nil
	})
	if !errors.Is(err, util.ErrConfig) {
		t.Errorf("config errors must keep their classification: %v", err)
	}
	if errors.Is(err, util.ErrConnect) {
		t.Errorf("config errors must not be reclassified as connect errors: %v", err)
	}
}

func TestWithSessionTimeout(t *testing.T) {
	fs := &fakeSession{}
	m := NewManager(&fakeDialer{session: fs})

	p := testParams()
	p.Timeout = 10 * time.Millisecond

	err := m.WithSession(context.Background(), p, func(ctx context.Context, s Session) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})
	if !errors.Is(err, util.ErrTimeout) {
		t.Errorf("deadline expiry should classify as TimeoutError: %v", err)
	}
	if fs.closed != 1 {
		t.Errorf("Close called %d times, want exactly 1 after timeout", fs.closed)
	}
}

func TestWithSessionEstablishDeadlineIsTimeout(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"context deadline", context.DeadlineExceeded},
		{"io deadline", &net.OpError{Op: "dial", Net: "tcp", Err: os.ErrDeadlineExceeded}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(&fakeDialer{dialErr: tt.err})

			err := m.WithSession(context.Background(), testParams(), func(ctx context.Context, s Session) error {
				return nil
			})
			if !errors.Is(err, util.ErrTimeout) {
				t.Errorf("establishment deadline should classify as TimeoutError: %v", err)
			}
			if errors.Is(err, util.ErrConnect) {
				t.Errorf("deadline expiry must not report as a connect failure: %v", err)
			}
		})
	}
}

func TestWithSessionRPCErrorNotReclassified(t *testing.T) {
	fs := &fakeSession{}
	m := NewManager(&fakeDialer{session: fs})

	rpcErr := fmt.Errorf("%w: %s", util.ErrCommit, (&RPCError{Severity: "error", Message: "syntax error"}).Error())
	err := m.WithSession(context.Background(), testParams(), func(ctx context.Context, s Session) error {
		return rpcErr
	})
	if !errors.Is(err, util.ErrCommit) {
		t.Errorf("classified operation errors must pass through: %v", err)
	}
}
