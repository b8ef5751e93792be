package session

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/util"
)

// A peer that accepts the TCP connection but never sends an SSH banner
// must not hold the handshake past the invocation deadline.
func TestDialDirectSilentPeer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()
	defer func() {
		select {
		case c := <-accepted:
			c.Close()
		default:
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	cfg := &ssh.ClientConfig{
		User:            "admin",
		Auth:            []ssh.AuthMethod{ssh.Password("pw")},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	start := time.Now()
	_, err = dialDirect(ctx, ln.Addr().String(), cfg)
	if err == nil {
		t.Fatal("dialDirect() succeeded against a peer that never spoke SSH")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("handshake blocked for %v past the deadline", elapsed)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("dialDirect() error = %v, want context.DeadlineExceeded", err)
	}
	if !errors.Is(classify("r1", err), util.ErrTimeout) {
		t.Errorf("silent-peer handshake should classify as a timeout: %v", err)
	}
}
