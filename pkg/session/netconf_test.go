package session

import (
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kevinburke/ssh_config"

	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/util"
)

func sshConfigFromString(s string) (*ssh_config.Config, error) {
	return ssh_config.Decode(strings.NewReader(s))
}

func TestReplyText(t *testing.T) {
	t.Run("operational output", func(t *testing.T) {
		var reply rpcReply
		raw := `<rpc-reply message-id="1"><output>Hostname: r1
Model: mx960</output></rpc-reply>`
		if err := xml.Unmarshal([]byte(raw), &reply); err != nil {
			t.Fatal(err)
		}
		if got := replyText(&reply); !strings.Contains(got, "mx960") {
			t.Errorf("replyText() = %q", got)
		}
	})

	t.Run("configuration output", func(t *testing.T) {
		var reply rpcReply
		raw := `<rpc-reply message-id="2"><configuration-information><configuration-output>system { host-name r1; }</configuration-output></configuration-information></rpc-reply>`
		if err := xml.Unmarshal([]byte(raw), &reply); err != nil {
			t.Fatal(err)
		}
		if got := replyText(&reply); !strings.Contains(got, "host-name r1") {
			t.Errorf("replyText() = %q", got)
		}
	})
}

func TestRPCErrorParsing(t *testing.T) {
	var reply rpcReply
	raw := `<rpc-reply message-id="3">
  <rpc-error>
    <error-severity>error</error-severity>
    <error-message>syntax error</error-message>
  </rpc-error>
</rpc-reply>`
	if err := xml.Unmarshal([]byte(raw), &reply); err != nil {
		t.Fatal(err)
	}
	if len(reply.Errors) != 1 {
		t.Fatalf("parsed %d errors, want 1", len(reply.Errors))
	}
	if strings.TrimSpace(reply.Errors[0].Severity) != "error" {
		t.Errorf("severity = %q", reply.Errors[0].Severity)
	}
}

func TestNestedRPCError(t *testing.T) {
	raw := `<load-configuration-results>
  <rpc-error>
    <error-severity>error</error-severity>
    <error-message>syntax error: unexpected token</error-message>
  </rpc-error>
</load-configuration-results>`
	err := nestedRPCError(raw)
	if err == nil {
		t.Fatal("nestedRPCError() should report the nested error")
	}
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("error type = %T", err)
	}
	if !strings.Contains(rpcErr.Message, "syntax error") {
		t.Errorf("message = %q", rpcErr.Message)
	}
}

func TestNestedRPCErrorIgnoresWarnings(t *testing.T) {
	raw := `<load-configuration-results>
  <rpc-error>
    <error-severity>warning</error-severity>
    <error-message>statement ignored</error-message>
  </rpc-error>
  <ok/>
</load-configuration-results>`
	if err := nestedRPCError(raw); err != nil {
		t.Errorf("warnings must not fail the operation: %v", err)
	}
}

func TestExtractElement(t *testing.T) {
	hello := `<hello><session-id>4711</session-id></hello>`
	if got := extractElement(hello, "session-id"); got != "4711" {
		t.Errorf("extractElement() = %q, want 4711", got)
	}
	if got := extractElement(hello, "missing"); got != "" {
		t.Errorf("extractElement(missing) = %q, want empty", got)
	}
}

func TestResolveSSHConfigProxyJump(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "ssh_config")
	content := `Host r1
    HostName 10.0.0.5
    Port 2222
    ProxyJump bastion

Host bastion
    HostName 198.51.100.10
    Port 22
    User jumpuser
`
	if err := os.WriteFile(cfgPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	p := &Params{Device: "r1", Host: "r1", Port: 830, Username: "admin", SSHConfigPath: cfgPath}
	target, jump, err := resolveSSHConfig(p, sshEndpoint{host: p.Host, port: p.Port, user: p.Username})
	if err != nil {
		t.Fatalf("resolveSSHConfig() error: %v", err)
	}
	if target.host != "10.0.0.5" || target.port != 2222 {
		t.Errorf("target = %+v, want 10.0.0.5:2222", target)
	}
	if jump == nil {
		t.Fatal("expected a jump endpoint")
	}
	if jump.host != "198.51.100.10" || jump.port != 22 || jump.user != "jumpuser" {
		t.Errorf("jump = %+v", jump)
	}
}

func TestResolveSSHConfigProxyCommandRejected(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "ssh_config")
	content := `Host r1
    ProxyCommand ssh -W %h:%p bastion
`
	if err := os.WriteFile(cfgPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	p := &Params{Device: "r1", Host: "r1", Port: 830, Username: "admin", SSHConfigPath: cfgPath}
	_, _, err := resolveSSHConfig(p, sshEndpoint{host: p.Host, port: p.Port, user: p.Username})
	if !errors.Is(err, util.ErrConfig) {
		t.Errorf("ProxyCommand should be rejected with ConfigError: %v", err)
	}
}

func TestResolveSSHConfigNoDirectives(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "ssh_config")
	if err := os.WriteFile(cfgPath, []byte("Host something-else\n    HostName 10.9.9.9\n"), 0600); err != nil {
		t.Fatal(err)
	}

	p := &Params{Device: "r1", Host: "192.0.2.7", Port: 830, Username: "admin", SSHConfigPath: cfgPath}
	target, jump, err := resolveSSHConfig(p, sshEndpoint{host: p.Host, port: p.Port, user: p.Username})
	if err != nil {
		t.Fatalf("resolveSSHConfig() error: %v", err)
	}
	if target.host != "192.0.2.7" || target.port != 830 {
		t.Errorf("target should be unchanged: %+v", target)
	}
	if jump != nil {
		t.Errorf("no ProxyJump configured, got %+v", jump)
	}
}

func TestParseJumpInline(t *testing.T) {
	cfg, err := sshConfigFromString("")
	if err != nil {
		t.Fatal(err)
	}
	jt, err := parseJump(cfg, "ops@198.51.100.1:2200", "admin")
	if err != nil {
		t.Fatal(err)
	}
	if jt.user != "ops" || jt.host != "198.51.100.1" || jt.port != 2200 {
		t.Errorf("parseJump() = %+v", jt)
	}

	jt, err = parseJump(cfg, "198.51.100.2", "admin")
	if err != nil {
		t.Fatal(err)
	}
	if jt.user != "admin" || jt.host != "198.51.100.2" || jt.port != 22 {
		t.Errorf("parseJump() = %+v", jt)
	}
}
