package session

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/kevinburke/ssh_config"
	"golang.org/x/crypto/ssh"

	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/util"
)

// sshEndpoint is a dial target after ssh_config resolution.
type sshEndpoint struct {
	host string
	port int
	user string
}

func (e sshEndpoint) addr() string {
	return net.JoinHostPort(e.host, strconv.Itoa(e.port))
}

// clientConfig builds the SSH client configuration from resolved
// parameters. Key material problems are configuration errors, not
// connection errors: they are caught before dialing.
func clientConfig(p *Params, user string) (*ssh.ClientConfig, error) {
	var methods []ssh.AuthMethod
	if p.KeyPath != "" {
		data, err := os.ReadFile(p.KeyPath)
		if err != nil {
			return nil, util.ConfigError("reading private key %q: %v", p.KeyPath, err)
		}
		var signer ssh.Signer
		if p.Passphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(data, []byte(p.Passphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(data)
		}
		if err != nil {
			return nil, util.ConfigError("parsing private key %q: %v", p.KeyPath, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	} else {
		methods = append(methods, ssh.Password(p.Password))
	}

	return &ssh.ClientConfig{
		User: user,
		Auth: methods,
		// Device host keys are not distributed with the inventory.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         p.Timeout,
	}, nil
}

// dialSSH connects to the device, honoring HostName/Port/ProxyJump
// directives from the descriptor's ssh_config when one is declared.
// The returned jump client is non-nil only when a ProxyJump applied; the
// caller owns closing both.
func dialSSH(ctx context.Context, p *Params) (client, jump *ssh.Client, err error) {
	target := sshEndpoint{host: p.Host, port: p.Port, user: p.Username}
	var jumpTarget *sshEndpoint

	if p.SSHConfigPath != "" {
		target, jumpTarget, err = resolveSSHConfig(p, target)
		if err != nil {
			return nil, nil, err
		}
	}

	cfg, err := clientConfig(p, target.user)
	if err != nil {
		return nil, nil, err
	}

	if jumpTarget == nil {
		c, err := dialDirect(ctx, target.addr(), cfg)
		return c, nil, err
	}

	// Dial the jump host first, then reach the device through it. Same
	// credentials apply on both hops; the device answers on the hop's
	// forwarded channel exactly as on a direct connection.
	jumpCfg, err := clientConfig(p, jumpTarget.user)
	if err != nil {
		return nil, nil, err
	}
	jump, err = dialDirect(ctx, jumpTarget.addr(), jumpCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("jump host %s: %w", jumpTarget.addr(), err)
	}

	conn, err := jump.Dial("tcp", target.addr())
	if err != nil {
		jump.Close()
		return nil, nil, fmt.Errorf("dialing %s through jump host: %w", target.addr(), err)
	}
	c, err := handshake(ctx, conn, target.addr(), cfg)
	if err != nil {
		jump.Close()
		return nil, nil, err
	}
	return c, jump, nil
}

func dialDirect(ctx context.Context, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return handshake(ctx, conn, addr, cfg)
}

// handshake runs the SSH handshake on conn, bounded by ctx.
// ssh.NewClientConn does not honor ClientConfig.Timeout, and forwarded
// conns from a jump hop carry no deadline support, so the bound is
// enforced by closing the conn when the context expires. A peer that
// accepts TCP but never speaks SSH cannot block past the invocation
// deadline.
func handshake(ctx context.Context, conn net.Conn, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
	type result struct {
		client *ssh.Client
		err    error
	}
	done := make(chan result, 1)
	go func() {
		cc, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
		if err != nil {
			done <- result{err: err}
			return
		}
		done <- result{client: ssh.NewClient(cc, chans, reqs)}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			conn.Close()
			return nil, r.err
		}
		return r.client, nil
	case <-ctx.Done():
		conn.Close()
		if r := <-done; r.client != nil {
			r.client.Close()
		}
		return nil, ctx.Err()
	}
}

// resolveSSHConfig applies the ssh_config directives for the device's
// host alias. ProxyCommand cannot be honored in-process and is rejected.
func resolveSSHConfig(p *Params, target sshEndpoint) (sshEndpoint, *sshEndpoint, error) {
	f, err := os.Open(p.SSHConfigPath)
	if err != nil {
		return target, nil, util.ConfigError("opening ssh_config %q: %v", p.SSHConfigPath, err)
	}
	defer f.Close()

	cfg, err := ssh_config.Decode(f)
	if err != nil {
		return target, nil, util.ConfigError("parsing ssh_config %q: %v", p.SSHConfigPath, err)
	}

	alias := p.Host
	if v, _ := cfg.Get(alias, "ProxyCommand"); v != "" {
		return target, nil, util.ConfigError("ssh_config %q sets ProxyCommand for %q, which is not supported; use ProxyJump", p.SSHConfigPath, alias)
	}

	if v, _ := cfg.Get(alias, "HostName"); v != "" {
		target.host = v
	}
	if v, _ := cfg.Get(alias, "Port"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			target.port = port
		}
	}
	if v, _ := cfg.Get(alias, "User"); v != "" {
		target.user = v
	}

	proxy, _ := cfg.Get(alias, "ProxyJump")
	if proxy == "" || proxy == "none" {
		return target, nil, nil
	}

	jt, err := parseJump(cfg, proxy, p.Username)
	if err != nil {
		return target, nil, err
	}
	return target, jt, nil
}

// parseJump resolves a ProxyJump value ("[user@]host[:port]" or another
// ssh_config alias) into a dialable endpoint.
func parseJump(cfg *ssh_config.Config, spec, defaultUser string) (*sshEndpoint, error) {
	jt := &sshEndpoint{port: 22, user: defaultUser}

	host := spec
	if i := strings.IndexByte(host, '@'); i >= 0 {
		jt.user = host[:i]
		host = host[i+1:]
	}
	if h, port, err := net.SplitHostPort(host); err == nil {
		p, perr := strconv.Atoi(port)
		if perr != nil {
			return nil, util.ConfigError("invalid ProxyJump port in %q", spec)
		}
		jt.host, jt.port = h, p
	} else {
		jt.host = host
	}

	// The jump value may itself be an alias in the same file.
	if v, _ := cfg.Get(jt.host, "HostName"); v != "" {
		if jt.user == defaultUser {
			if u, _ := cfg.Get(jt.host, "User"); u != "" {
				jt.user = u
			}
		}
		if v2, _ := cfg.Get(jt.host, "Port"); v2 != "" {
			if p, err := strconv.Atoi(v2); err == nil {
				jt.port = p
			}
		}
		jt.host = v
	}
	return jt, nil
}
