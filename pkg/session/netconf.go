package session

import (
	"bufio"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/crypto/ssh"

	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/util"
)

// NETCONF 1.0 end-of-message delimiter. Only base:1.0 is advertised so
// every frame uses this separator.
const msgSeparator = "]]>]]>"

const helloMessage = `<?xml version="1.0" encoding="UTF-8"?>
<hello xmlns="urn:ietf:params:xml:ns:netconf:base:1.0">
  <capabilities>
    <capability>urn:ietf:params:netconf:base:1.0</capability>
  </capabilities>
</hello>` + msgSeparator

// NetconfDialer opens NETCONF-over-SSH sessions to Junos devices.
type NetconfDialer struct{}

// Dial establishes the SSH connection (through a jump host when the
// ssh_config says so), requests the netconf subsystem, and exchanges
// hello messages. Any failure tears down everything opened so far.
func (NetconfDialer) Dial(ctx context.Context, p *Params) (Session, error) {
	client, jump, err := dialSSH(ctx, p)
	if err != nil {
		return nil, err
	}

	n := &netconfSession{device: p.Device, client: client, jump: jump}
	if err := n.start(ctx); err != nil {
		n.Close()
		return nil, err
	}

	util.WithDevice(p.Device).Debugf("netconf session %s established", n.sessionID)
	return n, nil
}

type netconfSession struct {
	device    string
	client    *ssh.Client
	jump      *ssh.Client
	sess      *ssh.Session
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	sessionID string

	mu        sync.Mutex
	msgID     int
	closeOnce sync.Once
	closeErr  error
}

func (n *netconfSession) start(ctx context.Context) error {
	sess, err := n.client.NewSession()
	if err != nil {
		return fmt.Errorf("opening ssh channel: %w", err)
	}
	n.sess = sess

	stdin, err := sess.StdinPipe()
	if err != nil {
		return fmt.Errorf("attaching stdin: %w", err)
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		return fmt.Errorf("attaching stdout: %w", err)
	}
	n.stdin = stdin
	n.stdout = bufio.NewReader(stdout)

	if err := sess.RequestSubsystem("netconf"); err != nil {
		return fmt.Errorf("requesting netconf subsystem: %w", err)
	}

	if _, err := io.WriteString(stdin, helloMessage); err != nil {
		return fmt.Errorf("sending hello: %w", err)
	}
	serverHello, err := n.readMessage(ctx)
	if err != nil {
		return fmt.Errorf("reading server hello: %w", err)
	}
	if id := extractElement(serverHello, "session-id"); id != "" {
		n.sessionID = id
	}
	return nil
}

// Close releases the channel and both SSH connections. Safe to call more
// than once; only the first call does work.
func (n *netconfSession) Close() error {
	n.closeOnce.Do(func() {
		if n.sess != nil {
			n.sess.Close()
		}
		if n.client != nil {
			n.closeErr = n.client.Close()
		}
		if n.jump != nil {
			n.jump.Close()
		}
	})
	return n.closeErr
}

// RPCError is a device-reported NETCONF error. It reaches callers when
// the device answered but rejected the request; reachability failures
// surface as plain transport errors instead.
type RPCError struct {
	Severity string
	Tag      string
	Message  string
}

func (e *RPCError) Error() string {
	if e.Message != "" {
		return strings.TrimSpace(e.Message)
	}
	return e.Tag
}

type rpcReply struct {
	XMLName    xml.Name   `xml:"rpc-reply"`
	Output     string     `xml:"output"`
	ConfigInfo struct {
		Output string `xml:"configuration-output"`
	} `xml:"configuration-information"`
	Errors []rpcErrorXML `xml:"rpc-error"`
	Raw    string        `xml:",innerxml"`
}

type rpcErrorXML struct {
	Severity string `xml:"error-severity"`
	Tag      string `xml:"error-tag"`
	Message  string `xml:"error-message"`
}

// exec sends one RPC and waits for its reply. The context deadline is the
// invocation budget: when it expires the underlying channel is torn down
// to unblock the read, and the context error is returned.
func (n *netconfSession) exec(ctx context.Context, body string) (*rpcReply, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.msgID++
	rpc := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<rpc message-id="%d" xmlns="urn:ietf:params:xml:ns:netconf:base:1.0">%s</rpc>%s`, n.msgID, body, msgSeparator)

	if _, err := io.WriteString(n.stdin, rpc); err != nil {
		return nil, fmt.Errorf("sending rpc: %w", err)
	}

	raw, err := n.readMessage(ctx)
	if err != nil {
		return nil, err
	}

	var reply rpcReply
	if err := xml.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, fmt.Errorf("parsing rpc-reply: %w", err)
	}

	for _, e := range reply.Errors {
		if strings.TrimSpace(e.Severity) != "warning" {
			return &reply, &RPCError{
				Severity: strings.TrimSpace(e.Severity),
				Tag:      strings.TrimSpace(e.Tag),
				Message:  strings.TrimSpace(e.Message),
			}
		}
	}
	// Junos nests rpc-error under load-configuration-results and
	// commit-results, out of reach of the top-level field above.
	if err := nestedRPCError(reply.Raw); err != nil {
		return &reply, err
	}
	return &reply, nil
}

// readMessage consumes bytes up to the next end-of-message delimiter.
// The blocking read runs in a goroutine so the invocation deadline can
// force the session closed underneath it.
func (n *netconfSession) readMessage(ctx context.Context) (string, error) {
	type result struct {
		data string
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		for {
			b, err := n.stdout.ReadByte()
			if err != nil {
				ch <- result{err: err}
				return
			}
			buf.WriteByte(b)
			if b == '>' && bytes.HasSuffix(buf.Bytes(), []byte(msgSeparator)) {
				msg := buf.String()
				ch <- result{data: strings.TrimSuffix(msg, msgSeparator)}
				return
			}
		}
	}()

	select {
	case r := <-ch:
		return r.data, r.err
	case <-ctx.Done():
		// Forcibly release; the in-flight operation cannot be
		// interrupted any finer than this.
		n.Close()
		return "", ctx.Err()
	}
}

// RunCommand executes a CLI command via the Junos <command> RPC.
func (n *netconfSession) RunCommand(ctx context.Context, command string) (string, error) {
	var body bytes.Buffer
	body.WriteString(`<command format="text">`)
	xml.EscapeText(&body, []byte(command))
	body.WriteString(`</command>`)

	reply, err := n.exec(ctx, body.String())
	if err != nil {
		return "", err
	}
	return replyText(reply), nil
}

// replyText extracts the textual payload of a CLI reply. Operational
// commands answer in <output>; configuration displays answer in
// <configuration-information>.
func replyText(reply *rpcReply) string {
	if reply.Output != "" {
		return reply.Output
	}
	if reply.ConfigInfo.Output != "" {
		return reply.ConfigInfo.Output
	}
	return strings.TrimSpace(reply.Raw)
}

type softwareInformation struct {
	XMLName      xml.Name `xml:"software-information"`
	HostName     string   `xml:"host-name"`
	ProductModel string   `xml:"product-model"`
	JunosVersion string   `xml:"junos-version"`
}

type chassisInventory struct {
	XMLName xml.Name `xml:"chassis-inventory"`
	Chassis struct {
		SerialNumber string `xml:"serial-number"`
		Description  string `xml:"description"`
	} `xml:"chassis"`
}

// Facts collects identity and version information from the device.
func (n *netconfSession) Facts(ctx context.Context) (*Facts, error) {
	reply, err := n.exec(ctx, "<get-software-information/>")
	if err != nil {
		return nil, err
	}
	var sw softwareInformation
	if err := xml.Unmarshal([]byte(reply.Raw), &sw); err != nil {
		return nil, fmt.Errorf("parsing software information: %w", err)
	}

	facts := &Facts{
		Hostname: strings.TrimSpace(sw.HostName),
		Model:    strings.TrimSpace(sw.ProductModel),
		Version:  strings.TrimSpace(sw.JunosVersion),
	}

	// Serial number lives in the chassis inventory; tolerate platforms
	// that do not expose one.
	if reply, err = n.exec(ctx, "<get-chassis-inventory/>"); err == nil {
		var ch chassisInventory
		if xml.Unmarshal([]byte(reply.Raw), &ch) == nil {
			facts.SerialNumber = strings.TrimSpace(ch.Chassis.SerialNumber)
			facts.Description = strings.TrimSpace(ch.Chassis.Description)
		}
	}
	return facts, nil
}

// Lock takes the exclusive configuration lock.
func (n *netconfSession) Lock(ctx context.Context) error {
	_, err := n.exec(ctx, "<lock-configuration/>")
	return err
}

// Unlock releases the configuration lock.
func (n *netconfSession) Unlock(ctx context.Context) error {
	_, err := n.exec(ctx, "<unlock-configuration/>")
	return err
}

// LoadConfig stages the candidate via <load-configuration>.
func (n *netconfSession) LoadConfig(ctx context.Context, text string, format Format) error {
	var body bytes.Buffer
	switch format {
	case FormatSet:
		body.WriteString(`<load-configuration action="set" format="text"><configuration-set>`)
		xml.EscapeText(&body, []byte(text))
		body.WriteString(`</configuration-set></load-configuration>`)
	case FormatText:
		body.WriteString(`<load-configuration action="merge" format="text"><configuration-text>`)
		xml.EscapeText(&body, []byte(text))
		body.WriteString(`</configuration-text></load-configuration>`)
	case FormatXML:
		body.WriteString(`<load-configuration action="merge" format="xml"><configuration>`)
		body.WriteString(text)
		body.WriteString(`</configuration></load-configuration>`)
	default:
		return util.ConfigError("unsupported config format %q", format)
	}

	_, err := n.exec(ctx, body.String())
	return err
}

// DiffCandidate compares the candidate against the running configuration
// (rollback 0). An empty diff means the candidate changes nothing.
func (n *netconfSession) DiffCandidate(ctx context.Context) (string, error) {
	reply, err := n.exec(ctx, `<get-configuration compare="rollback" rollback="0" format="text"/>`)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply.ConfigInfo.Output), nil
}

// Commit activates the candidate configuration.
func (n *netconfSession) Commit(ctx context.Context, comment string) error {
	var body bytes.Buffer
	body.WriteString("<commit-configuration>")
	if comment != "" {
		body.WriteString("<log>")
		xml.EscapeText(&body, []byte(comment))
		body.WriteString("</log>")
	}
	body.WriteString("</commit-configuration>")

	_, err := n.exec(ctx, body.String())
	return err
}

// Discard drops the candidate by reloading rollback 0.
func (n *netconfSession) Discard(ctx context.Context) error {
	_, err := n.exec(ctx, `<load-configuration rollback="0"/>`)
	return err
}

// extractElement pulls the text of the first occurrence of a simple
// element, used only for the hello session-id.
func extractElement(doc, name string) string {
	opening, closing := "<"+name+">", "</"+name+">"
	start := strings.Index(doc, opening)
	if start < 0 {
		return ""
	}
	start += len(opening)
	end := strings.Index(doc[start:], closing)
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(doc[start : start+end])
}

// nestedRPCError scans reply innerxml for rpc-error elements nested below
// the top level, as Junos emits for load and commit failures.
func nestedRPCError(raw string) error {
	if !strings.Contains(raw, "<rpc-error>") {
		return nil
	}
	dec := xml.NewDecoder(strings.NewReader("<root>" + raw + "</root>"))
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "rpc-error" {
			continue
		}
		var e rpcErrorXML
		if err := dec.DecodeElement(&e, &se); err != nil {
			return nil
		}
		if strings.TrimSpace(e.Severity) != "warning" {
			return &RPCError{
				Severity: strings.TrimSpace(e.Severity),
				Tag:      strings.TrimSpace(e.Tag),
				Message:  strings.TrimSpace(e.Message),
			}
		}
	}
}
