package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/audit"
	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/inventory"
	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/ops"
	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/session"
	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/util"
)

// Supported transports.
const (
	TransportStdio          = "stdio"
	TransportStreamableHTTP = "streamable-http"
)

// Config is the server runtime configuration. Values come from flags with
// JMCP_* environment overrides; an explicit flag beats the environment.
type Config struct {
	Mapping   string `envconfig:"DEVICE_MAPPING" default:"devices.json"`
	Host      string `envconfig:"HOST" default:"127.0.0.1"`
	Port      int    `envconfig:"PORT" default:"30030"`
	Transport string `envconfig:"TRANSPORT" default:"streamable-http"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	AuditLog  string `envconfig:"AUDIT_LOG" default:""`

	TokensPath string `ignored:"true"`

	// BindExplicit records that the caller set host or port, which is
	// meaningless for stdio and rejected there.
	BindExplicit bool `ignored:"true"`
}

// FromEnv builds a Config from defaults and JMCP_* environment variables.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("jmcp", &cfg); err != nil {
		return nil, util.ConfigError("reading environment: %v", err)
	}
	return &cfg, nil
}

// Validate rejects configurations that cannot serve.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportStdio:
		if c.BindExplicit {
			return util.ConfigError("transport %q does not bind a network address, remove host/port", TransportStdio)
		}
	case TransportStreamableHTTP:
		if c.Port < 1 || c.Port > 65535 {
			return util.ConfigError("port %d out of range", c.Port)
		}
	default:
		return util.ConfigError("unsupported transport %q, use %q or %q", c.Transport, TransportStdio, TransportStreamableHTTP)
	}
	if c.LogLevel != "" {
		if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
			return util.ConfigError("unknown log level %q", c.LogLevel)
		}
	}
	return nil
}

// Serve loads the device mapping, builds the gateway, and runs the MCP
// server on the configured transport until ctx is cancelled.
func Serve(ctx context.Context, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	registry, err := inventory.LoadFile(cfg.Mapping)
	if err != nil {
		return err
	}
	util.Infof("Successfully loaded and validated %d device(s)", registry.Len())

	if cfg.AuditLog != "" {
		auditLogger, err := audit.NewFileLogger(cfg.AuditLog, audit.RotationConfig{
			MaxSize:    10 * 1024 * 1024,
			MaxBackups: 10,
		})
		if err != nil {
			util.Warnf("Could not initialize audit logging: %v", err)
		} else {
			audit.SetDefaultLogger(auditLogger)
			defer auditLogger.Close()
		}
	}

	gw := ops.NewGateway(registry, session.NetconfDialer{})
	srv := New(gw)

	switch cfg.Transport {
	case TransportStdio:
		util.Infof("stdio transport - no authentication required")
		return srv.Run(ctx, &mcp.StdioTransport{})
	case TransportStreamableHTTP:
		return serveHTTP(ctx, cfg, srv)
	default:
		return util.ConfigError("unsupported transport %q", cfg.Transport)
	}
}

func serveHTTP(ctx context.Context, cfg *Config, srv *mcp.Server) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return srv
	}, nil)

	var h http.Handler = handler
	store := NewTokenStore(cfg.TokensPath)
	if store.HasTokens() {
		util.Infof("Token-based authentication enabled")
		util.Infof("Clients must send 'Authorization: Bearer <token>' header")
		h = bearerAuth(store, h)
	} else {
		util.Warnf("No tokens configured - server is open to all clients")
		util.Infof("Create tokens using: jmcpd token generate --id <token-id>")
	}

	httpSrv := &http.Server{
		Addr:    net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler: h,
	}

	errCh := make(chan error, 1)
	go func() {
		util.Infof("Streamable HTTP server started on http://%s", httpSrv.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		util.Infof("Server shutting down...")
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
