package server

import (
	"errors"
	"testing"

	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/util"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"http defaults", Config{Transport: TransportStreamableHTTP, Host: "127.0.0.1", Port: 30030}, false},
		{"stdio", Config{Transport: TransportStdio}, false},
		{"stdio with bind address", Config{Transport: TransportStdio, BindExplicit: true}, true},
		{"unknown transport", Config{Transport: "sse", Port: 30030}, true},
		{"port out of range", Config{Transport: TransportStreamableHTTP, Port: 70000}, true},
		{"port zero", Config{Transport: TransportStreamableHTTP, Port: 0}, true},
		{"known log level", Config{Transport: TransportStdio, LogLevel: "debug"}, false},
		{"unknown log level", Config{Transport: TransportStdio, LogLevel: "noisy"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				if !errors.Is(err, util.ErrConfig) {
					t.Errorf("Validate() error = %v, want ErrConfig", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() error: %v", err)
			}
		})
	}
}

func TestFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := FromEnv()
		if err != nil {
			t.Fatalf("FromEnv() error: %v", err)
		}
		if cfg.Host != "127.0.0.1" || cfg.Port != 30030 || cfg.Transport != TransportStreamableHTTP {
			t.Errorf("defaults = %+v", cfg)
		}
		if cfg.Mapping != "devices.json" {
			t.Errorf("Mapping = %q, want devices.json", cfg.Mapping)
		}
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("JMCP_HOST", "0.0.0.0")
		t.Setenv("JMCP_PORT", "8081")
		t.Setenv("JMCP_TRANSPORT", "stdio")
		t.Setenv("JMCP_DEVICE_MAPPING", "lab.json")
		t.Setenv("JMCP_LOG_LEVEL", "debug")

		cfg, err := FromEnv()
		if err != nil {
			t.Fatalf("FromEnv() error: %v", err)
		}
		if cfg.Host != "0.0.0.0" || cfg.Port != 8081 || cfg.Transport != "stdio" {
			t.Errorf("overrides = %+v", cfg)
		}
		if cfg.Mapping != "lab.json" || cfg.LogLevel != "debug" {
			t.Errorf("overrides = %+v", cfg)
		}
	})
}
