package util

import (
	"errors"
	"strings"
	"testing"
)

func TestKindName(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrConfig, "ConfigError"},
		{ErrNotFound, "NotFoundError"},
		{ErrConnect, "ConnectError"},
		{ErrTimeout, "TimeoutError"},
		{ErrTemplate, "TemplateError"},
		{ErrCommit, "CommitError"},
		{ErrConflict, "ConflictError"},
		{errors.New("something else"), "InternalError"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := KindName(tt.err); got != tt.want {
				t.Errorf("KindName(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestKindNameWrapped(t *testing.T) {
	err := ConfigError("device %q has invalid port", "r1")
	if got := KindName(err); got != "ConfigError" {
		t.Errorf("KindName of wrapped config error = %q, want ConfigError", got)
	}
	if !errors.Is(err, ErrConfig) {
		t.Error("ConfigError should unwrap to ErrConfig")
	}
	if !strings.Contains(err.Error(), "r1") {
		t.Errorf("Error message should contain the device name: %s", err.Error())
	}
}

func TestOpError(t *testing.T) {
	err := NewOpError(ErrCommit, "r1", "load_and_commit_config", "device rejected the candidate")

	msg := err.Error()
	if !strings.Contains(msg, "r1") {
		t.Errorf("Error message should contain device: %s", msg)
	}
	if !strings.Contains(msg, "load_and_commit_config") {
		t.Errorf("Error message should contain operation: %s", msg)
	}

	if !errors.Is(err, ErrCommit) {
		t.Error("OpError should unwrap to its kind sentinel")
	}
	if got := KindName(err); got != "CommitError" {
		t.Errorf("KindName = %q, want CommitError", got)
	}
}

func TestOpErrorNoDevice(t *testing.T) {
	err := NewOpError(ErrConflict, "", "add_device", "device 'r1' already exists")
	msg := err.Error()
	if strings.Contains(msg, " on ") {
		t.Errorf("Error message should not mention a device when none is set: %s", msg)
	}
	if !strings.Contains(msg, "add_device") {
		t.Errorf("Error message should contain operation: %s", msg)
	}
}

func TestNotFoundAndConflictHelpers(t *testing.T) {
	if !errors.Is(NotFoundError("device %q", "r9"), ErrNotFound) {
		t.Error("NotFoundError should unwrap to ErrNotFound")
	}
	if !errors.Is(ConflictError("device %q", "r1"), ErrConflict) {
		t.Error("ConflictError should unwrap to ErrConflict")
	}
}
