package ops

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/session"
	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/util"
)

func TestFailureKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"config", util.ConfigError("bad port"), "ConfigError"},
		{"not found", util.NotFoundError("no such device"), "NotFoundError"},
		{"timeout", fmt.Errorf("%w: after 30s", util.ErrTimeout), "TimeoutError"},
		{"commit", fmt.Errorf("%w: check failed", util.ErrCommit), "CommitError"},
		{"rpc error from device", &session.RPCError{Severity: "error", Message: "syntax error"}, "CommandError"},
		{"unclassified", errors.New("boom"), "InternalError"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := failure("r1", OpExecuteCommand, tt.err)
			if res.OK() {
				t.Fatal("failure() produced a success")
			}
			if res.Failure.Kind != tt.want {
				t.Errorf("Kind = %q, want %q", res.Failure.Kind, tt.want)
			}
		})
	}
}

func TestFailureMessageNamesDeviceAndOperation(t *testing.T) {
	res := failure("r1", OpGetConfig, errors.New("boom"))
	if !strings.Contains(res.Failure.Message, OpGetConfig) {
		t.Errorf("Message missing operation: %q", res.Failure.Message)
	}
	if !strings.Contains(res.Failure.Message, `"r1"`) {
		t.Errorf("Message missing device: %q", res.Failure.Message)
	}
}

func TestFailureScrubbed(t *testing.T) {
	err := errors.New("ssh: unable to authenticate with hunter2")
	res := failureScrubbed("r1", OpExecuteCommand, err, []string{"hunter2", ""})
	if strings.Contains(res.Failure.Message, "hunter2") {
		t.Errorf("Message leaks secret: %q", res.Failure.Message)
	}
	if !strings.Contains(res.Failure.Message, "******") {
		t.Errorf("Message not masked: %q", res.Failure.Message)
	}
}
