package util

import (
	"bytes"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func saveLoggerState() (io.Writer, logrus.Level, logrus.Formatter) {
	return Logger.Out, Logger.Level, Logger.Formatter
}

func restoreLoggerState(out io.Writer, level logrus.Level, formatter logrus.Formatter) {
	Logger.SetOutput(out)
	Logger.SetLevel(level)
	Logger.SetFormatter(formatter)
}

func TestSetLogLevel(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	tests := []struct {
		level   string
		wantErr bool
	}{
		{"debug", false},
		{"info", false},
		{"warn", false},
		{"error", false},
		{"invalid", true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			err := SetLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("SetLogLevel(%q) error = %v, wantErr %v", tt.level, err, tt.wantErr)
			}
		})
	}
}

func TestSetLogOutput(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	var buf bytes.Buffer
	SetLogOutput(&buf)

	Infof("test message %d", 1)

	if buf.Len() == 0 {
		t.Error("Expected output to be written to buffer")
	}
}

func TestWithDevice(t *testing.T) {
	entry := WithDevice("r1")
	if entry == nil {
		t.Fatal("WithDevice should return non-nil entry")
	}
	if entry.Data["device"] != "r1" {
		t.Errorf("device field = %v, want r1", entry.Data["device"])
	}
}

func TestWithOperation(t *testing.T) {
	entry := WithOperation("get_junos_config")
	if entry == nil {
		t.Fatal("WithOperation should return non-nil entry")
	}
	if entry.Data["operation"] != "get_junos_config" {
		t.Errorf("operation field = %v, want get_junos_config", entry.Data["operation"])
	}
}

func TestWithFields(t *testing.T) {
	entry := WithFields(map[string]interface{}{
		"device":    "r1",
		"operation": "execute_junos_command",
	})
	if entry == nil {
		t.Fatal("WithFields should return non-nil entry")
	}
}
