package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"meterr-hq/io/pkg/config"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("request forwarded", "provider", "openai", "status", 200)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if entry["msg"] != "request forwarded" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["provider"] != "openai" {
		t.Errorf("provider = %v", entry["provider"])
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&config.LoggingConfig{Level: "info", Format: "text"}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("unexpected text output: %s", buf.String())
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("should be dropped")
	if buf.Len() != 0 {
		t.Errorf("info log emitted at warn level: %s", buf.String())
	}
	logger.Warn("should appear")
	if buf.Len() == 0 {
		t.Error("warn log dropped at warn level")
	}
}

func TestNew_InvalidSettings(t *testing.T) {
	if _, err := New(&config.LoggingConfig{Level: "verbose"}, &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New(&config.LoggingConfig{Format: "xml"}, &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestNew_RedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&config.LoggingConfig{Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Error("upstream rejected key",
		"error", "401 unauthorized: invalid key sk-abc123def456ghi")

	out := buf.String()
	if strings.Contains(out, "sk-abc123def456ghi") {
		t.Errorf("credential not redacted: %s", out)
	}
	if !strings.Contains(out, "sk-***") {
		t.Errorf("redaction marker missing: %s", out)
	}
}

func TestRedactor(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "openai key",
			input: "key sk-proj4567890abcdef rejected",
			want:  "key sk-*** rejected",
		},
		{
			name:  "anthropic key keeps provider marker",
			input: "x-api-key: sk-ant-api03-abcdef123456",
			want:  "x-api-key: sk-ant-***",
		},
		{
			name:  "bearer token",
			input: "Authorization: Bearer abc123def456xyz",
			want:  "Authorization: Bearer ***",
		},
		{
			name:  "clean string untouched",
			input: "customer cust_1 model gpt-4",
			want:  "customer cust_1 model gpt-4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Redact(tt.input); got != tt.want {
				t.Errorf("Redact(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
