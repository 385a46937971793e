package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
server:
  listen_address: "0.0.0.0:9090"
  read_timeout: 10s
upstreams:
  openai:
    base_url: "https://api.openai.com"
  anthropic:
    base_url: "https://api.anthropic.com"
    timeout: 60s
ledger:
  backend: sqlite
  sqlite:
    path: "/tmp/test-ledger.db"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("ListenAddress = %q, want 0.0.0.0:9090", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("ReadTimeout = %v, want 10s", cfg.Server.ReadTimeout)
	}
	// Unset fields get defaults.
	if cfg.Server.IdleTimeout != DefaultIdleTimeout {
		t.Errorf("IdleTimeout = %v, want default %v", cfg.Server.IdleTimeout, DefaultIdleTimeout)
	}
	if cfg.Upstreams["openai"].Timeout != DefaultUpstreamTimeout {
		t.Errorf("openai timeout = %v, want default %v", cfg.Upstreams["openai"].Timeout, DefaultUpstreamTimeout)
	}
	if cfg.Upstreams["anthropic"].Timeout != 60*time.Second {
		t.Errorf("anthropic timeout = %v, want 60s", cfg.Upstreams["anthropic"].Timeout)
	}
	if cfg.Ledger.SQLite.Path != "/tmp/test-ledger.db" {
		t.Errorf("sqlite path = %q", cfg.Ledger.SQLite.Path)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "server: [not a mapping")
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestLoadConfig_InvalidConfig(t *testing.T) {
	path := writeConfigFile(t, `
upstreams:
  openai:
    base_url: "ftp://api.openai.com"
`)
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error for unsupported scheme")
	}
	if !strings.Contains(err.Error(), "base_url") {
		t.Errorf("error should name the field, got %v", err)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
server:
  listen_address: "127.0.0.1:8080"
upstreams:
  openai:
    base_url: "https://api.openai.com"
`)

	t.Setenv("METERR_SERVER_LISTEN_ADDRESS", "0.0.0.0:7070")
	t.Setenv("METERR_UPSTREAMS_OPENAI_BASE_URL", "https://proxy.internal:8443")
	t.Setenv("METERR_GATEWAY_AUDIT_ERRORS", "false")
	t.Setenv("METERR_RETENTION_DAYS", "90")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:7070" {
		t.Errorf("ListenAddress = %q, want env override", cfg.Server.ListenAddress)
	}
	if cfg.Upstreams["openai"].BaseURL != "https://proxy.internal:8443" {
		t.Errorf("openai base URL = %q, want env override", cfg.Upstreams["openai"].BaseURL)
	}
	if cfg.Gateway.AuditErrors {
		t.Error("AuditErrors should be disabled by env override")
	}
	if cfg.Retention.RetentionDays != 90 {
		t.Errorf("RetentionDays = %d, want 90", cfg.Retention.RetentionDays)
	}
}

func TestEnvOverrideCreatesUpstream(t *testing.T) {
	path := writeConfigFile(t, "server:\n  listen_address: \"127.0.0.1:8080\"\n")

	t.Setenv("METERR_UPSTREAMS_ANTHROPIC_BASE_URL", "https://api.anthropic.com")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}

	upstream, ok := cfg.Upstreams["anthropic"]
	if !ok {
		t.Fatal("anthropic upstream should exist from env override")
	}
	if upstream.Timeout != DefaultUpstreamTimeout {
		t.Errorf("Timeout = %v, want default %v", upstream.Timeout, DefaultUpstreamTimeout)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Fatalf("DefaultConfig should validate, got %v", err)
	}
	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("ListenAddress = %q, want %q", cfg.Server.ListenAddress, DefaultListenAddress)
	}
	if cfg.Ledger.Backend != "sqlite" {
		t.Errorf("Backend = %q, want sqlite", cfg.Ledger.Backend)
	}
	if !cfg.Gateway.AuditErrors {
		t.Error("AuditErrors should default to true")
	}
	if !cfg.DeadLetter.Enabled {
		t.Error("DeadLetter.Enabled should default to true")
	}
}
