package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Origin != "http://localhost:8000/" {
		t.Errorf("Server.Origin = %q", cfg.Server.Origin)
	}
	if cfg.Join.SettleDelay != 3*time.Second {
		t.Errorf("Join.SettleDelay = %v, want 3s", cfg.Join.SettleDelay)
	}
	if cfg.Connection.HistorySize != 500 {
		t.Errorf("Connection.HistorySize = %d, want 500", cfg.Connection.HistorySize)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics should be disabled by default")
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
SERVER:
  ORIGIN: "https://cards.example.com/"
JOIN:
  SETTLE_DELAY: 500ms
`)

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Origin != "https://cards.example.com/" {
		t.Errorf("Server.Origin = %q", cfg.Server.Origin)
	}
	if cfg.Join.SettleDelay != 500*time.Millisecond {
		t.Errorf("Join.SettleDelay = %v, want 500ms", cfg.Join.SettleDelay)
	}
	// untouched keys keep their defaults
	if cfg.Transport.HandshakeTimeout != 10*time.Second {
		t.Errorf("Transport.HandshakeTimeout = %v, want 10s", cfg.Transport.HandshakeTimeout)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
SERVER:
  ORIGIN: "https://cards.example.com/"
`)
	t.Setenv("CARDS_SERVER_ORIGIN", "http://127.0.0.1:9000/")
	t.Setenv("CARDS_CONNECTION_HISTORY_SIZE", "42")

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Origin != "http://127.0.0.1:9000/" {
		t.Errorf("Server.Origin = %q", cfg.Server.Origin)
	}
	if cfg.Connection.HistorySize != 42 {
		t.Errorf("Connection.HistorySize = %d, want 42", cfg.Connection.HistorySize)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfigFile(t, `
SERVER:
  ORIGIN: "http://localhost:8000/"
  NOT_A_SETTING: true
`)
	if _, err := Load(path, nil); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantMsg string
	}{
		{
			name:    "origin without scheme",
			yaml:    "SERVER:\n  ORIGIN: \"localhost:8000\"\n",
			wantMsg: "must be an absolute http:// or https:// URL",
		},
		{
			name:    "websocket origin",
			yaml:    "SERVER:\n  ORIGIN: \"ws://localhost:8000/\"\n",
			wantMsg: "must be an absolute http:// or https:// URL",
		},
		{
			name:    "bad log level",
			yaml:    "LOGGING:\n  LEVEL: \"chatty\"\n",
			wantMsg: "must be one of: debug, info, warn, error, fatal",
		},
		{
			name:    "bad log format",
			yaml:    "LOGGING:\n  FORMAT: \"xml\"\n",
			wantMsg: "must be either 'console' or 'json'",
		},
		{
			name:    "settle delay too long",
			yaml:    "JOIN:\n  SETTLE_DELAY: 5m\n",
			wantMsg: "must be between 0 and 1 minute",
		},
		{
			name:    "rate without burst",
			yaml:    "CONNECTION:\n  SEND_RATE: 5\n  SEND_BURST: 0\n",
			wantMsg: "must be at least 1 when a send rate is configured",
		},
		{
			name:    "handshake timeout too short",
			yaml:    "TRANSPORT:\n  HANDSHAKE_TIMEOUT: 10ms\n",
			wantMsg: "must be between 1 second and 24 hours",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfigFile(t, tt.yaml), nil)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestZeroSettleDelayAllowed(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, "JOIN:\n  SETTLE_DELAY: 0s\n"), nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Join.SettleDelay != 0 {
		t.Errorf("Join.SettleDelay = %v, want 0", cfg.Join.SettleDelay)
	}
}
