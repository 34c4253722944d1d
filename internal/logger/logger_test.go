package logger

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitRejectsBadOptions(t *testing.T) {
	if err := Init(WithFormat("xml")); err == nil {
		t.Error("expected error for unknown format")
	}
	if err := Init(WithLevel("chatty")); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "client.log")
	if err := Init(WithFile(path), WithFormat("json"), WithVersion("test")); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = Init() })

	Info("hello")
	_ = Shutdown()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected log file to contain the entry")
	}
}

func TestNewTagsComponent(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	restore := Replace(zap.New(core))
	defer restore()

	New("connection").Info("up")

	entries := logs.All()
	if len(entries) != 1 || entries[0].ContextMap()["component"] != "connection" {
		t.Errorf("entries = %v", entries)
	}
}

func TestUpdateLevel(t *testing.T) {
	if err := Init(WithLevel("info")); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := UpdateLevel("debug"); err != nil {
		t.Errorf("UpdateLevel(debug) error = %v", err)
	}
	if err := UpdateLevel("nope"); err == nil {
		t.Error("expected error for unknown level")
	}
}
