package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Machine.MaxTicks != 0 {
		t.Errorf("Expected MaxTicks=0 (unbounded), got %d", cfg.Machine.MaxTicks)
	}
	if cfg.Machine.StackTop != 4096 {
		t.Errorf("Expected StackTop=4096, got %d", cfg.Machine.StackTop)
	}
	if !cfg.Compiler.EntryComment {
		t.Error("Expected EntryComment=true")
	}
	if cfg.Trace.Enabled {
		t.Error("Expected Trace.Enabled=false")
	}
	if cfg.Statistics.Format != "text" {
		t.Errorf("Expected Format=text, got %s", cfg.Statistics.Format)
	}
}

func TestLoadNonExistent(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "nonexistent.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not error on a missing file: %v", err)
	}
	if cfg.Machine.StackTop != 4096 {
		t.Error("Expected default config when file doesn't exist")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "comp3.toml")

	contents := `
[machine]
max_ticks = 500000
stack_top = 8192

[trace]
enabled = true
output_file = "run.log"

[statistics]
format = "json"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Machine.MaxTicks != 500000 {
		t.Errorf("Expected MaxTicks=500000, got %d", cfg.Machine.MaxTicks)
	}
	if cfg.Machine.StackTop != 8192 {
		t.Errorf("Expected StackTop=8192, got %d", cfg.Machine.StackTop)
	}
	if !cfg.Compiler.EntryComment {
		t.Error("Expected untouched EntryComment to keep its default of true")
	}
	if !cfg.Trace.Enabled {
		t.Error("Expected Trace.Enabled=true")
	}
	if cfg.Statistics.Format != "json" {
		t.Errorf("Expected Format=json, got %s", cfg.Statistics.Format)
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "invalid.toml")

	invalid := `
[machine]
max_ticks = "not a number"
`
	if err := os.WriteFile(path, []byte(invalid), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error when loading invalid TOML")
	}
}

func TestLoadRejectsUnknownStatisticsFormat(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "comp3.toml")

	if err := os.WriteFile(path, []byte("[statistics]\nformat = \"html\"\n"), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error for unsupported statistics.format")
	}
}
