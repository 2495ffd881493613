package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_NoPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("Load(\"\") = %+v, want defaults %+v", cfg, Default())
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("Load(missing) = %+v, want defaults %+v", cfg, Default())
	}
}

func TestLoad_OverlaysProvidedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "listen_addr: 0.0.0.0:9999\npool_size: 128\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != "0.0.0.0:9999" {
		t.Fatalf("ListenAddr = %q, want %q", cfg.ListenAddr, "0.0.0.0:9999")
	}
	if cfg.PoolSize != 128 {
		t.Fatalf("PoolSize = %d, want 128", cfg.PoolSize)
	}
	if cfg.DataFile != Default().DataFile {
		t.Fatalf("DataFile = %q, want default %q (unset field should keep default)", cfg.DataFile, Default().DataFile)
	}
}

func TestLoad_MalformedYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("not: valid: yaml: [["), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected Load to reject malformed YAML")
	}
}
