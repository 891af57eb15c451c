package chain

import (
	"context"
	"flag"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("chain", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.Addr != "" {
		t.Fatalf("expected empty addr, got %q", cfg.Addr)
	}
	if cfg.DBPath != "chain.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	fs := flag.NewFlagSet("chain", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-port", "9001", "-addr", "127.0.0.1:9999", "-db", "other.db", "-genesis", "genesis.json"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 9001 {
		t.Fatalf("expected port 9001, got %d", cfg.Port)
	}
	if cfg.Addr != "127.0.0.1:9999" {
		t.Fatalf("expected addr override, got %q", cfg.Addr)
	}
	if cfg.DBPath != "other.db" {
		t.Fatalf("expected db override, got %q", cfg.DBPath)
	}
	if cfg.Genesis != "genesis.json" {
		t.Fatalf("expected genesis override, got %q", cfg.Genesis)
	}
}

func TestRunMissingGenesisFile(t *testing.T) {
	cfg := Config{
		Port:    0,
		DBPath:  filepath.Join(t.TempDir(), "chain.db"),
		Genesis: filepath.Join(t.TempDir(), "missing.json"),
	}

	err := Run(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "read genesis document") {
		t.Fatalf("error = %q, want read genesis document", err.Error())
	}
}
