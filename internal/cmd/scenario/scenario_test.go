package scenario

import (
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("scenario", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if !cfg.Assertions {
		t.Fatal("expected assertions to default to true")
	}
	if cfg.Verbose {
		t.Fatal("expected verbose to default to false")
	}
	if cfg.Timeout != 10*time.Second {
		t.Fatalf("timeout = %v, want 10s", cfg.Timeout)
	}
}

func TestParseConfigPositionalScenario(t *testing.T) {
	fs := flag.NewFlagSet("scenario", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, []string{"demo.lua"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Scenario != "demo.lua" {
		t.Fatalf("scenario = %q, want demo.lua", cfg.Scenario)
	}
}

func TestRunRequiresScenarioPath(t *testing.T) {
	err := Run(context.Background(), Config{}, io.Discard, io.Discard)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "scenario path is required") {
		t.Fatalf("error = %q, want scenario path is required", err.Error())
	}
}

func TestRunExecutesScenarioFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.lua")
	script := `local scene = Scenario.new("cli")
scene:genesis({alice = 10})
scene:block({transfer("alice", "bob", 4)})
scene:expect_balance("bob", 4)
return scene
`
	if err := os.WriteFile(path, []byte(script), 0o600); err != nil {
		t.Fatalf("write scenario: %v", err)
	}

	var out strings.Builder
	cfg := Config{Scenario: path, Assertions: true, Timeout: 10 * time.Second}
	if err := Run(context.Background(), cfg, &out, io.Discard); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "passed") {
		t.Fatalf("output = %q, want passed", out.String())
	}
}

func TestRunReportsAssertionFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.lua")
	script := `local scene = Scenario.new("cli")
scene:genesis({alice = 10})
scene:expect_balance("alice", 99)
return scene
`
	if err := os.WriteFile(path, []byte(script), 0o600); err != nil {
		t.Fatalf("write scenario: %v", err)
	}

	cfg := Config{Scenario: path, Assertions: true, Timeout: 10 * time.Second}
	err := Run(context.Background(), cfg, io.Discard, io.Discard)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "balance of alice") {
		t.Fatalf("error = %q, want balance assertion", err.Error())
	}
}
