// Package scenario wires configuration for the scenario command.
package scenario

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"time"

	entrypoint "github.com/louisbranch/cairn/internal/platform/cmd"
	"github.com/louisbranch/cairn/internal/tools/scenario"
)

// Config holds scenario command configuration.
type Config struct {
	Scenario   string        `env:"CAIRN_SCENARIO_FILE"`
	Assertions bool          `env:"CAIRN_SCENARIO_ASSERT"   envDefault:"true"`
	Verbose    bool          `env:"CAIRN_SCENARIO_VERBOSE"`
	Timeout    time.Duration `env:"CAIRN_SCENARIO_TIMEOUT"  envDefault:"10s"`
}

// ParseConfig parses flags into a Config. A positional argument names
// the scenario file when the flag is not set.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Scenario, "scenario", cfg.Scenario, "path to scenario lua file")
	fs.BoolVar(&cfg.Assertions, "assert", cfg.Assertions, "enable assertions (disable to log expectations)")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable verbose logging")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "timeout for the whole scenario")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if cfg.Scenario == "" && fs.NArg() > 0 {
		cfg.Scenario = fs.Arg(0)
	}
	return cfg, nil
}

// Run executes the scenario command against a fresh in-process runtime.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if cfg.Scenario == "" {
		return errors.New("scenario path is required")
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	mode := scenario.AssertionStrict
	if !cfg.Assertions {
		mode = scenario.AssertionLogOnly
	}

	logger := log.New(errOut, "", 0)
	if err := scenario.RunFile(ctx, scenario.Config{
		Assertions: mode,
		Verbose:    cfg.Verbose,
		Logger:     logger,
	}, cfg.Scenario); err != nil {
		return err
	}
	fmt.Fprintf(out, "scenario %s passed\n", cfg.Scenario)
	return nil
}
