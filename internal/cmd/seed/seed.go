// Package seed wires configuration for the seed command.
package seed

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/louisbranch/cairn/internal/tools/seed"
)

// Config holds seed command configuration.
type Config struct {
	SeedConfig seed.Config
	List       bool
}

// EnvLookup returns the value for a key when present.
type EnvLookup func(string) (string, bool)

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string, lookup EnvLookup) (Config, error) {
	seedCfg := seed.DefaultConfig()
	seedCfg.NodeURL = envOrDefault(lookup, []string{"CAIRN_CHAIN_URL"}, seedCfg.NodeURL)
	seedCfg.Grant = envOrDefault(lookup, []string{"CAIRN_CHAIN_PRODUCER_GRANT"}, "")
	var list bool

	fs.StringVar(&seedCfg.NodeURL, "node-url", seedCfg.NodeURL, "chain node base URL")
	fs.StringVar(&seedCfg.Grant, "grant", seedCfg.Grant, "producer grant token for block submission")
	fs.StringVar(&seedCfg.Scenario, "scenario", "", "run specific scenario (default: all)")
	fs.BoolVar(&seedCfg.Verbose, "v", false, "verbose output")
	fs.BoolVar(&list, "list", false, "list available scenarios")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	return Config{
		SeedConfig: seedCfg,
		List:       list,
	}, nil
}

// Run executes the seed command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	if cfg.List {
		fmt.Fprintln(out, "Available scenarios:")
		for _, name := range seed.ListScenarios() {
			fmt.Fprintf(out, "  %s\n", name)
		}
		return nil
	}

	return seed.Run(ctx, cfg.SeedConfig)
}

func envOrDefault(lookup EnvLookup, keys []string, fallback string) string {
	for _, key := range keys {
		if lookup == nil {
			break
		}
		value, ok := lookup(key)
		if ok {
			trimmed := strings.TrimSpace(value)
			if trimmed != "" {
				return trimmed
			}
		}
	}
	return fallback
}
