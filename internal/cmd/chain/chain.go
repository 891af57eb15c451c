// Package chain parses chain command flags and starts the node.
package chain

import (
	"context"
	"flag"
	"fmt"
	"os"

	entrypoint "github.com/louisbranch/cairn/internal/platform/cmd"
	"github.com/louisbranch/cairn/internal/services/chain/server"
)

// Config holds chain command configuration.
type Config struct {
	Port    int    `env:"CAIRN_CHAIN_PORT" envDefault:"8080"`
	Addr    string `env:"CAIRN_CHAIN_ADDR"`
	DBPath  string `env:"CAIRN_CHAIN_DB"   envDefault:"chain.db"`
	Genesis string `env:"CAIRN_CHAIN_GENESIS"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The chain node port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The chain node listen address (overrides -port)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the block journal database")
	fs.StringVar(&cfg.Genesis, "genesis", cfg.Genesis, "Path to the genesis document (optional)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the chain node service.
func Run(ctx context.Context, cfg Config) error {
	var genesis []byte
	if cfg.Genesis != "" {
		raw, err := os.ReadFile(cfg.Genesis)
		if err != nil {
			return fmt.Errorf("read genesis document: %w", err)
		}
		genesis = raw
	}

	grant, err := server.LoadGrantConfigFromEnv(nil)
	if err != nil {
		return err
	}

	addr := cfg.Addr
	if addr == "" {
		addr = fmt.Sprintf(":%d", cfg.Port)
	}

	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceChain, func(context.Context) error {
		return server.Run(ctx, server.Config{
			HTTPAddr: addr,
			DBPath:   cfg.DBPath,
			Genesis:  genesis,
			Grant:    grant,
		})
	})
}
