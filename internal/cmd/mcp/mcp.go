// Package mcp parses MCP command flags and selects stdio or HTTP transport.
package mcp

import (
	"context"
	"flag"

	entrypoint "github.com/louisbranch/cairn/internal/platform/cmd"
	"github.com/louisbranch/cairn/internal/services/mcp/service"
)

// Config holds MCP command configuration.
type Config struct {
	NodeURL   string `env:"CAIRN_CHAIN_URL"     envDefault:"http://localhost:8080"`
	HTTPAddr  string `env:"CAIRN_MCP_HTTP_ADDR" envDefault:"localhost:8081"`
	Transport string `env:"CAIRN_MCP_TRANSPORT" envDefault:"stdio"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.NodeURL, "node-url", cfg.NodeURL, "Chain node base URL")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP server address (for HTTP transport)")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "Transport type: stdio or http")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the MCP protocol adapter.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMCP, func(context.Context) error {
		return service.Run(ctx, service.Config{
			NodeURL:   cfg.NodeURL,
			Transport: service.TransportKind(cfg.Transport),
			HTTPAddr:  cfg.HTTPAddr,
		})
	})
}
