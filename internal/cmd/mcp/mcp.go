// Package mcp parses MCP command flags and selects stdio or HTTP transport.
package mcp

import (
	"context"
	"flag"
	"fmt"
	"strings"

	entrypoint "github.com/louisbranch/storydeck/internal/platform/cmd"
	"github.com/louisbranch/storydeck/internal/services/mcp/service"
)

// Config holds MCP command configuration. Environment names carry the
// STORYDECK_ prefix.
type Config struct {
	Addr      string `env:"GAME_ADDR"      envDefault:"localhost:8080"`
	HTTPAddr  string `env:"MCP_HTTP_ADDR"  envDefault:"localhost:8081"`
	Transport string `env:"MCP_TRANSPORT"  envDefault:"stdio"`
	UserID    string `env:"MCP_USER_ID"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg, err := entrypoint.LoadConfig(fs, args, func(cfg *Config, fs *flag.FlagSet) {
		fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "game server address")
		fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP server address (for HTTP transport)")
		fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "Transport type: stdio or http")
		fs.StringVar(&cfg.UserID, "user", cfg.UserID, "account ID the MCP server acts as")
	})
	if err != nil {
		return Config{}, err
	}
	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))
	switch service.TransportKind(cfg.Transport) {
	case service.TransportStdio, service.TransportHTTP:
	default:
		return Config{}, fmt.Errorf("transport must be stdio or http, got %q", cfg.Transport)
	}
	return cfg, nil
}

// Run starts the MCP protocol adapter.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMCP, func(ctx context.Context) error {
		return service.Run(ctx, service.Config{
			GRPCAddr:  cfg.Addr,
			HTTPAddr:  cfg.HTTPAddr,
			Transport: service.TransportKind(cfg.Transport),
			UserID:    cfg.UserID,
		})
	})
}
