// Package scenario parses scenario command flags and runs a Lua script
// against a game server.
package scenario

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"time"

	entrypoint "github.com/louisbranch/storydeck/internal/platform/cmd"
	"github.com/louisbranch/storydeck/internal/tools/scenario"
)

// Config holds scenario command configuration. Environment names carry the
// STORYDECK_ prefix.
type Config struct {
	GRPCAddr   string        `env:"GAME_ADDR"         envDefault:"localhost:8080"`
	Scenario   string        `env:"SCENARIO_FILE"`
	Assertions bool          `env:"SCENARIO_ASSERT"   envDefault:"true"`
	Verbose    bool          `env:"SCENARIO_VERBOSE"`
	Timeout    time.Duration `env:"SCENARIO_TIMEOUT"  envDefault:"10s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	return entrypoint.LoadConfig(fs, args, func(cfg *Config, fs *flag.FlagSet) {
		fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "game server address")
		fs.StringVar(&cfg.Scenario, "scenario", cfg.Scenario, "path to scenario lua file")
		fs.BoolVar(&cfg.Assertions, "assert", cfg.Assertions, "enable assertions (disable to log expectations)")
		fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable verbose logging")
		fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "timeout per step")
	})
}

// Run executes the scenario command.
func Run(ctx context.Context, cfg Config, errOut io.Writer) error {
	if errOut == nil {
		errOut = io.Discard
	}
	if cfg.Scenario == "" {
		return errors.New("scenario path is required")
	}

	mode := scenario.AssertionStrict
	if !cfg.Assertions {
		mode = scenario.AssertionLogOnly
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceScenario, func(ctx context.Context) error {
		return scenario.RunFile(ctx, scenario.Config{
			GRPCAddr:   cfg.GRPCAddr,
			Timeout:    cfg.Timeout,
			Assertions: mode,
			Verbose:    cfg.Verbose,
			Logger:     log.New(errOut, "", 0),
		}, cfg.Scenario)
	})
}
