// Package cmd holds what every storydeck command shares: config loading,
// tracing setup and process lifecycle.
package cmd

import (
	"context"
	"errors"
	"flag"
	"log"
	"strings"

	"github.com/louisbranch/storydeck/internal/platform/config"
	"github.com/louisbranch/storydeck/internal/platform/otel"
	"github.com/louisbranch/storydeck/internal/platform/timeouts"
)

// Service names, used for telemetry resources and log prefixes.
const (
	ServiceGame     = "game"
	ServiceMCP      = "mcp"
	ServiceScenario = "scenario"
)

// LoadConfig fills a T from STORYDECK_ environment variables, lets bind
// register flags defaulting to those values, then parses args. Flags win
// over the environment.
func LoadConfig[T any](fs *flag.FlagSet, args []string, bind func(*T, *flag.FlagSet)) (T, error) {
	var cfg T
	if fs == nil {
		return cfg, errors.New("flag set is required")
	}
	if err := config.ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	if bind != nil {
		bind(&cfg, fs)
	}
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// RunWithTelemetry runs fn with tracing configured for service and flushes
// spans once fn returns.
func RunWithTelemetry(ctx context.Context, service string, fn func(context.Context) error) error {
	service = strings.TrimSpace(service)
	switch {
	case service == "":
		return errors.New("service name is required")
	case fn == nil:
		return errors.New("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	shutdown, err := otel.Setup(ctx, service)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			log.Printf("flush %s traces: %v", service, err)
		}
	}()
	return fn(ctx)
}
