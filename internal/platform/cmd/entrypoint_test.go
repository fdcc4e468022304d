package cmd

import (
	"context"
	"errors"
	"flag"
	"testing"
)

type tableConfig struct {
	Addr  string `env:"CMD_TEST_ADDR"  envDefault:"127.0.0.1:8080"`
	Seats int    `env:"CMD_TEST_SEATS" envDefault:"4"`
}

func bindTable(cfg *tableConfig, fs *flag.FlagSet) {
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.IntVar(&cfg.Seats, "seats", cfg.Seats, "seat count")
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(flag.NewFlagSet("table", flag.ContinueOnError), nil, bindTable)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Addr != "127.0.0.1:8080" || cfg.Seats != 4 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("STORYDECK_CMD_TEST_ADDR", "env:9000")
	t.Setenv("STORYDECK_CMD_TEST_SEATS", "6")

	cfg, err := LoadConfig(flag.NewFlagSet("table", flag.ContinueOnError), []string{"-seats", "3"}, bindTable)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Addr != "env:9000" {
		t.Fatalf("expected env addr, got %q", cfg.Addr)
	}
	if cfg.Seats != 3 {
		t.Fatalf("expected flag seats, got %d", cfg.Seats)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig[tableConfig](nil, nil, bindTable); err == nil {
		t.Fatal("expected missing flag set error")
	}

	t.Setenv("STORYDECK_CMD_TEST_SEATS", "many")
	if _, err := LoadConfig(flag.NewFlagSet("table", flag.ContinueOnError), nil, bindTable); err == nil {
		t.Fatal("expected env parse error")
	}
}

func TestRunWithTelemetry(t *testing.T) {
	t.Setenv("STORYDECK_OTEL_ENABLED", "false")

	if err := RunWithTelemetry(context.Background(), " ", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected missing service error")
	}
	if err := RunWithTelemetry(context.Background(), ServiceGame, nil); err == nil {
		t.Fatal("expected missing run function error")
	}

	sentinel := errors.New("table closed")
	err := RunWithTelemetry(context.Background(), ServiceGame, func(context.Context) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected run error to propagate, got %v", err)
	}
}
