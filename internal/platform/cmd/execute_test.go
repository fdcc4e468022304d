package cmd

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"log"
	"strings"
	"testing"
)

type executeConfig struct {
	Table string
}

func parseExecuteConfig(fs *flag.FlagSet, args []string) (executeConfig, error) {
	cfg := executeConfig{Table: "harbor"}
	fs.SetOutput(&bytes.Buffer{})
	fs.StringVar(&cfg.Table, "table", cfg.Table, "table name")
	return cfg, fs.Parse(args)
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevPrefix, prevFlags := log.Writer(), log.Prefix(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prevOut)
		log.SetPrefix(prevPrefix)
		log.SetFlags(prevFlags)
	})
	return &buf
}

func TestExecuteRunsParsedConfig(t *testing.T) {
	captureLog(t)
	var got executeConfig
	code := Execute(ServiceScenario, []string{"-table", "lighthouse"}, parseExecuteConfig, func(_ context.Context, cfg executeConfig) error {
		got = cfg
		return nil
	})
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if got.Table != "lighthouse" {
		t.Fatalf("expected flag to reach run, got %q", got.Table)
	}
}

func TestExecuteReportsRunFailure(t *testing.T) {
	logs := captureLog(t)
	code := Execute(ServiceGame, nil, parseExecuteConfig, func(context.Context, executeConfig) error {
		return errors.New("listener closed")
	})
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(logs.String(), "[GAME] game stopped: listener closed") {
		t.Fatalf("unexpected log %q", logs.String())
	}
}

func TestExecuteReportsBadFlags(t *testing.T) {
	logs := captureLog(t)
	called := false
	code := Execute(ServiceMCP, []string{"-seats", "4"}, parseExecuteConfig, func(context.Context, executeConfig) error {
		called = true
		return nil
	})
	if code != 2 || called {
		t.Fatalf("expected exit code 2 without running, got %d (ran=%t)", code, called)
	}
	if !strings.Contains(logs.String(), "[MCP] parse flags") {
		t.Fatalf("unexpected log %q", logs.String())
	}
}
