package mcp

import (
	"flag"
	"strings"
	"testing"
)

func parse(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	fs.SetOutput(&strings.Builder{})
	return ParseConfig(fs, args)
}

func TestParseConfigDefaultsToStdio(t *testing.T) {
	cfg, err := parse(t)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	want := Config{Addr: "localhost:8080", HTTPAddr: "localhost:8081", Transport: "stdio"}
	if cfg != want {
		t.Fatalf("expected %+v, got %+v", want, cfg)
	}
}

func TestParseConfigLayersFlagsOverEnv(t *testing.T) {
	t.Setenv("STORYDECK_GAME_ADDR", "game.internal:8080")
	t.Setenv("STORYDECK_MCP_USER_ID", "narrator")
	t.Setenv("STORYDECK_MCP_TRANSPORT", "stdio")

	cfg, err := parse(t, "-transport", " HTTP ", "-http-addr", ":9000")
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Addr != "game.internal:8080" || cfg.UserID != "narrator" {
		t.Fatalf("expected env values, got %+v", cfg)
	}
	if cfg.Transport != "http" || cfg.HTTPAddr != ":9000" {
		t.Fatalf("expected flag values, got %+v", cfg)
	}
}

func TestParseConfigRejectsUnknownTransport(t *testing.T) {
	_, err := parse(t, "-transport", "sse")
	if err == nil || !strings.Contains(err.Error(), `"sse"`) {
		t.Fatalf("expected transport error, got %v", err)
	}
}
