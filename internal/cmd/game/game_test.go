package game

import (
	"flag"
	"testing"
	"time"
)

func parse(t *testing.T, args ...string) Config {
	t.Helper()
	cfg, err := ParseConfig(flag.NewFlagSet("game", flag.ContinueOnError), args)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	return cfg
}

func TestParseConfigDefaults(t *testing.T) {
	cfg := parse(t)
	want := Config{
		Addr:            "localhost:8080",
		WSAddr:          "localhost:8090",
		DBPath:          "data/game.db",
		TokenTTL:        168 * time.Hour,
		CallsPerSecond:  20,
		CallBurst:       40,
		FramesPerSecond: 10,
		FrameBurst:      20,
		RelayInterval:   500 * time.Millisecond,
	}
	if cfg != want {
		t.Fatalf("expected %+v, got %+v", want, cfg)
	}
}

func TestParseConfigFlagsOverEnv(t *testing.T) {
	t.Setenv("STORYDECK_GAME_DB_PATH", "/var/lib/storydeck/game.db")
	t.Setenv("STORYDECK_GAME_TOKEN_SECRET", "from-env")
	t.Setenv("STORYDECK_GAME_CALL_BURST", "5")

	cfg := parse(t, "-addr", "127.0.0.1:9999", "-token-secret", "from-flag", "-db", "")
	if cfg.Addr != "127.0.0.1:9999" {
		t.Fatalf("expected flag addr, got %q", cfg.Addr)
	}
	if cfg.TokenSecret != "from-flag" {
		t.Fatalf("expected flag secret to win, got %q", cfg.TokenSecret)
	}
	if cfg.DBPath != "" {
		t.Fatalf("expected empty db path to select memory storage, got %q", cfg.DBPath)
	}
	if cfg.CallBurst != 5 {
		t.Fatalf("expected env call burst, got %d", cfg.CallBurst)
	}
}

func TestParseConfigRejectsBadEnv(t *testing.T) {
	t.Setenv("STORYDECK_GAME_TOKEN_TTL", "a week")
	if _, err := ParseConfig(flag.NewFlagSet("game", flag.ContinueOnError), nil); err == nil {
		t.Fatal("expected token ttl parse error")
	}
}
