// Package game parses game command flags and starts the game server.
package game

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/louisbranch/storydeck/internal/platform/cmd"
	server "github.com/louisbranch/storydeck/internal/services/game/app"
)

// Config holds game command configuration. Environment names carry the
// STORYDECK_ prefix.
type Config struct {
	Addr            string        `env:"GAME_ADDR"              envDefault:"localhost:8080"`
	WSAddr          string        `env:"GAME_WS_ADDR"           envDefault:"localhost:8090"`
	DBPath          string        `env:"GAME_DB_PATH"           envDefault:"data/game.db"`
	TokenSecret     string        `env:"GAME_TOKEN_SECRET"`
	TokenTTL        time.Duration `env:"GAME_TOKEN_TTL"         envDefault:"168h"`
	CallsPerSecond  float64       `env:"GAME_CALLS_PER_SECOND"  envDefault:"20"`
	CallBurst       int           `env:"GAME_CALL_BURST"        envDefault:"40"`
	FramesPerSecond float64       `env:"GAME_FRAMES_PER_SECOND" envDefault:"10"`
	FrameBurst      int           `env:"GAME_FRAME_BURST"       envDefault:"20"`
	RelayInterval   time.Duration `env:"GAME_RELAY_INTERVAL"    envDefault:"500ms"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	return entrypoint.LoadConfig(fs, args, func(cfg *Config, fs *flag.FlagSet) {
		fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The game gRPC listen address")
		fs.StringVar(&cfg.WSAddr, "ws-addr", cfg.WSAddr, "The websocket notification listen address")
		fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path (empty keeps sessions in memory)")
		fs.StringVar(&cfg.TokenSecret, "token-secret", cfg.TokenSecret, "Secret used to sign player tokens")
		fs.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "Lifetime of player tokens")
	})
}

// Run starts the game server.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceGame, func(ctx context.Context) error {
		return server.Run(ctx, server.Config{
			GRPCAddr:        cfg.Addr,
			WSAddr:          cfg.WSAddr,
			DBPath:          cfg.DBPath,
			TokenSecret:     cfg.TokenSecret,
			TokenTTL:        cfg.TokenTTL,
			CallsPerSecond:  cfg.CallsPerSecond,
			CallBurst:       cfg.CallBurst,
			FramesPerSecond: cfg.FramesPerSecond,
			FrameBurst:      cfg.FrameBurst,
			RelayInterval:   cfg.RelayInterval,
		})
	})
}
