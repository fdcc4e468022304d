// Command scenario plays a Lua scenario script against a running game server.
package main

import (
	"context"
	"os"

	scenariocmd "github.com/louisbranch/storydeck/internal/cmd/scenario"
	"github.com/louisbranch/storydeck/internal/platform/cmd"
)

func main() {
	run := func(ctx context.Context, cfg scenariocmd.Config) error {
		return scenariocmd.Run(ctx, cfg, os.Stderr)
	}
	os.Exit(cmd.Execute(cmd.ServiceScenario, os.Args[1:], scenariocmd.ParseConfig, run))
}
