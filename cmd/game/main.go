// Command game serves the storytelling session engine over gRPC.
package main

import (
	"os"

	gamecmd "github.com/louisbranch/storydeck/internal/cmd/game"
	"github.com/louisbranch/storydeck/internal/platform/cmd"
)

func main() {
	os.Exit(cmd.Execute(cmd.ServiceGame, os.Args[1:], gamecmd.ParseConfig, gamecmd.Run))
}
