// Command mcp exposes game sessions as MCP tools over stdio or HTTP.
package main

import (
	"os"

	mcpcmd "github.com/louisbranch/storydeck/internal/cmd/mcp"
	"github.com/louisbranch/storydeck/internal/platform/cmd"
)

func main() {
	os.Exit(cmd.Execute(cmd.ServiceMCP, os.Args[1:], mcpcmd.ParseConfig, mcpcmd.Run))
}
