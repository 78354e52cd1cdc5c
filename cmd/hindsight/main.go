// Hindsight: a knowledge store MCP server.
//
// Tracks decisions made under uncertainty — cases, pressure events, and
// the foundations compressed from them — in file-backed layers with a
// per-project and a user-wide scope.
//
// Usage:
//
//	hindsight serve    # Start MCP server (stdio transport)
//	hindsight init     # Create a project layer in the current directory
package main

import (
	"os"

	"github.com/hindsight-mcp/hindsight/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
