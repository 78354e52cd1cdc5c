package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	hindsight "github.com/hindsight-mcp/hindsight/internal/server"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveJournal bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server (stdio transport)",
	Long: `Start the MCP server on stdio. Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "hindsight": {
        "command": "hindsight",
        "args": ["serve"]
      }
    }
  }`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveJournal, "journal", true, "record tool calls to the operation journal")
	_ = viper.BindPFlag("journal", serveCmd.Flags().Lookup("journal"))
}

func runServe(_ *cobra.Command, _ []string) error {
	s, cleanup, err := hindsight.New(viper.GetBool("journal"))
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Graceful shutdown on interrupt.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	_ = ctx // stdio server manages its own lifecycle

	return server.ServeStdio(s)
}
