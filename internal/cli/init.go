package cli

import (
	"fmt"
	"os"

	"github.com/hindsight-mcp/hindsight/internal/knowledge"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a knowledge layer in the current directory",
	Long: `Create a .hindsight layer in the current directory, making it a
project root for case tracking. Safe to run on an existing layer.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, _ []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	h, err := knowledge.Init(dir)
	if err != nil {
		return fmt.Errorf("initializing layer: %w", err)
	}

	for _, layer := range h.Layers() {
		fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s (%s)\n", layer.Scope(), layer.Path(), layer.Project())
	}
	return nil
}
