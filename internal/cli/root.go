// Package cli implements the hindsight command-line interface.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "hindsight",
	Short: "Knowledge store for decisions made under uncertainty",
	Long: `hindsight - remember why, forget what.

Tracks units of work (cases), moments where reality diverged from
expectation (pressure events), and the compressed rules promoted from
them (foundations). Served to AI coding tools over MCP stdio transport.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	// HINDSIGHT_HOME, HINDSIGHT_JOURNAL, etc.
	viper.SetEnvPrefix("hindsight")
	viper.AutomaticEnv()
}
