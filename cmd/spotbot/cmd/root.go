package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "spotbot",
	Short: "An unattended dip/pump spot trading agent",
	Long: `Spotbot polls the spot price of a single instrument and alternates between
buying on a dip and selling on a pump, relative to the last executed trade.

It provides commands for:
  - Running the agent against Binance or an in-memory paper exchange
  - Previewing the state recovered from the event log or journal
  - Generating and validating configuration files
  - Querying the trade journal`,
	SilenceUsage: true,
}

var cfgPath string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "f", "", "path to config file (YAML or JSON)")
}
