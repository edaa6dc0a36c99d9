package cmd

import (
	"fmt"

	"github.com/rustyeddy/spotbot/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  spotbot config init -o spotbot.yaml
  spotbot config validate -f spotbot.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load a configuration file together with .env and environment overrides
and check that the result is valid.`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

var configInitOutput string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "spotbot.yaml", "output config file path")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(out, "\nEdit the file, export BINANCE_API_KEY and BINANCE_API_SECRET, and run with:")
	fmt.Fprintf(out, "  spotbot run -f %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	name := cfgPath
	if name == "" {
		name = "(defaults)"
	}
	fmt.Fprintf(out, "✓ Configuration valid: %s\n", name)
	fmt.Fprintf(out, "  Exchange: %s %s\n", cfg.Exchange.Name, cfg.Exchange.Symbol)
	fmt.Fprintf(out, "  Trading: $%s per buy, buy on -%s, sell on +%s, every %s\n",
		cfg.Trading.TradeAmountQuote, cfg.Trading.BuyDipFraction, cfg.Trading.SellPumpFraction, cfg.Trading.PollInterval)
	fmt.Fprintf(out, "  Event log: %s\n", cfg.Log.File)
	fmt.Fprintf(out, "  Journal: %s\n", cfg.Journal.Type)
	fmt.Fprintf(out, "  Telegram: %t\n", cfg.Notify.Telegram.Enabled())
	if err := cfg.CheckCredentials(); err != nil {
		fmt.Fprintf(out, "  ⚠️ %v\n", err)
	}
	return nil
}
