package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rustyeddy/spotbot/config"
	"github.com/rustyeddy/spotbot/logging"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the trading agent",
	Long: `Start the agent and trade until interrupted.

Settings come from the config file, a .env file in the working directory
and environment variables such as BINANCE_API_KEY and TELEGRAM_BOT_TOKEN.

Example:
  spotbot run -f spotbot.yaml`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.CheckCredentials(); err != nil {
		return err
	}

	log, closer, err := logging.New(logging.Options{File: cfg.Log.File, Level: cfg.Log.Level})
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildAgent(ctx, cfg, log)
	if err != nil {
		log.Errorf("❌ Startup error: %v", err)
		return err
	}
	defer a.Close()

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := a.metrics.Serve(ctx, cfg.Metrics.Addr, log); err != nil {
				log.Errorf("metrics server: %v", err)
			}
		}()
	}

	err = a.runner.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("🛑 Stopped")
		return nil
	}
	return err
}
