package cmd

import (
	"fmt"

	"github.com/rustyeddy/spotbot/broker"
	"github.com/rustyeddy/spotbot/config"
	"github.com/rustyeddy/spotbot/journal"
	"github.com/rustyeddy/spotbot/logging"
	"github.com/rustyeddy/spotbot/market"
	"github.com/rustyeddy/spotbot/trader"
	"github.com/spf13/cobra"
)

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Show the state the agent would resume from",
	Long: `Run startup recovery without trading and print the resulting state.

Nothing is written to the event log. Balance reconciliation runs only when
exchange credentials are available.`,
	Args: cobra.NoArgs,
	RunE: runRecover,
}

func init() {
	rootCmd.AddCommand(recoverCmd)
}

func runRecover(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	out := cmd.OutOrStdout()
	log, _, err := logging.New(logging.Options{Level: cfg.Log.Level, Stdout: out})
	if err != nil {
		return err
	}

	rc := trader.RecoveryConfig{
		Source:  cfg.Recovery.Source,
		LogPath: cfg.Log.File,
		Log:     log,
	}

	if cfg.Recovery.Source == trader.SourceJournal {
		j, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer j.Close()
		rc.Journal = j
	}

	if cfg.Recovery.Reconcile && cfg.CheckCredentials() == nil {
		var ex broker.Exchange
		if ex, err = newExchange(cfg); err != nil {
			return err
		}
		var inst market.Instrument
		if inst, err = ex.GetInstrument(cmd.Context(), cfg.Exchange.Symbol); err != nil {
			log.Warnf("⚠️ Could not load %s, skipping reconciliation: %v", cfg.Exchange.Symbol, err)
		} else {
			rc.Reconcile = true
			rc.Exchange = ex
			rc.Instrument = inst
		}
	}

	s := trader.Recover(cmd.Context(), rc)
	fmt.Fprintf(out, "last_trade=%s action=%s holding=%t\n", s.LastTradeString(), s.LastAction, s.IsHolding())
	return nil
}
