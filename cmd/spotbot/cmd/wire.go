package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/spotbot/broker"
	"github.com/rustyeddy/spotbot/broker/binance"
	"github.com/rustyeddy/spotbot/broker/paper"
	"github.com/rustyeddy/spotbot/config"
	"github.com/rustyeddy/spotbot/journal"
	"github.com/rustyeddy/spotbot/market"
	"github.com/rustyeddy/spotbot/metrics"
	"github.com/rustyeddy/spotbot/notify"
	"github.com/rustyeddy/spotbot/strategy"
	"github.com/rustyeddy/spotbot/trader"
	"github.com/sirupsen/logrus"
)

func newExchange(cfg *config.Config) (broker.Exchange, error) {
	switch cfg.Exchange.Name {
	case "paper":
		inst, ok := market.Instruments[cfg.Exchange.Symbol]
		if !ok {
			return nil, fmt.Errorf("unknown paper instrument: %s", cfg.Exchange.Symbol)
		}
		p := cfg.Exchange.Paper
		return paper.New(inst, p.Price, p.QuoteBalance, p.BaseBalance), nil
	case "binance":
		return binance.NewClient(binance.Config{
			BaseURL:    cfg.Exchange.BaseURL,
			APIKey:     cfg.Exchange.APIKey,
			APISecret:  cfg.Exchange.APISecret,
			RecvWindow: time.Duration(cfg.Exchange.RecvWindowMS) * time.Millisecond,
		}), nil
	}
	return nil, fmt.Errorf("unknown exchange: %s", cfg.Exchange.Name)
}

func newNotifier(cfg *config.Config, log logrus.FieldLogger) notify.Notifier {
	tg := cfg.Notify.Telegram
	if !tg.Enabled() {
		log.Warn("Telegram credentials missing. Notifications are disabled.")
		return notify.Nop{}
	}
	return notify.NewTelegram(tg.BotToken, tg.ChatID, tg.Proxy)
}

// openJournal returns the configured journal and, for sqlite, its reader.
func openJournal(cfg *config.Config) (journal.Journal, journal.Reader, error) {
	switch cfg.Journal.Type {
	case "csv":
		j, err := journal.NewCSV(cfg.Journal.TradesFile)
		if err != nil {
			return nil, nil, err
		}
		return j, nil, nil
	case "sqlite":
		j, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return j, j, nil
	}
	return journal.Nop{}, nil, nil
}

type agent struct {
	exchange broker.Exchange
	runner   *trader.Runner
	metrics  *metrics.Metrics
	journal  journal.Journal
}

func (a *agent) Close() error { return a.journal.Close() }

// buildAgent wires the exchange, notifier, journal and metrics, recovers the
// trading state and returns a runner ready to start.
func buildAgent(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*agent, error) {
	ex, err := newExchange(cfg)
	if err != nil {
		return nil, err
	}
	inst, err := ex.GetInstrument(ctx, cfg.Exchange.Symbol)
	if err != nil {
		return nil, fmt.Errorf("load instrument %s: %w", cfg.Exchange.Symbol, err)
	}
	log.WithFields(logrus.Fields{
		"exchange":  ex.Name(),
		"step":      inst.StepSize.String(),
		"precision": inst.Precision(),
	}).Infof("Trading %s", inst.Symbol)

	engine, err := strategy.NewEngine(cfg.Trading.BuyDipFraction, cfg.Trading.SellPumpFraction)
	if err != nil {
		return nil, err
	}

	n := newNotifier(cfg, log)
	j, reader, err := openJournal(cfg)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	m := metrics.New(nil)

	exec, err := trader.NewExecutor(trader.ExecutorConfig{
		Exchange:         ex,
		Instrument:       inst,
		TradeAmountQuote: cfg.Trading.TradeAmountQuote,
		Log:              log,
		Notifier:         n,
		Journal:          j,
		Metrics:          m,
	})
	if err != nil {
		_ = j.Close()
		return nil, err
	}

	state := trader.Recover(ctx, trader.RecoveryConfig{
		Source:     cfg.Recovery.Source,
		LogPath:    cfg.Log.File,
		Journal:    reader,
		Reconcile:  cfg.Recovery.Reconcile,
		Exchange:   ex,
		Instrument: inst,
		Log:        log,
		Notifier:   n,
	})
	m.Position(state.IsHolding(), state.LastTradePrice)

	runner, err := trader.NewRunner(trader.RunnerConfig{
		Exchange:     ex,
		Instrument:   inst,
		Engine:       engine,
		Executor:     exec,
		Initial:      state,
		PollInterval: cfg.Trading.PollInterval,
		BackoffMax:   cfg.Trading.BackoffMax,
		Log:          log,
		Notifier:     n,
		Metrics:      m,
	})
	if err != nil {
		_ = j.Close()
		return nil, err
	}
	return &agent{exchange: ex, runner: runner, metrics: m, journal: j}, nil
}
