package trader

import (
	"context"
	"errors"
	"fmt"

	"github.com/rustyeddy/spotbot/broker"
	"github.com/rustyeddy/spotbot/journal"
	"github.com/rustyeddy/spotbot/market"
	"github.com/rustyeddy/spotbot/notify"
	"github.com/rustyeddy/spotbot/strategy"
	"github.com/rustyeddy/spotbot/tradelog"
	"github.com/sirupsen/logrus"
)

const (
	SourceLog     = "log"
	SourceJournal = "journal"
)

type RecoveryConfig struct {
	// Source is SourceLog (default) or SourceJournal.
	Source  string
	LogPath string
	Journal journal.Reader

	// Reconcile drops a recovered position when the exchange shows no base
	// balance to sell.
	Reconcile  bool
	Exchange   broker.Exchange
	Instrument market.Instrument

	Log      logrus.FieldLogger
	Notifier notify.Notifier
}

// Recover rebuilds the trading state at startup. It never fails: anything
// it cannot read yields an empty state.
func Recover(ctx context.Context, cfg RecoveryConfig) strategy.State {
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	var s strategy.State
	switch cfg.Source {
	case SourceJournal:
		s = fromJournal(cfg.Journal, log)
	default:
		s = fromLog(cfg.LogPath, log)
	}

	if cfg.Reconcile && s.IsHolding() && cfg.Exchange != nil {
		s = reconcile(ctx, cfg, s, log)
	}
	return s
}

func fromLog(path string, log logrus.FieldLogger) strategy.State {
	s := tradelog.RecoverState(path, log)
	if !s.IsHolding() {
		log.Info("📂 No previous trade found in log.")
		return s
	}
	log.Infof("📂 Recovered last trade price from log: $%s", s.LastTradeString())
	return s
}

func fromJournal(j journal.Reader, log logrus.FieldLogger) strategy.State {
	if j == nil {
		log.Warn("⚠️ No journal configured for recovery")
		return strategy.State{}
	}
	rec, err := j.LastTrade("")
	switch {
	case errors.Is(err, journal.ErrNotFound):
		log.Info("📂 No previous trade found in journal.")
		return strategy.State{}
	case err != nil:
		log.Warnf("⚠️ Could not recover last trade from journal: %v", err)
		return strategy.State{}
	}

	action := strategy.ActionBuy
	if rec.Side == broker.SideSell {
		action = strategy.ActionSell
	}
	var s strategy.State
	s.Apply(action, rec.Price)
	if err := s.Validate(); err != nil {
		log.Warnf("⚠️ Ignoring journal trade %s: %v", rec.TradeID, err)
		return strategy.State{}
	}
	log.Infof("📂 Recovered last trade from journal: %s at $%s", action, rec.Price)
	return s
}

// reconcile trusts the exchange over the recovered state: a position with no
// sellable base balance is dropped. If the balance cannot be read the
// recovered state stands.
func reconcile(ctx context.Context, cfg RecoveryConfig, s strategy.State, log logrus.FieldLogger) strategy.State {
	base, err := cfg.Exchange.GetFreeBalance(ctx, cfg.Instrument.BaseAsset)
	if err != nil {
		log.Warnf("⚠️ Could not verify %s balance, keeping recovered state: %v", cfg.Instrument.BaseAsset, err)
		return s
	}
	if market.RoundQuantity(base, cfg.Instrument.Precision()).IsPositive() {
		return s
	}

	msg := fmt.Sprintf("⚠️ Recovered a buy at $%s but the %s balance is %s; starting without a position",
		s.LastTradeString(), cfg.Instrument.BaseAsset, base)
	log.Warn(msg)
	notify.Try(ctx, log, cfg.Notifier, msg)
	return strategy.State{}
}
