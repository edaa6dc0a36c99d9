// Package trader runs the trading loop: it takes a market snapshot every
// cycle, asks the strategy engine for a decision and executes it.
package trader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rustyeddy/spotbot/broker"
	"github.com/rustyeddy/spotbot/internal/id"
	"github.com/rustyeddy/spotbot/journal"
	"github.com/rustyeddy/spotbot/market"
	"github.com/rustyeddy/spotbot/metrics"
	"github.com/rustyeddy/spotbot/notify"
	"github.com/rustyeddy/spotbot/risk"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ErrInsufficientFunds means an order was not attempted because the free
// balance could not cover it.
var ErrInsufficientFunds = errors.New("insufficient funds")

type ExecutorConfig struct {
	Exchange   broker.Exchange
	Instrument market.Instrument
	// TradeAmountQuote is the quote currency spent on every buy.
	TradeAmountQuote decimal.Decimal

	Log      logrus.FieldLogger
	Notifier notify.Notifier
	Journal  journal.Journal
	Metrics  *metrics.Metrics
}

// Executor sizes and submits market orders for a single instrument.
type Executor struct {
	ex        broker.Exchange
	inst      market.Instrument
	precision int32
	amount    decimal.Decimal

	log      logrus.FieldLogger
	notifier notify.Notifier
	journal  journal.Journal
	metrics  *metrics.Metrics
}

func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if cfg.Exchange == nil {
		return nil, errors.New("executor: exchange is required")
	}
	if !cfg.TradeAmountQuote.IsPositive() {
		return nil, fmt.Errorf("executor: trade amount must be positive, got %s", cfg.TradeAmountQuote)
	}
	if !cfg.Instrument.StepSize.IsPositive() {
		return nil, fmt.Errorf("executor: %s has no step size", cfg.Instrument.Symbol)
	}
	e := &Executor{
		ex:        cfg.Exchange,
		inst:      cfg.Instrument,
		precision: cfg.Instrument.Precision(),
		amount:    cfg.TradeAmountQuote,
		log:       cfg.Log,
		notifier:  cfg.Notifier,
		journal:   cfg.Journal,
		metrics:   cfg.Metrics,
	}
	if e.log == nil {
		e.log = logrus.StandardLogger()
	}
	if e.notifier == nil {
		e.notifier = notify.Nop{}
	}
	if e.journal == nil {
		e.journal = journal.Nop{}
	}
	return e, nil
}

// Precision is the number of decimals order quantities are rounded to.
func (e *Executor) Precision() int32 { return e.precision }

// BuyQuantity is the base quantity a buy at price would request.
func (e *Executor) BuyQuantity(price decimal.Decimal) decimal.Decimal {
	return risk.BuyQuantity(e.precision, e.amount, price)
}

// SellQuantity rounds baseFree to the instrument precision without ever
// exceeding it.
func (e *Executor) SellQuantity(baseFree decimal.Decimal) decimal.Decimal {
	return risk.SellQuantity(e.precision, baseFree)
}

// Buy spends the configured quote amount at market.
func (e *Executor) Buy(ctx context.Context, snap market.Snapshot) (broker.OrderFill, error) {
	dec := risk.CheckBuy(e.inst, e.precision, e.amount, snap.Price, snap.QuoteFree)
	if err := e.preflight(ctx, broker.SideBuy, snap, dec); err != nil {
		return broker.OrderFill{}, err
	}

	fill, err := e.ex.MarketBuy(ctx, e.inst.Symbol, dec.Quantity)
	if err != nil {
		return broker.OrderFill{}, e.failed(ctx, broker.SideBuy, err)
	}
	fill = e.complete(fill, broker.SideBuy, dec.Quantity, snap)

	msg := fmt.Sprintf("✅ Bought $%s %s at $%s (~%s %s)",
		e.amount, e.inst.BaseAsset, market.FormatUSD(fill.Price), fill.Quantity, e.inst.BaseAsset)
	e.succeeded(ctx, fill, msg)
	return fill, nil
}

// Sell liquidates the free base balance at market.
func (e *Executor) Sell(ctx context.Context, snap market.Snapshot) (broker.OrderFill, error) {
	dec := risk.CheckSell(e.inst, e.precision, snap.Price, snap.BaseFree)
	if err := e.preflight(ctx, broker.SideSell, snap, dec); err != nil {
		return broker.OrderFill{}, err
	}

	fill, err := e.ex.MarketSell(ctx, e.inst.Symbol, dec.Quantity)
	if err != nil {
		return broker.OrderFill{}, e.failed(ctx, broker.SideSell, err)
	}
	fill = e.complete(fill, broker.SideSell, dec.Quantity, snap)

	msg := fmt.Sprintf("✅ Sold %s %s at $%s", fill.Quantity, e.inst.BaseAsset, market.FormatUSD(fill.Price))
	e.succeeded(ctx, fill, msg)
	return fill, nil
}

// preflight turns a refused decision into an error. Missing funds are a
// warning only; any other violation is an execution failure.
func (e *Executor) preflight(ctx context.Context, side broker.Side, snap market.Snapshot, dec risk.Decision) error {
	if dec.Allowed {
		return nil
	}
	if !dec.Has(risk.CodeInsufficientFunds) {
		return e.failed(ctx, side, dec.Err())
	}
	if side == broker.SideBuy {
		e.log.Warnf("⚠️ Insufficient %s balance to buy: have %s, need %s", e.inst.QuoteAsset, snap.QuoteFree, e.amount)
	} else {
		e.log.Warnf("⚠️ No %s balance to sell", e.inst.BaseAsset)
	}
	e.metrics.Order(sideLabel(side), "skipped")
	return fmt.Errorf("%s %s: %w", sideLabel(side), e.inst.Symbol, ErrInsufficientFunds)
}

// complete fills in what the exchange left out of its report.
func (e *Executor) complete(fill broker.OrderFill, side broker.Side, qty decimal.Decimal, snap market.Snapshot) broker.OrderFill {
	if fill.Symbol == "" {
		fill.Symbol = e.inst.Symbol
	}
	if fill.Side == "" {
		fill.Side = side
	}
	if !fill.Quantity.IsPositive() {
		fill.Quantity = qty
	}
	if !fill.Price.IsPositive() {
		fill.Price = snap.Price
	}
	if fill.Time.IsZero() {
		fill.Time = snap.Time
	}
	return fill
}

func (e *Executor) succeeded(ctx context.Context, fill broker.OrderFill, msg string) {
	side := sideLabel(fill.Side)
	e.log.WithFields(logrus.Fields{
		"order_id": fill.OrderID,
		"side":     side,
	}).Info(msg)
	notify.Try(ctx, e.log, e.notifier, msg)
	e.metrics.Order(side, "filled")

	if err := e.journal.RecordTrade(journal.FromFill(id.NewAt(fill.Time), fill)); err != nil {
		e.log.Warnf("⚠️ Could not journal %s: %v", side, err)
	}
}

func (e *Executor) failed(ctx context.Context, side broker.Side, err error) error {
	op := "Buy"
	if side == broker.SideSell {
		op = "Sell"
	}
	msg := fmt.Sprintf("❌ %s error: %v", op, err)
	e.log.Error(msg)
	notify.Try(ctx, e.log, e.notifier, msg)

	result := "error"
	if broker.IsRejected(err) {
		result = "rejected"
	}
	e.metrics.Order(sideLabel(side), result)
	return fmt.Errorf("%s %s: %w", sideLabel(side), e.inst.Symbol, err)
}

func sideLabel(s broker.Side) string {
	return strings.ToLower(string(s))
}
