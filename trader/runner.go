package trader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/spotbot/broker"
	"github.com/rustyeddy/spotbot/market"
	"github.com/rustyeddy/spotbot/metrics"
	"github.com/rustyeddy/spotbot/notify"
	"github.com/rustyeddy/spotbot/strategy"
	"github.com/rustyeddy/spotbot/tradelog"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ExecutionError is a cycle failure caused by an order that was attempted
// and did not go through. The executor has already reported it.
type ExecutionError struct {
	Action strategy.Action
	Err    error
}

func (e *ExecutionError) Error() string { return fmt.Sprintf("%s failed: %v", e.Action, e.Err) }
func (e *ExecutionError) Unwrap() error { return e.Err }

type RunnerConfig struct {
	Exchange   broker.Exchange
	Instrument market.Instrument
	Engine     *strategy.Engine
	Executor   *Executor
	// Initial is the recovered state.
	Initial strategy.State

	PollInterval time.Duration
	// BackoffMax caps the delay after consecutive failed cycles. Zero keeps
	// the delay fixed.
	BackoffMax time.Duration

	Name     string
	Log      logrus.FieldLogger
	Notifier notify.Notifier
	Metrics  *metrics.Metrics
}

// Runner owns the trading state and runs cycles one after another.
type Runner struct {
	ex       broker.Exchange
	inst     market.Instrument
	engine   *strategy.Engine
	exec     *Executor
	state    strategy.State
	interval time.Duration
	maxDelay time.Duration
	name     string

	log      logrus.FieldLogger
	notifier notify.Notifier
	metrics  *metrics.Metrics

	failures int

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Exchange == nil || cfg.Engine == nil || cfg.Executor == nil {
		return nil, errors.New("runner: exchange, engine and executor are required")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("runner: poll interval must be positive, got %s", cfg.PollInterval)
	}
	if err := cfg.Initial.Validate(); err != nil {
		return nil, fmt.Errorf("runner: initial state: %w", err)
	}
	r := &Runner{
		ex:       cfg.Exchange,
		inst:     cfg.Instrument,
		engine:   cfg.Engine,
		exec:     cfg.Executor,
		state:    cfg.Initial,
		interval: cfg.PollInterval,
		maxDelay: cfg.BackoffMax,
		name:     cfg.Name,
		log:      cfg.Log,
		notifier: cfg.Notifier,
		metrics:  cfg.Metrics,
		now:      time.Now,
		sleep:    sleepCtx,
	}
	if r.name == "" {
		r.name = "Spot bot"
	}
	if r.log == nil {
		r.log = logrus.StandardLogger()
	}
	if r.notifier == nil {
		r.notifier = notify.Nop{}
	}
	return r, nil
}

// State returns the current trading state.
func (r *Runner) State() strategy.State { return r.state }

// Failures is the number of consecutive failed cycles.
func (r *Runner) Failures() int { return r.failures }

// Cycle runs one evaluation: snapshot, decide, execute, log status.
func (r *Runner) Cycle(ctx context.Context) error {
	snap, err := TakeSnapshot(ctx, r.ex, r.inst, r.now())
	if err != nil {
		return err
	}
	r.metrics.Price(snap.Price)

	action := r.engine.Decide(r.state, snap.Price)
	var execErr error
	switch action {
	case strategy.ActionBuy:
		execErr = r.execute(ctx, action, snap, r.exec.Buy)
	case strategy.ActionSell:
		execErr = r.execute(ctx, action, snap, r.exec.Sell)
	}

	r.log.Info(tradelog.StatusLine(snap.Price, r.state))
	r.metrics.Position(r.state.IsHolding(), r.state.LastTradePrice)
	return execErr
}

func (r *Runner) execute(ctx context.Context, action strategy.Action, snap market.Snapshot,
	do func(context.Context, market.Snapshot) (broker.OrderFill, error)) error {
	fill, err := do(ctx, snap)
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		return nil
	case err != nil:
		return &ExecutionError{Action: action, Err: err}
	}
	r.state.Apply(action, fill.Price)
	return nil
}

// Run announces itself and cycles until ctx is cancelled. A failed cycle is
// logged and reported, and the loop carries on after the delay.
func (r *Runner) Run(ctx context.Context) error {
	banner := fmt.Sprintf("🤖 %s started — trading %s on %s%% dips and %s%% pumps",
		r.name, r.inst.Symbol, percent(r.engine.BuyDip), percent(r.engine.SellPump))
	r.log.Info(banner)
	notify.Try(ctx, r.log, r.notifier, banner)

	for {
		err := r.Cycle(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.record(ctx, err)

		if err := r.sleep(ctx, r.delay()); err != nil {
			return err
		}
	}
}

func (r *Runner) record(ctx context.Context, err error) {
	if err == nil {
		r.failures = 0
		r.metrics.Cycle(true, 0)
		return
	}
	r.failures++
	r.metrics.Cycle(false, r.failures)

	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return
	}
	msg := fmt.Sprintf("❌ Main loop error: %v", err)
	r.log.WithField("consecutive_failures", r.failures).Error(msg)
	notify.Try(ctx, r.log, r.notifier, msg)
}

// delay is the poll interval, doubled for every consecutive failure up to
// the backoff cap when one is set.
func (r *Runner) delay() time.Duration {
	if r.failures == 0 || r.maxDelay <= r.interval {
		return r.interval
	}
	d := r.interval
	for i := 0; i < r.failures && d < r.maxDelay; i++ {
		d *= 2
	}
	if d > r.maxDelay {
		d = r.maxDelay
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var hundred = decimal.NewFromInt(100)

func percent(f decimal.Decimal) string {
	return f.Mul(hundred).String()
}
