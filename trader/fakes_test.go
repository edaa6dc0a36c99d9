package trader

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rustyeddy/spotbot/broker"
	"github.com/rustyeddy/spotbot/journal"
	"github.com/rustyeddy/spotbot/logging"
	"github.com/rustyeddy/spotbot/market"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var btc = market.Instrument{
	Symbol:     "BTCUSDT",
	BaseAsset:  "BTC",
	QuoteAsset: "USDT",
	StepSize:   d("0.00001"),
}

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeExchange reports a fixed price and balances and records orders. A
// zero fillPrice mimics an exchange that reports no execution price.
type fakeExchange struct {
	price      decimal.Decimal
	quote      decimal.Decimal
	base       decimal.Decimal
	fillPrice  decimal.Decimal
	priceErr   error
	balanceErr error
	buyErr     error
	sellErr    error

	buys  []decimal.Decimal
	sells []decimal.Decimal
}

func (f *fakeExchange) Name() string { return "fake" }

func (f *fakeExchange) GetPrice(context.Context, string) (decimal.Decimal, error) {
	return f.price, f.priceErr
}

func (f *fakeExchange) GetFreeBalance(_ context.Context, asset string) (decimal.Decimal, error) {
	if f.balanceErr != nil {
		return decimal.Zero, f.balanceErr
	}
	if asset == btc.BaseAsset {
		return f.base, nil
	}
	return f.quote, nil
}

func (f *fakeExchange) GetInstrument(context.Context, string) (market.Instrument, error) {
	return btc, nil
}

func (f *fakeExchange) MarketBuy(_ context.Context, symbol string, qty decimal.Decimal) (broker.OrderFill, error) {
	f.buys = append(f.buys, qty)
	if f.buyErr != nil {
		return broker.OrderFill{}, f.buyErr
	}
	return broker.OrderFill{OrderID: "b1", Symbol: symbol, Side: broker.SideBuy, Quantity: qty, Price: f.fillPrice}, nil
}

func (f *fakeExchange) MarketSell(_ context.Context, symbol string, qty decimal.Decimal) (broker.OrderFill, error) {
	f.sells = append(f.sells, qty)
	if f.sellErr != nil {
		return broker.OrderFill{}, f.sellErr
	}
	return broker.OrderFill{OrderID: "s1", Symbol: symbol, Side: broker.SideSell, Quantity: qty, Price: f.fillPrice}, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []string
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, text)
	return n.err
}

func (n *fakeNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

type memJournal struct {
	trades []journal.TradeRecord
}

func (j *memJournal) RecordTrade(t journal.TradeRecord) error {
	j.trades = append(j.trades, t)
	return nil
}

func (j *memJournal) Close() error { return nil }

// captureLog returns a logger writing event-log lines into a buffer.
func captureLog() (*logrus.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logging.LineFormatter{})
	return l, &buf
}

func newTestExecutor(t *testing.T, ex broker.Exchange, n *fakeNotifier, log logrus.FieldLogger, j journal.Journal) *Executor {
	t.Helper()
	e, err := NewExecutor(ExecutorConfig{
		Exchange:         ex,
		Instrument:       btc,
		TradeAmountQuote: d("20"),
		Log:              log,
		Notifier:         n,
		Journal:          j,
	})
	require.NoError(t, err)
	return e
}

func snapshot(price, quote, base string) market.Snapshot {
	return market.Snapshot{
		PriceSnapshot:   market.PriceSnapshot{Symbol: btc.Symbol, Price: d(price), Time: testTime},
		BalanceSnapshot: market.BalanceSnapshot{QuoteFree: d(quote), BaseFree: d(base)},
	}
}

func lines(buf *bytes.Buffer) []string {
	return strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
}
