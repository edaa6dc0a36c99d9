package trader

import (
	"context"
	"errors"
	"testing"

	"github.com/rustyeddy/spotbot/broker"
	"github.com/rustyeddy/spotbot/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExecutor_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewExecutor(ExecutorConfig{Instrument: btc, TradeAmountQuote: d("20")})
	assert.Error(t, err)

	_, err = NewExecutor(ExecutorConfig{Exchange: &fakeExchange{}, Instrument: btc})
	assert.Error(t, err)

	noStep := btc
	noStep.StepSize = d("0")
	_, err = NewExecutor(ExecutorConfig{Exchange: &fakeExchange{}, Instrument: noStep, TradeAmountQuote: d("20")})
	assert.Error(t, err)

	e, err := NewExecutor(ExecutorConfig{Exchange: &fakeExchange{}, Instrument: btc, TradeAmountQuote: d("20")})
	require.NoError(t, err)
	assert.Equal(t, int32(5), e.Precision())
}

func TestQuantities(t *testing.T) {
	t.Parallel()

	e := newTestExecutor(t, &fakeExchange{}, nil, logging.Discard(), nil)

	assert.Equal(t, "0.0004", e.BuyQuantity(d("50000")).String())
	assert.Equal(t, "0.00019", e.BuyQuantity(d("104523.12")).String())

	tests := []struct {
		base, want string
	}{
		{"0.0004", "0.0004"},
		{"0.000454", "0.00045"},
		{"0.000456", "0.00045"}, // rounding up would oversell
		{"1.234567891", "1.23456"},
		{"0.000004", "0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, e.SellQuantity(d(tt.base)).String(), "base %s", tt.base)
	}
}

func TestSizingUsesStoredPrecision(t *testing.T) {
	t.Parallel()

	ex := &fakeExchange{}
	e := newTestExecutor(t, ex, &fakeNotifier{}, logging.Discard(), nil)
	e.precision = 3

	assert.Equal(t, "0.001", e.SellQuantity(d("0.0012")).String())
	assert.Equal(t, "0", e.BuyQuantity(d("50000")).String())

	_, err := e.Sell(context.Background(), snapshot("52500", "0", "0.0123"))
	require.NoError(t, err)
	require.Len(t, ex.sells, 1)
	assert.Equal(t, "0.012", ex.sells[0].String())
}

func TestBuy_Success(t *testing.T) {
	t.Parallel()

	ex := &fakeExchange{}
	n := &fakeNotifier{}
	j := &memJournal{}
	log, buf := captureLog()
	e := newTestExecutor(t, ex, n, log, j)

	fill, err := e.Buy(context.Background(), snapshot("50000", "100", "0"))
	require.NoError(t, err)

	require.Len(t, ex.buys, 1)
	assert.Equal(t, "0.0004", ex.buys[0].String())
	// The fake reports no price, so the reference price is used.
	assert.Equal(t, "50000", fill.Price.String())
	assert.True(t, testTime.Equal(fill.Time))

	want := "✅ Bought $20 BTC at $50000.00 (~0.0004 BTC)"
	assert.Equal(t, []string{want}, n.messages())
	assert.Contains(t, buf.String(), "INFO: "+want)

	require.Len(t, j.trades, 1)
	assert.Equal(t, broker.SideBuy, j.trades[0].Side)
	assert.Equal(t, "20", j.trades[0].QuoteQty.String())
	assert.Len(t, j.trades[0].TradeID, 26)
}

func TestBuy_UsesReportedFillPrice(t *testing.T) {
	t.Parallel()

	ex := &fakeExchange{fillPrice: d("50010")}
	e := newTestExecutor(t, ex, &fakeNotifier{}, logging.Discard(), nil)

	fill, err := e.Buy(context.Background(), snapshot("50000", "20", "0"))
	require.NoError(t, err)
	assert.Equal(t, "50010", fill.Price.String())
}

func TestBuy_InsufficientFunds(t *testing.T) {
	t.Parallel()

	ex := &fakeExchange{}
	n := &fakeNotifier{}
	log, buf := captureLog()
	e := newTestExecutor(t, ex, n, log, nil)

	_, err := e.Buy(context.Background(), snapshot("50000", "5", "0"))
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Empty(t, ex.buys)
	assert.Empty(t, n.messages())
	assert.Contains(t, buf.String(), "WARNING: ⚠️ Insufficient USDT balance")
}

func TestBuy_Rejected(t *testing.T) {
	t.Parallel()

	ex := &fakeExchange{buyErr: &broker.RejectedError{Status: 400, Code: -2010, Msg: "insufficient balance"}}
	n := &fakeNotifier{}
	log, buf := captureLog()
	e := newTestExecutor(t, ex, n, log, nil)

	_, err := e.Buy(context.Background(), snapshot("50000", "100", "0"))
	require.Error(t, err)
	assert.True(t, broker.IsRejected(err))
	assert.NotErrorIs(t, err, ErrInsufficientFunds)

	msgs := n.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "❌ Buy error: order rejected")
	assert.Contains(t, buf.String(), "ERROR: ❌ Buy error")
}

func TestBuy_QuantityRoundsToZero(t *testing.T) {
	t.Parallel()

	ex := &fakeExchange{}
	n := &fakeNotifier{}
	e := newTestExecutor(t, ex, n, logging.Discard(), nil)

	// 20 / 10,000,000 = 0.000002, below one step.
	_, err := e.Buy(context.Background(), snapshot("10000000", "100", "0"))
	require.Error(t, err)
	assert.Empty(t, ex.buys)
	require.Len(t, n.messages(), 1)
	assert.Contains(t, n.messages()[0], "❌ Buy error")
}

func TestSell_Success(t *testing.T) {
	t.Parallel()

	ex := &fakeExchange{}
	n := &fakeNotifier{}
	e := newTestExecutor(t, ex, n, logging.Discard(), nil)

	fill, err := e.Sell(context.Background(), snapshot("52500", "0", "0.000404"))
	require.NoError(t, err)
	require.Len(t, ex.sells, 1)
	assert.Equal(t, "0.0004", ex.sells[0].String())
	assert.Equal(t, "52500", fill.Price.String())
	assert.Equal(t, []string{"✅ Sold 0.0004 BTC at $52500.00"}, n.messages())
}

func TestSell_NothingToSell(t *testing.T) {
	t.Parallel()

	ex := &fakeExchange{}
	n := &fakeNotifier{}
	e := newTestExecutor(t, ex, n, logging.Discard(), nil)

	_, err := e.Sell(context.Background(), snapshot("52500", "0", "0"))
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Empty(t, ex.sells)
	assert.Empty(t, n.messages())

	_, err = e.Sell(context.Background(), snapshot("52500", "0", "0.000001"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInsufficientFunds))
	assert.Empty(t, ex.sells)
	assert.Len(t, n.messages(), 1)
}

func TestSell_TransportError(t *testing.T) {
	t.Parallel()

	ex := &fakeExchange{sellErr: errors.New("connection reset")}
	n := &fakeNotifier{err: errors.New("telegram down")}
	log, buf := captureLog()
	e := newTestExecutor(t, ex, n, log, nil)

	_, err := e.Sell(context.Background(), snapshot("52500", "0", "0.0004"))
	require.Error(t, err)
	assert.False(t, broker.IsRejected(err))
	assert.Contains(t, buf.String(), "❌ Sell error: connection reset")
	// A failing notifier is logged, never returned.
	assert.Contains(t, buf.String(), "telegram down")
}

func TestBuy_BelowMinNotional(t *testing.T) {
	t.Parallel()

	inst := btc
	inst.MinNotional = d("25")
	ex := &fakeExchange{}
	n := &fakeNotifier{}
	e, err := NewExecutor(ExecutorConfig{
		Exchange:         ex,
		Instrument:       inst,
		TradeAmountQuote: d("20"),
		Log:              logging.Discard(),
		Notifier:         n,
	})
	require.NoError(t, err)

	_, err = e.Buy(context.Background(), snapshot("50000", "100", "0"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInsufficientFunds)
	assert.Empty(t, ex.buys)
	require.Len(t, n.messages(), 1)
	assert.Contains(t, n.messages()[0], "minimum notional 25")
}
