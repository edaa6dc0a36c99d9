package strategy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func defaultEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(d("0.01"), d("0.05"))
	require.NoError(t, err)
	return e
}

func TestNewEngine_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewEngine(d("-0.01"), d("0.05"))
	assert.Error(t, err)
	_, err = NewEngine(d("1"), d("0.05"))
	assert.Error(t, err)
	_, err = NewEngine(d("0.01"), d("-0.05"))
	assert.Error(t, err)
	_, err = NewEngine(decimal.Zero, decimal.Zero)
	assert.NoError(t, err)
}

func TestDecide_Scenarios(t *testing.T) {
	t.Parallel()
	e := defaultEngine(t)

	tests := []struct {
		name  string
		state State
		price string
		want  Action
	}{
		{"fresh start buys", State{}, "50000", ActionBuy},
		{"holding below pump", Holding(d("50000")), "52499", ActionNone},
		{"holding at pump", Holding(d("50000")), "52500", ActionSell},
		{"holding above pump", Holding(d("50000")), "60000", ActionSell},
		{"holding on a dip never sells", Holding(d("50000")), "40000", ActionNone},
		{"after sell at dip", sold("50000"), "49500", ActionBuy},
		{"after sell below dip", sold("50000"), "49000", ActionBuy},
		{"after sell just above dip", sold("50000"), "49500.01", ActionNone},
		{"after sell on pump", sold("50000"), "60000", ActionNone},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, e.Decide(tt.state, d(tt.price)))
		})
	}
}

func sold(p string) State {
	return State{LastTradePrice: decimal.NullDecimal{Decimal: d(p), Valid: true}, LastAction: ActionSell}
}

// Sell iff price >= 1.05 * P when holding; Buy iff price <= 0.99 * P otherwise.
func TestDecide_ThresholdProperty(t *testing.T) {
	t.Parallel()
	e := defaultEngine(t)

	lasts := []string{"0.5", "1", "99.99", "1234.5678", "50000", "67890.12"}
	for _, ls := range lasts {
		last := d(ls)
		sellAt := last.Mul(d("1.05"))
		buyAt := last.Mul(d("0.99"))

		for step := -200; step <= 200; step++ {
			delta := decimal.New(int64(step), -2)

			price := sellAt.Add(delta)
			if price.IsPositive() {
				got := e.Decide(Holding(last), price)
				if price.GreaterThanOrEqual(sellAt) {
					assert.Equal(t, ActionSell, got, "last=%s price=%s", last, price)
				} else {
					assert.Equal(t, ActionNone, got, "last=%s price=%s", last, price)
				}
			}

			price = buyAt.Add(delta)
			if price.IsPositive() {
				got := e.Decide(sold(ls), price)
				if price.LessThanOrEqual(buyAt) {
					assert.Equal(t, ActionBuy, got, "last=%s price=%s", last, price)
				} else {
					assert.Equal(t, ActionNone, got, "last=%s price=%s", last, price)
				}
			}
		}
	}
}

func TestThresholdsAreExact(t *testing.T) {
	t.Parallel()
	e := defaultEngine(t)

	assert.Equal(t, "52500", e.SellAbove(d("50000")).String())
	assert.Equal(t, "49500", e.BuyBelow(d("50000")).String())
}

func TestCustomThresholds(t *testing.T) {
	t.Parallel()

	e, err := NewEngine(d("0.02"), d("0.1"))
	require.NoError(t, err)

	assert.Equal(t, ActionNone, e.Decide(Holding(d("100")), d("109.99")))
	assert.Equal(t, ActionSell, e.Decide(Holding(d("100")), d("110")))
	assert.Equal(t, ActionNone, e.Decide(sold("100"), d("98.01")))
	assert.Equal(t, ActionBuy, e.Decide(sold("100"), d("98")))
}
