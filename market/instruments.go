// market/instruments.go
package market

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Instrument describes a spot pair and the quantity constraints the
// exchange enforces on it.
type Instrument struct {
	Symbol      string
	BaseAsset   string
	QuoteAsset  string
	StepSize    decimal.Decimal // LOT_SIZE increment for the base quantity
	MinNotional decimal.Decimal // zero when the exchange does not report one
}

// Precision is the number of decimal places an order quantity may carry.
func (i Instrument) Precision() int32 {
	return PrecisionFromStep(i.StepSize)
}

// PrecisionFromStep counts the significant decimal digits of a step size:
// 0.00001000 -> 5, 0.01 -> 2, 1 -> 0. Non-positive steps yield 0.
func PrecisionFromStep(step decimal.Decimal) int32 {
	if !step.IsPositive() {
		return 0
	}
	s := step.String()
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return 0
	}
	return int32(len(strings.TrimRight(s[i+1:], "0")))
}

// Instruments holds the metadata used when no exchange lookup is available
// (paper trading, tests). Live runs always ask the exchange.
var Instruments = map[string]Instrument{
	"BTCUSDT": {
		Symbol:      "BTCUSDT",
		BaseAsset:   "BTC",
		QuoteAsset:  "USDT",
		StepSize:    decimal.RequireFromString("0.00001"),
		MinNotional: decimal.NewFromInt(5),
	},
	"ETHUSDT": {
		Symbol:      "ETHUSDT",
		BaseAsset:   "ETH",
		QuoteAsset:  "USDT",
		StepSize:    decimal.RequireFromString("0.0001"),
		MinNotional: decimal.NewFromInt(5),
	},
}
