package market

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPrecisionFromStep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		step string
		want int32
	}{
		{"btc lot", "0.00001000", 5},
		{"eight places", "0.00000001", 8},
		{"cents", "0.01", 2},
		{"whole", "1.00000000", 0},
		{"ten", "10", 0},
		{"zero", "0", 0},
		{"negative", "-0.001", 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := PrecisionFromStep(decimal.RequireFromString(tt.step))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInstrumentPrecision(t *testing.T) {
	t.Parallel()

	inst := Instruments["BTCUSDT"]
	assert.Equal(t, int32(5), inst.Precision())
	assert.Equal(t, "BTC", inst.BaseAsset)
	assert.Equal(t, "USDT", inst.QuoteAsset)
}

func TestRoundQuantity(t *testing.T) {
	t.Parallel()

	qty := decimal.NewFromInt(20).Div(decimal.NewFromInt(50000))
	assert.Equal(t, "0.0004", RoundQuantity(qty, 5).String())

	assert.Equal(t, "0.12346", RoundQuantity(decimal.RequireFromString("0.123456"), 5).String())
	assert.Equal(t, "0.12345", FloorQuantity(decimal.RequireFromString("0.123456"), 5).String())
	assert.Equal(t, "52500.00", FormatUSD(decimal.NewFromInt(52500)))
}
