package journal

import (
	"strings"
	"testing"
	"time"

	"github.com/rustyeddy/spotbot/broker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTradeOrg(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	out := FormatTradeOrg(rec("01HX3ABCDEFGH", broker.SideBuy, at, "50000"))

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Equal(t, "** BUY BTCUSDT (01HX3ABC)", lines[0])
	assert.Contains(t, out, ":TRADE_ID: 01HX3ABCDEFGH\n")
	assert.Contains(t, out, ":TIME: 2024-01-02T03:04:05Z\n")
	assert.Contains(t, out, ":QUANTITY: 0.0004\n")
	assert.Contains(t, out, ":PRICE: 50000.00\n")
	assert.Contains(t, out, ":QUOTE_QTY: 20.00\n")
	assert.Equal(t, ":END:", lines[len(lines)-1])
}

func TestFormatTradesOrg(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	out := FormatTradesOrg([]TradeRecord{
		rec("A", broker.SideBuy, at, "1"),
		rec("B", broker.SideSell, at, "2"),
	})
	assert.Equal(t, 2, strings.Count(out, ":PROPERTIES:"))
	assert.Contains(t, out, ":END:\n\n** SELL")
	assert.Empty(t, FormatTradesOrg(nil))
}

func TestSQLiteListTradesBetween(t *testing.T) {
	t.Parallel()

	j, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordTrade(rec("before", broker.SideBuy, day.Add(-time.Minute), "1")))
	require.NoError(t, j.RecordTrade(rec("in1", broker.SideBuy, day.Add(time.Hour), "1")))
	require.NoError(t, j.RecordTrade(rec("in2", broker.SideSell, day.Add(23*time.Hour), "1")))
	require.NoError(t, j.RecordTrade(rec("after", broker.SideSell, day.Add(24*time.Hour), "1")))

	got, err := j.ListTradesBetween(day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "in1", got[0].TradeID)
	assert.Equal(t, "in2", got[1].TradeID)
}
