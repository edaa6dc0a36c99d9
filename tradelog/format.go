// Package tradelog owns the textual status line the agent writes to its
// event log every cycle, and the backward scan that recovers state from it.
//
// The layout is compatible with logs written by earlier versions:
//
//	[2025-06-01 12:00:00] INFO: 📊 Current Price: $104523.12, Last Trade: $103000.5, Action: buy
//
// Only the "Last Trade:" and "Action:" fields are load-bearing.
package tradelog

import (
	"fmt"

	"github.com/rustyeddy/spotbot/market"
	"github.com/rustyeddy/spotbot/strategy"
	"github.com/shopspring/decimal"
)

const (
	lastTradeMarker = "Last Trade:"
	actionMarker    = "Action:"
)

// StatusLine is the message logged at the end of every cycle.
func StatusLine(price decimal.Decimal, s strategy.State) string {
	return fmt.Sprintf("📊 Current Price: $%s, %s $%s, %s %s",
		market.FormatUSD(price), lastTradeMarker, s.LastTradeString(), actionMarker, s.LastAction)
}
