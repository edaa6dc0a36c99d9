package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSnapshot is the spot price observed at the start of a cycle.
type PriceSnapshot struct {
	Symbol string
	Price  decimal.Decimal
	Time   time.Time
}

// BalanceSnapshot holds the free (unlocked) balances of the pair's assets.
type BalanceSnapshot struct {
	QuoteFree decimal.Decimal
	BaseFree  decimal.Decimal
}

// Snapshot is everything a single evaluation cycle needs from the exchange.
type Snapshot struct {
	PriceSnapshot
	BalanceSnapshot
}
