package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/spotbot/market"
	"github.com/shopspring/decimal"
)

// Exchange is the surface the agent needs from a spot venue.
type Exchange interface {
	Name() string
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	GetFreeBalance(ctx context.Context, asset string) (decimal.Decimal, error)
	GetInstrument(ctx context.Context, symbol string) (market.Instrument, error)
	MarketBuy(ctx context.Context, symbol string, qty decimal.Decimal) (OrderFill, error)
	MarketSell(ctx context.Context, symbol string, qty decimal.Decimal) (OrderFill, error)
}

// Side is the side of a market order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderFill is a normalized view of an executed market order.
// Price is the average fill price; it is zero when the venue did not
// report executions and the caller should fall back to its reference price.
type OrderFill struct {
	OrderID       string
	ClientOrderID string
	Symbol        string
	Side          Side
	Quantity      decimal.Decimal
	QuoteQty      decimal.Decimal
	Price         decimal.Decimal
	Time          time.Time
}

// RejectedError is returned when the exchange refuses an order,
// e.g. a quantity below the minimum notional.
type RejectedError struct {
	Status int
	Code   int
	Msg    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("order rejected (status %d, code %d): %s", e.Status, e.Code, e.Msg)
}

// IsRejected reports whether err carries a RejectedError.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}
