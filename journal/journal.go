// Package journal records executed trades outside the event log.
package journal

import (
	"errors"
	"time"

	"github.com/rustyeddy/spotbot/broker"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a lookup matches no trade.
var ErrNotFound = errors.New("journal: trade not found")

// TradeRecord is one filled market order.
type TradeRecord struct {
	TradeID  string
	Time     time.Time
	Symbol   string
	Side     broker.Side
	Quantity decimal.Decimal
	Price    decimal.Decimal
	QuoteQty decimal.Decimal
	OrderID  string
}

// FromFill builds a record for fill with the given ID.
func FromFill(tradeID string, fill broker.OrderFill) TradeRecord {
	quote := fill.QuoteQty
	if quote.IsZero() {
		quote = fill.Quantity.Mul(fill.Price)
	}
	return TradeRecord{
		TradeID:  tradeID,
		Time:     fill.Time.UTC(),
		Symbol:   fill.Symbol,
		Side:     fill.Side,
		Quantity: fill.Quantity,
		Price:    fill.Price,
		QuoteQty: quote,
		OrderID:  fill.OrderID,
	}
}

type Journal interface {
	RecordTrade(TradeRecord) error
	Close() error
}

// Reader is implemented by journals that can be queried.
type Reader interface {
	LastTrade(side broker.Side) (TradeRecord, error)
	ListTrades(limit int) ([]TradeRecord, error)
	GetTrade(tradeID string) (TradeRecord, error)
}

// Nop discards every record.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error { return nil }
func (Nop) Close() error                  { return nil }
