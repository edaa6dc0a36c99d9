// strategy/engine.go
package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"
)

/*
   Buy the dip, ride the pump:

   NoPosition (last action None or Sell)
     -> Buy when there is no last trade, or price <= last * (1 - BuyDip)
   HoldingPosition (last action Buy)
     -> Sell when price >= last * (1 + SellPump)

   State only changes through State.Apply after an execution succeeded.
*/

// Engine decides what to do with a price given the current State.
// It holds no state of its own.
type Engine struct {
	BuyDip   decimal.Decimal
	SellPump decimal.Decimal
}

var one = decimal.NewFromInt(1)

// NewEngine validates the fractions and returns an Engine.
func NewEngine(buyDip, sellPump decimal.Decimal) (*Engine, error) {
	if buyDip.IsNegative() || buyDip.GreaterThanOrEqual(one) {
		return nil, fmt.Errorf("buy dip fraction must be in [0, 1), got %s", buyDip)
	}
	if sellPump.IsNegative() {
		return nil, fmt.Errorf("sell pump fraction must be >= 0, got %s", sellPump)
	}
	return &Engine{BuyDip: buyDip, SellPump: sellPump}, nil
}

// BuyBelow is the price at or below which a new position is opened.
func (e *Engine) BuyBelow(last decimal.Decimal) decimal.Decimal {
	return last.Mul(one.Sub(e.BuyDip))
}

// SellAbove is the price at or above which a held position is closed.
func (e *Engine) SellAbove(last decimal.Decimal) decimal.Decimal {
	return last.Mul(one.Add(e.SellPump))
}

// Decide returns the action to request, or ActionNone to do nothing.
func (e *Engine) Decide(s State, price decimal.Decimal) Action {
	if s.IsHolding() {
		if s.LastTradePrice.Valid && price.GreaterThanOrEqual(e.SellAbove(s.LastTradePrice.Decimal)) {
			return ActionSell
		}
		return ActionNone
	}

	if !s.LastTradePrice.Valid || price.LessThanOrEqual(e.BuyBelow(s.LastTradePrice.Decimal)) {
		return ActionBuy
	}
	return ActionNone
}
