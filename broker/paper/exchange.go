// Package paper is an in-memory exchange for dry runs and tests. Orders fill
// immediately at the current price and move the simulated balances.
package paper

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rustyeddy/spotbot/broker"
	"github.com/rustyeddy/spotbot/market"
	"github.com/shopspring/decimal"
)

type Exchange struct {
	mu       sync.Mutex
	inst     market.Instrument
	price    decimal.Decimal
	balances map[string]decimal.Decimal
	nextID   int64
	now      func() time.Time
}

// New returns a paper exchange trading inst starting at price with the
// given free balances.
func New(inst market.Instrument, price, quote, base decimal.Decimal) *Exchange {
	return &Exchange{
		inst:  inst,
		price: price,
		balances: map[string]decimal.Decimal{
			inst.QuoteAsset: quote,
			inst.BaseAsset:  base,
		},
		now: time.Now,
	}
}

func (e *Exchange) Name() string { return "paper" }

// SetPrice moves the simulated market.
func (e *Exchange) SetPrice(p decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.price = p
}

// SetBalance overrides the free balance of asset.
func (e *Exchange) SetBalance(asset string, v decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.balances[asset] = v
}

func (e *Exchange) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if symbol != e.inst.Symbol {
		return decimal.Zero, fmt.Errorf("paper: unknown symbol %s", symbol)
	}
	if !e.price.IsPositive() {
		return decimal.Zero, fmt.Errorf("paper: no price set for %s", symbol)
	}
	return e.price, nil
}

func (e *Exchange) GetFreeBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balances[asset], nil
}

func (e *Exchange) GetInstrument(ctx context.Context, symbol string) (market.Instrument, error) {
	if symbol != e.inst.Symbol {
		return market.Instrument{}, fmt.Errorf("paper: unknown symbol %s", symbol)
	}
	return e.inst, nil
}

func (e *Exchange) MarketBuy(ctx context.Context, symbol string, qty decimal.Decimal) (broker.OrderFill, error) {
	return e.fill(symbol, broker.SideBuy, qty)
}

func (e *Exchange) MarketSell(ctx context.Context, symbol string, qty decimal.Decimal) (broker.OrderFill, error) {
	return e.fill(symbol, broker.SideSell, qty)
}

func (e *Exchange) fill(symbol string, side broker.Side, qty decimal.Decimal) (broker.OrderFill, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if symbol != e.inst.Symbol {
		return broker.OrderFill{}, fmt.Errorf("paper: unknown symbol %s", symbol)
	}
	if !qty.IsPositive() {
		return broker.OrderFill{}, &broker.RejectedError{Status: 400, Code: -1013, Msg: "invalid quantity"}
	}
	if e.inst.StepSize.IsPositive() && !qty.Mod(e.inst.StepSize).IsZero() {
		return broker.OrderFill{}, &broker.RejectedError{Status: 400, Code: -1013, Msg: "Filter failure: LOT_SIZE"}
	}

	quote := qty.Mul(e.price)
	if e.inst.MinNotional.IsPositive() && quote.LessThan(e.inst.MinNotional) {
		return broker.OrderFill{}, &broker.RejectedError{Status: 400, Code: -1013, Msg: "Filter failure: NOTIONAL"}
	}

	qa, ba := e.inst.QuoteAsset, e.inst.BaseAsset
	switch side {
	case broker.SideBuy:
		if e.balances[qa].LessThan(quote) {
			return broker.OrderFill{}, &broker.RejectedError{Status: 400, Code: -2010, Msg: "Account has insufficient balance for requested action."}
		}
		e.balances[qa] = e.balances[qa].Sub(quote)
		e.balances[ba] = e.balances[ba].Add(qty)
	case broker.SideSell:
		if e.balances[ba].LessThan(qty) {
			return broker.OrderFill{}, &broker.RejectedError{Status: 400, Code: -2010, Msg: "Account has insufficient balance for requested action."}
		}
		e.balances[ba] = e.balances[ba].Sub(qty)
		e.balances[qa] = e.balances[qa].Add(quote)
	}

	e.nextID++
	return broker.OrderFill{
		OrderID:       strconv.FormatInt(e.nextID, 10),
		ClientOrderID: uuid.NewString(),
		Symbol:        symbol,
		Side:          side,
		Quantity:      qty,
		QuoteQty:      quote,
		Price:         e.price,
		Time:          e.now().UTC(),
	}, nil
}

var _ broker.Exchange = (*Exchange)(nil)
