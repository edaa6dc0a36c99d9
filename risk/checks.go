// Package risk sizes spot orders and runs the pre-flight checks that decide
// whether an order may be submitted at all.
package risk

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/spotbot/market"
	"github.com/shopspring/decimal"
)

const (
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodeZeroQuantity      = "ZERO_QUANTITY"
	CodeBelowMinNotional  = "BELOW_MIN_NOTIONAL"
)

type Violation struct {
	Code string
	Msg  string
}

// Decision is the outcome of a pre-flight check. Quantity is the sized
// order and is meaningful only when Allowed.
type Decision struct {
	Allowed    bool
	Violations []Violation

	Quantity decimal.Decimal
	Notional decimal.Decimal
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Has reports whether the decision carries a violation with code.
func (d Decision) Has(code string) bool {
	for _, v := range d.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

// Err joins the violations into one error, or returns nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	msgs := make([]string, 0, len(d.Violations))
	for _, v := range d.Violations {
		msgs = append(msgs, v.Msg)
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

// BuyQuantity is amount/price rounded to places decimals.
func BuyQuantity(places int32, amount, price decimal.Decimal) decimal.Decimal {
	return market.RoundQuantity(amount.Div(price), places)
}

// SellQuantity rounds baseFree to places decimals without ever exceeding it.
func SellQuantity(places int32, baseFree decimal.Decimal) decimal.Decimal {
	qty := market.RoundQuantity(baseFree, places)
	if qty.GreaterThan(baseFree) {
		qty = market.FloorQuantity(baseFree, places)
	}
	return qty
}

// CheckBuy sizes a buy of amount quote at price, rounded to places decimals.
// Funds are checked first so an unaffordable buy reports only that.
func CheckBuy(inst market.Instrument, places int32, amount, price, quoteFree decimal.Decimal) Decision {
	d := Decision{Allowed: true}
	if quoteFree.LessThan(amount) {
		d.add(CodeInsufficientFunds, fmt.Sprintf("%s balance %s is below the trade amount %s",
			inst.QuoteAsset, quoteFree, amount))
		return d
	}
	d.Quantity = BuyQuantity(places, amount, price)
	d.Notional = d.Quantity.Mul(price)
	checkOrder(&d, inst, places, price)
	return d
}

// CheckSell sizes a sale of the whole free base balance at price.
func CheckSell(inst market.Instrument, places int32, price, baseFree decimal.Decimal) Decision {
	d := Decision{Allowed: true}
	if !baseFree.IsPositive() {
		d.add(CodeInsufficientFunds, fmt.Sprintf("no %s balance to sell", inst.BaseAsset))
		return d
	}
	d.Quantity = SellQuantity(places, baseFree)
	d.Notional = d.Quantity.Mul(price)
	checkOrder(&d, inst, places, price)
	return d
}

func checkOrder(d *Decision, inst market.Instrument, places int32, price decimal.Decimal) {
	if !d.Quantity.IsPositive() {
		d.add(CodeZeroQuantity, fmt.Sprintf("quantity rounds to zero at %d decimals", places))
		return
	}
	if inst.MinNotional.IsPositive() && d.Notional.LessThan(inst.MinNotional) {
		d.add(CodeBelowMinNotional, fmt.Sprintf("order value %s at $%s is below the minimum notional %s",
			d.Notional, market.FormatUSD(price), inst.MinNotional))
	}
}
