// strategy/state.go
package strategy

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Action is the last executed side of the agent.
type Action int

const (
	ActionNone Action = iota
	ActionBuy
	ActionSell
)

// String renders the action the way it appears in the event log.
func (a Action) String() string {
	switch a {
	case ActionBuy:
		return "buy"
	case ActionSell:
		return "sell"
	default:
		return "None"
	}
}

// ParseAction is the inverse of String. Matching is exact.
func ParseAction(s string) (Action, error) {
	switch strings.TrimSpace(s) {
	case "buy":
		return ActionBuy, nil
	case "sell":
		return ActionSell, nil
	case "None", "":
		return ActionNone, nil
	}
	return ActionNone, fmt.Errorf("unknown action %q", s)
}

// State is what the agent remembers between cycles: the price of the last
// executed trade and its side. LastTradePrice is valid iff LastAction is not
// ActionNone.
type State struct {
	LastTradePrice decimal.NullDecimal
	LastAction     Action
}

// Holding returns a state holding a position bought at price.
func Holding(price decimal.Decimal) State {
	return State{LastTradePrice: decimal.NullDecimal{Decimal: price, Valid: true}, LastAction: ActionBuy}
}

// IsHolding reports whether the last executed trade was a buy.
func (s State) IsHolding() bool { return s.LastAction == ActionBuy }

// Apply records a successful execution.
func (s *State) Apply(a Action, fill decimal.Decimal) {
	s.LastTradePrice = decimal.NullDecimal{Decimal: fill, Valid: true}
	s.LastAction = a
}

// Validate checks the None/price invariant and that a price is positive.
func (s State) Validate() error {
	if (s.LastAction == ActionNone) == s.LastTradePrice.Valid {
		return fmt.Errorf("state: action %s with price valid=%v", s.LastAction, s.LastTradePrice.Valid)
	}
	if s.LastTradePrice.Valid && !s.LastTradePrice.Decimal.IsPositive() {
		return fmt.Errorf("state: non-positive last trade price %s", s.LastTradePrice.Decimal)
	}
	return nil
}

// LastTradeString renders the last trade price, "None" when there is none.
func (s State) LastTradeString() string {
	if !s.LastTradePrice.Valid {
		return "None"
	}
	return s.LastTradePrice.Decimal.String()
}

func (s State) String() string {
	return fmt.Sprintf("last_trade=%s action=%s", s.LastTradeString(), s.LastAction)
}
