package tradelog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/spotbot/logging"
	"github.com/rustyeddy/spotbot/strategy"
	"github.com/shopspring/decimal"
)

var (
	// ErrNoEntry means the line is not a status line at all.
	ErrNoEntry = errors.New("tradelog: not a status line")
	// ErrMalformed means the line carries the markers but a field is unreadable.
	ErrMalformed = errors.New("tradelog: malformed status line")
)

// Entry is a parsed status line.
type Entry struct {
	Time      time.Time // zero when the line has no "[timestamp]" prefix
	Level     string
	LastTrade decimal.NullDecimal
	Action    strategy.Action
}

// ParseLine parses one event-log line. When the action field is readable but
// the price is not, the returned Entry still carries the Action alongside
// ErrMalformed.
func ParseLine(line string) (Entry, error) {
	var e Entry

	i := strings.Index(line, lastTradeMarker)
	if i < 0 {
		return e, ErrNoEntry
	}
	rest := line[i+len(lastTradeMarker):]
	j := strings.Index(rest, actionMarker)
	if j < 0 {
		return e, ErrNoEntry
	}

	e.Time, e.Level = parseHeader(line[:i])

	actField := strings.TrimLeft(rest[j+len(actionMarker):], " \t")
	if k := strings.IndexAny(actField, ", \t\r"); k >= 0 {
		actField = actField[:k]
	}
	act, err := strategy.ParseAction(actField)
	if err != nil || actField == "" {
		return e, fmt.Errorf("%w: action %q", ErrMalformed, actField)
	}
	e.Action = act

	priceField := rest[:j]
	if k := strings.IndexByte(priceField, ','); k >= 0 {
		priceField = priceField[:k]
	}
	priceField = strings.TrimPrefix(strings.TrimSpace(priceField), "$")
	if priceField == "None" {
		if act != strategy.ActionNone {
			return e, fmt.Errorf("%w: action %s without a price", ErrMalformed, act)
		}
		return e, nil
	}
	px, err := decimal.NewFromString(priceField)
	if err != nil || !px.IsPositive() {
		return e, fmt.Errorf("%w: last trade %q", ErrMalformed, priceField)
	}
	e.LastTrade = decimal.NullDecimal{Decimal: px, Valid: true}
	return e, nil
}

// parseHeader reads an optional "[2006-01-02 15:04:05] LEVEL:" prefix.
func parseHeader(h string) (time.Time, string) {
	h = strings.TrimSpace(h)
	if !strings.HasPrefix(h, "[") {
		return time.Time{}, ""
	}
	end := strings.IndexByte(h, ']')
	if end < 0 {
		return time.Time{}, ""
	}
	ts, _ := time.ParseInLocation(logging.TimestampFormat, h[1:end], time.Local)
	lvl := strings.TrimSpace(h[end+1:])
	if k := strings.IndexByte(lvl, ':'); k >= 0 {
		lvl = lvl[:k]
	}
	return ts, lvl
}
