package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/spotbot/broker"
	"github.com/shopspring/decimal"
)

const tradeColumns = `trade_id, time, symbol, side, quantity, price, quote_qty, order_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (TradeRecord, error) {
	var (
		rec                  TradeRecord
		side                 string
		qty, price, quoteQty string
	)
	if err := s.Scan(&rec.TradeID, &rec.Time, &rec.Symbol, &side, &qty, &price, &quoteQty, &rec.OrderID); err != nil {
		return TradeRecord{}, err
	}
	rec.Side = broker.Side(side)

	var err error
	if rec.Quantity, err = decimal.NewFromString(qty); err != nil {
		return TradeRecord{}, fmt.Errorf("trade %s quantity: %w", rec.TradeID, err)
	}
	if rec.Price, err = decimal.NewFromString(price); err != nil {
		return TradeRecord{}, fmt.Errorf("trade %s price: %w", rec.TradeID, err)
	}
	if rec.QuoteQty, err = decimal.NewFromString(quoteQty); err != nil {
		return TradeRecord{}, fmt.Errorf("trade %s quote qty: %w", rec.TradeID, err)
	}
	return rec, nil
}

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(tradeID string) (TradeRecord, error) {
	row := j.db.QueryRow(`SELECT `+tradeColumns+` FROM trades WHERE trade_id = ?`, tradeID)
	rec, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return TradeRecord{}, fmt.Errorf("trade %q: %w", tradeID, ErrNotFound)
	}
	return rec, err
}

// LastTrade returns the most recent trade on side, or any side when side is
// empty.
func (j *SQLite) LastTrade(side broker.Side) (TradeRecord, error) {
	var row *sql.Row
	if side == "" {
		row = j.db.QueryRow(`SELECT ` + tradeColumns + ` FROM trades ORDER BY time DESC, trade_id DESC LIMIT 1`)
	} else {
		row = j.db.QueryRow(`SELECT `+tradeColumns+` FROM trades WHERE side = ? ORDER BY time DESC, trade_id DESC LIMIT 1`, string(side))
	}
	rec, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return TradeRecord{}, ErrNotFound
	}
	return rec, err
}

// ListTrades returns up to limit trades, newest first. A non-positive limit
// returns all of them.
func (j *SQLite) ListTrades(limit int) ([]TradeRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.Query(`SELECT `+tradeColumns+` FROM trades ORDER BY time DESC, trade_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTradesBetween returns trades whose time is within [start, end), oldest
// first.
func (j *SQLite) ListTradesBetween(start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.Query(`SELECT `+tradeColumns+` FROM trades
		WHERE time >= ? AND time < ?
		ORDER BY time ASC, trade_id ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
