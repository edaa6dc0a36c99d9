package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"
)

var csvHeader = []string{"trade_id", "time", "symbol", "side", "quantity", "price", "quote_qty", "order_id"}

// CSV appends trades to a CSV file. The header is written only when the file
// is new or empty.
type CSV struct {
	w *csv.Writer
	f *os.File
}

func NewCSV(path string) (*CSV, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	w := csv.NewWriter(f)
	if st.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			_ = f.Close()
			return nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return &CSV{w: w, f: f}, nil
}

func (j *CSV) RecordTrade(t TradeRecord) error {
	err := j.w.Write([]string{
		t.TradeID,
		t.Time.UTC().Format(time.RFC3339),
		t.Symbol,
		string(t.Side),
		t.Quantity.String(),
		t.Price.String(),
		t.QuoteQty.String(),
		t.OrderID,
	})
	if err != nil {
		return fmt.Errorf("record trade %s: %w", t.TradeID, err)
	}
	j.w.Flush()
	return j.w.Error()
}

func (j *CSV) Close() error {
	j.w.Flush()
	if err := j.w.Error(); err != nil {
		_ = j.f.Close()
		return err
	}
	return j.f.Close()
}

var _ Journal = (*CSV)(nil)
