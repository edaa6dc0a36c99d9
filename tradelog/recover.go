package tradelog

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/rustyeddy/spotbot/strategy"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const chunkSize = 64 * 1024

// LastBuy scans r from the end and returns the Last Trade price of the most
// recent entry whose action is exactly "buy". Malformed buy entries are
// skipped with a warning and the scan continues backward. Read errors are
// logged and reported as not found.
func LastBuy(r io.ReaderAt, size int64, log logrus.FieldLogger) (decimal.Decimal, bool) {
	var (
		price   decimal.Decimal
		found   bool
		fromEnd int
	)
	err := scanBackward(r, size, func(line string) bool {
		fromEnd++
		if !strings.Contains(line, lastTradeMarker) {
			return true
		}
		e, err := ParseLine(line)
		switch {
		case errors.Is(err, ErrNoEntry):
			return true
		case err != nil:
			if e.Action == strategy.ActionBuy {
				log.WithField("lines_from_end", fromEnd).Warnf("⚠️ Skipping malformed buy entry: %v", err)
			}
			return true
		case e.Action != strategy.ActionBuy:
			return true
		}
		price, found = e.LastTrade.Decimal, true
		return false
	})
	if err != nil {
		log.Warnf("⚠️ Could not recover last trade from log: %v", err)
		return decimal.Zero, false
	}
	return price, found
}

// LastBuyFile runs LastBuy over the file at path. A missing file is a fresh
// start, not an error.
func LastBuyFile(path string, log logrus.FieldLogger) (decimal.Decimal, bool) {
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("⚠️ Could not recover last trade from log: %v", err)
		}
		return decimal.Zero, false
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		log.Warnf("⚠️ Could not recover last trade from log: %v", err)
		return decimal.Zero, false
	}
	return LastBuy(f, st.Size(), log)
}

// RecoverState seeds the agent: holding at the last logged buy price, or
// empty when the log has none.
func RecoverState(path string, log logrus.FieldLogger) strategy.State {
	if px, ok := LastBuyFile(path, log); ok {
		return strategy.Holding(px)
	}
	return strategy.State{}
}

// scanBackward calls fn for each non-empty line of r, last line first, until
// fn returns false.
func scanBackward(r io.ReaderAt, size int64, fn func(line string) bool) error {
	var carry []byte
	off := size
	for off > 0 {
		n := int64(chunkSize)
		if off < n {
			n = off
		}
		off -= n

		buf := make([]byte, n, n+int64(len(carry)))
		if _, err := r.ReadAt(buf, off); err != nil && err != io.EOF {
			return err
		}
		buf = append(buf, carry...)

		for {
			i := bytes.LastIndexByte(buf, '\n')
			if i < 0 {
				break
			}
			line := strings.TrimRight(string(buf[i+1:]), "\r")
			buf = buf[:i]
			if line == "" {
				continue
			}
			if !fn(line) {
				return nil
			}
		}
		carry = buf
	}
	if line := strings.TrimRight(string(carry), "\r"); line != "" {
		fn(line)
	}
	return nil
}
