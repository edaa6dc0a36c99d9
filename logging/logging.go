// Package logging builds the process logger. Every line goes to stdout and
// to an append-only file; the file doubles as the event log the agent
// recovers its state from, so the line layout is fixed:
//
//	[2006-01-02 15:04:05] INFO: message key=value
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// TimestampFormat is the timestamp layout of every persisted line.
const TimestampFormat = "2006-01-02 15:04:05"

// LineFormatter renders entries as "[time] LEVEL: message" followed by
// any fields as sorted key=value pairs.
type LineFormatter struct {
	TimestampFormat string
}

func (f *LineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	layout := f.TimestampFormat
	if layout == "" {
		layout = TimestampFormat
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "[%s] %s: %s", e.Time.Format(layout), strings.ToUpper(e.Level.String()), strings.TrimRight(e.Message, "\n"))

	if len(e.Data) > 0 {
		keys := make([]string, 0, len(e.Data))
		for k := range e.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
		}
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// Options configures New.
type Options struct {
	File   string // append-only event log; empty logs to Stdout only
	Level  string // logrus level name, default "info"
	Stdout io.Writer
}

// New returns a logger writing to opts.File and opts.Stdout. The returned
// closer releases the file.
func New(opts Options) (*logrus.Logger, io.Closer, error) {
	lvl := logrus.InfoLevel
	if opts.Level != "" {
		l, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("log level: %w", err)
		}
		lvl = l
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	logger := logrus.New()
	logger.SetFormatter(&LineFormatter{})
	logger.SetLevel(lvl)

	if opts.File == "" {
		logger.SetOutput(stdout)
		return logger, io.NopCloser(nil), nil
	}

	if dir := filepath.Dir(opts.File); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger.SetOutput(io.MultiWriter(f, stdout))
	return logger, f, nil
}

// Discard returns a logger that drops everything, for tests.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
