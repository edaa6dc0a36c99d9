package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineFormatter(t *testing.T) {
	t.Parallel()

	f := &LineFormatter{}
	ts := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

	tests := []struct {
		name  string
		entry *logrus.Entry
		want  string
	}{
		{
			name:  "info",
			entry: &logrus.Entry{Time: ts, Level: logrus.InfoLevel, Message: "hello"},
			want:  "[2025-03-04 05:06:07] INFO: hello\n",
		},
		{
			name:  "warning keeps long name",
			entry: &logrus.Entry{Time: ts, Level: logrus.WarnLevel, Message: "careful"},
			want:  "[2025-03-04 05:06:07] WARNING: careful\n",
		},
		{
			name: "fields sorted",
			entry: &logrus.Entry{Time: ts, Level: logrus.ErrorLevel, Message: "boom",
				Data: logrus.Fields{"side": "buy", "err": "timeout"}},
			want: "[2025-03-04 05:06:07] ERROR: boom err=timeout side=buy\n",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := f.Format(tt.entry)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestNew_AppendsToFileAndStdout(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "bot.log")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("[2025-01-01 00:00:00] INFO: earlier\n"), 0o644))

	var out bytes.Buffer
	logger, closer, err := New(Options{File: path, Stdout: &out})
	require.NoError(t, err)
	logger.Info("later")
	logger.Debug("hidden")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[2025-01-01 00:00:00] INFO: earlier", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], "INFO: later"))
	assert.Contains(t, out.String(), "INFO: later")
	assert.NotContains(t, out.String(), "hidden")
}

func TestNew_BadLevel(t *testing.T) {
	t.Parallel()

	_, _, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}
