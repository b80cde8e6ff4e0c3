package logging

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewDropsEmptyStringsAndFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", false)

	logger.Debug("hidden", "event", "debug_event")
	logger.Info("order slashed", "event", "escrow_order_slashed", "order_id", "order_1", "caller_id", "")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "order slashed")
	assert.Contains(t, out, "order_id=order_1")
	assert.NotContains(t, out, "caller_id")
}

func TestNewVerboseEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "error", true).Debug("sweep tick")
	assert.Contains(t, buf.String(), "sweep tick")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}

func TestFormatRFC3339Millis(t *testing.T) {
	ts := time.Date(2026, 3, 1, 7, 4, 5, 678_900_000, time.FixedZone("x", -5*3600))
	assert.Equal(t, "2026-03-01T12:04:05.678Z", formatRFC3339Millis(ts))
}
