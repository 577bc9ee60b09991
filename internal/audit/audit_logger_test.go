package audit

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEvent(t *testing.T, line string) Event {
	t.Helper()

	idx := strings.Index(line, "AUDIT: ")
	require.GreaterOrEqual(t, idx, 0, line)

	var event Event
	require.NoError(t, json.Unmarshal([]byte(line[idx+len("AUDIT: "):]), &event))
	return event
}

func TestLogger_LogTransfer(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf)

	logger.LogTransfer("TXN-1", "sender", "receiver", 101, 5, "SUCCESS")

	event := decodeEvent(t, strings.TrimSpace(buf.String()))
	assert.Equal(t, "TRANSFER", event.EventType)
	assert.Equal(t, "TXN-1", event.TransactionID)
	assert.Equal(t, "sender", event.AccountID)
	assert.Equal(t, int64(101), event.Amount)
	assert.Equal(t, "SUCCESS", event.Status)

	details, ok := event.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "receiver", details["to_account"])
	assert.Equal(t, float64(5), details["fee"])
}

func TestLogger_LogError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf)

	logger.LogError("TXN-2", "sender", errors.New("insufficient balance"))

	event := decodeEvent(t, strings.TrimSpace(buf.String()))
	assert.Equal(t, "ERROR", event.EventType)
	assert.Equal(t, "FAILED", event.Status)
	assert.Contains(t, buf.String(), "insufficient balance")
}

func TestLogger_LogOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf)

	logger.LogOperation("acct-1", "ACTIVATION", "balance set to 40")

	event := decodeEvent(t, strings.TrimSpace(buf.String()))
	assert.Equal(t, "ACTIVATION", event.EventType)
	assert.Equal(t, "acct-1", event.AccountID)
	assert.Equal(t, "SUCCESS", event.Status)
	assert.Equal(t, map[string]any{"details": "balance set to 40"}, event.Details)
}
