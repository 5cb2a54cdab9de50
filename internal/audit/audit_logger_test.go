package audit

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEvent(t *testing.T, buf *bytes.Buffer) AuditEvent {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	require.True(t, strings.HasPrefix(line, "AUDIT: "), line)

	var event AuditEvent
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "AUDIT: ")), &event))
	return event
}

func TestAuditLogger_LogPosting(t *testing.T) {
	var buf bytes.Buffer
	logger := NewAuditLoggerWith(log.New(&buf, "", 0))

	logger.LogPosting(EventPosted, 5, "clerk", decimal.NewFromInt(500), 2)

	event := decodeEvent(t, &buf)
	assert.Equal(t, EventPosted, event.EventType)
	assert.Equal(t, int64(5), event.TransactionID)
	assert.Equal(t, "clerk", event.Actor)
	assert.Equal(t, "500.00", event.Amount)
	assert.Equal(t, "SUCCESS", event.Status)
	_, err := uuid.Parse(event.EventID)
	assert.NoError(t, err)
	assert.False(t, event.Timestamp.IsZero())
}

func TestAuditLogger_LogError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewAuditLoggerWith(log.New(&buf, "", 0))

	logger.LogError("update", 7, "clerk", errors.New("deadlock detected"))

	event := decodeEvent(t, &buf)
	assert.Equal(t, EventError, event.EventType)
	assert.Equal(t, "FAILED", event.Status)
	details, ok := event.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "update", details["operation"])
	assert.Equal(t, "deadlock detected", details["error"])
}

func TestAuditLogger_LogOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewAuditLoggerWith(log.New(&buf, "", 0))

	logger.LogOperation(EventDeleted, "transaction", 9, "system")

	event := decodeEvent(t, &buf)
	assert.Equal(t, EventDeleted, event.EventType)
	assert.Equal(t, "transaction", event.Entity)
	assert.Nil(t, event.Details)
}
