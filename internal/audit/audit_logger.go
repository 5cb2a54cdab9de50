package audit

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types
const (
	EventPosted  = "TRANSACTION_POSTED"
	EventUpdated = "TRANSACTION_UPDATED"
	EventDeleted = "TRANSACTION_DELETED"
	EventError   = "ERROR"

	EventRecordCreated = "RECORD_CREATED"
	EventRecordUpdated = "RECORD_UPDATED"
	EventRecordDeleted = "RECORD_DELETED"
)

type AuditEvent struct {
	EventID       string    `json:"event_id"`
	Timestamp     time.Time `json:"timestamp"`
	EventType     string    `json:"event_type"`
	Entity        string    `json:"entity"`
	TransactionID int64     `json:"transaction_id,omitempty"`
	Actor         string    `json:"actor"`
	Amount        string    `json:"amount,omitempty"`
	Status        string    `json:"status"`
	Details       any       `json:"details,omitempty"`
}

// AuditLogger writes one JSON line per event to the standard logger.
type AuditLogger struct {
	logger *log.Logger
}

func NewAuditLogger() *AuditLogger {
	return &AuditLogger{logger: log.Default()}
}

// NewAuditLoggerWith writes events to the given logger instead of the default.
func NewAuditLoggerWith(logger *log.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

// LogPosting records a committed create or update of a ledger entry.
func (a *AuditLogger) LogPosting(eventType string, transactionID int64, actor string, total decimal.Decimal, lines int) {
	a.log(AuditEvent{
		EventType:     eventType,
		Entity:        "transaction",
		TransactionID: transactionID,
		Actor:         actor,
		Amount:        total.StringFixed(2),
		Status:        "SUCCESS",
		Details:       map[string]int{"lines": lines},
	})
}

// LogOperation records a committed change to any ledger entity.
func (a *AuditLogger) LogOperation(eventType, entity string, id int64, actor string) {
	a.log(AuditEvent{
		EventType:     eventType,
		Entity:        entity,
		TransactionID: id,
		Actor:         actor,
		Status:        "SUCCESS",
	})
}

func (a *AuditLogger) LogError(operation string, transactionID int64, actor string, err error) {
	a.log(AuditEvent{
		EventType:     EventError,
		Entity:        "transaction",
		TransactionID: transactionID,
		Actor:         actor,
		Status:        "FAILED",
		Details:       map[string]string{"operation": operation, "error": err.Error()},
	})
}

func (a *AuditLogger) log(event AuditEvent) {
	event.EventID = uuid.NewString()
	event.Timestamp = time.Now().UTC()
	data, _ := json.Marshal(event)
	a.logger.Printf("AUDIT: %s", string(data))
}
