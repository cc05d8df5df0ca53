package sales

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTransactionSettled    = "TransactionSettled"
	EventStockReconcilePending = "StockReconcilePending"
	EventStockReconciled       = "StockReconciled"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // transaction id
	Payload       json.RawMessage `json:"payload"`
}

type TransactionSettledPayload struct {
	TransactionID string          `json:"transaction_id"`
	PaymentMethod Method          `json:"payment_method"`
	Total         decimal.Decimal `json:"total"`
	Items         []StockItem     `json:"items"`
	StockPending  bool            `json:"stock_pending,omitempty"`
}

type StockReconcilePendingPayload struct {
	TransactionID string      `json:"transaction_id"`
	Items         []StockItem `json:"items"`
	Reason        string      `json:"reason"`
}

type StockReconciledPayload struct {
	TransactionID string   `json:"transaction_id"`
	Updated       []string `json:"updated,omitempty"`
	Skipped       []string `json:"skipped,omitempty"`
}

// Publisher delivers an event to a topic. Implementations must not block the
// till for long; delivery problems are reported, never retried inline.
type Publisher interface {
	Publish(ctx context.Context, topic string, env Envelope) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, Envelope) error { return nil }

// NewEnvelope wraps payload in a version 1 envelope.
func NewEnvelope(eventType, producer, correlationID string, payload any, now time.Time) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    now.UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       b,
	}, nil
}
