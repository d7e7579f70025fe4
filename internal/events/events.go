// Package events publishes ledger and stock changes for downstream
// consumers such as reporting or a warehouse display.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"bangunanpro/backend/internal/debt"
	"bangunanpro/backend/internal/domain"
)

const (
	EventTransactionCommitted = "TransactionCommitted"
	EventDebtSettled          = "DebtSettled"
	EventStockChanged         = "StockChanged"
	EventProductSaved         = "ProductSaved"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type LineQty struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type TransactionCommittedPayload struct {
	TransactionID string               `json:"transaction_id"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	Status        domain.TxStatus      `json:"status"`
	Total         int64                `json:"total"`
	AmountPaid    int64                `json:"amount_paid"`
	Outstanding   int64                `json:"outstanding"`
	CustomerName  string               `json:"customer_name"`
	CashierName   string               `json:"cashier_name"`
	Items         []LineQty            `json:"items"`
}

type DebtSettledPayload struct {
	TransactionID string `json:"transaction_id"`
	CustomerName  string `json:"customer_name"`
	Settled       int64  `json:"settled"`
}

type StockChangedPayload struct {
	ProductID string `json:"product_id"`
	Delta     int    `json:"delta"`
	Stock     int    `json:"stock"`
	Reason    string `json:"reason"`
}

// Publisher delivers one event. Implementations must not block the caller
// on the network.
type Publisher interface {
	Publish(ctx context.Context, eventType string, key string, payload any) error
	Close() error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(_ context.Context, _ string, _ string, _ any) error { return nil }

func (NoopPublisher) Close() error { return nil }

// NewEnvelope wraps payload with a fresh event id.
func NewEnvelope(producer, eventType, correlationID string, payload any, at time.Time) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    at.UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}

func TransactionCommitted(tx domain.Transaction) TransactionCommittedPayload {
	items := make([]LineQty, 0, len(tx.Items))
	for _, line := range tx.Items {
		items = append(items, LineQty{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	outstanding := int64(0)
	if tx.Status == domain.TxStatusPending {
		outstanding = debt.Outstanding(tx)
	}
	return TransactionCommittedPayload{
		TransactionID: tx.ID,
		PaymentMethod: tx.PaymentMethod,
		Status:        tx.Status,
		Total:         tx.Total,
		AmountPaid:    tx.AmountPaid,
		Outstanding:   outstanding,
		CustomerName:  tx.CustomerName,
		CashierName:   tx.CashierName,
		Items:         items,
	}
}
