package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type QueueStatus string

const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusCompleted  QueueStatus = "completed"
	QueueStatusFailed     QueueStatus = "failed"
)

type QueueType string

const (
	QueueCustomerIngest  QueueType = "customer_ingest"
	QueueOrderIngest     QueueType = "order_ingest"
	QueueCampaignProcess QueueType = "campaign_process"
	QueueDeliverySend    QueueType = "delivery_send"
	QueueReceiptProcess  QueueType = "receipt_process"
)

// KnownQueues lists every queue type a producer may enqueue into.
var KnownQueues = []QueueType{
	QueueCustomerIngest,
	QueueOrderIngest,
	QueueCampaignProcess,
	QueueDeliverySend,
	QueueReceiptProcess,
}

func (t QueueType) Valid() bool {
	for _, known := range KnownQueues {
		if t == known {
			return true
		}
	}
	return false
}

// QueueItem is one unit of deferred work. The queue store is the sole
// mutator of Status and Attempts; workers only request transitions.
type QueueItem struct {
	ID          string          `json:"id"`
	Type        QueueType       `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Status      QueueStatus     `json:"status"`
	Priority    int             `json:"priority"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	LastError   string          `json:"last_error,omitempty"`

	// AvailableAt delays visibility after a retryable failure.
	AvailableAt time.Time `json:"available_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Payload is the decoded form of a queue item body. Each queue type has
// exactly one payload shape; DecodePayload picks it by item type.
type Payload interface {
	Queue() QueueType
}

type MutationOp string

const (
	MutationCreate MutationOp = "create"
	MutationUpdate MutationOp = "update"
	MutationDelete MutationOp = "delete"
)

// CustomerIngestPayload applies one customer mutation.
type CustomerIngestPayload struct {
	Op       MutationOp `json:"op"`
	Customer Customer   `json:"customer"`
}

func (CustomerIngestPayload) Queue() QueueType { return QueueCustomerIngest }

// OrderIngestPayload applies one order mutation.
type OrderIngestPayload struct {
	Op    MutationOp `json:"op"`
	Order Order      `json:"order"`
}

func (OrderIngestPayload) Queue() QueueType { return QueueOrderIngest }

// CampaignLaunchPayload fans one campaign out into per-customer deliveries.
type CampaignLaunchPayload struct {
	CampaignID  string   `json:"campaign_id"`
	CustomerIDs []string `json:"customer_ids"`
	Message     string   `json:"message"`
}

func (CampaignLaunchPayload) Queue() QueueType { return QueueCampaignProcess }

// DeliverySendPayload references the communication log row to deliver.
type DeliverySendPayload struct {
	LogID string `json:"log_id"`
}

func (DeliverySendPayload) Queue() QueueType { return QueueDeliverySend }

// ReceiptPayload is an asynchronous delivery confirmation correlated to a
// prior attempt via the vendor id.
type ReceiptPayload struct {
	LogID         string `json:"log_id"`
	VendorID      string `json:"vendor_id"`
	Status        string `json:"status"` // "delivered" or "failed"
	FailureReason string `json:"failure_reason,omitempty"`
}

func (ReceiptPayload) Queue() QueueType { return QueueReceiptProcess }

// DecodePayload decodes a raw queue item body into its typed payload.
// Decoding happens once, at dequeue time.
func DecodePayload(t QueueType, raw json.RawMessage) (Payload, error) {
	var (
		p   Payload
		err error
	)

	switch t {
	case QueueCustomerIngest:
		var v CustomerIngestPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case QueueOrderIngest:
		var v OrderIngestPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case QueueCampaignProcess:
		var v CampaignLaunchPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case QueueDeliverySend:
		var v DeliverySendPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case QueueReceiptProcess:
		var v ReceiptPayload
		err = json.Unmarshal(raw, &v)
		p = v
	default:
		return nil, fmt.Errorf("unknown queue type %q", t)
	}

	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}

	return p, nil
}
