package models

import (
	"errors"
	"fmt"
	"time"
)

type LogStatus string

const (
	LogStatusPending   LogStatus = "pending"
	LogStatusSent      LogStatus = "sent"
	LogStatusDelivered LogStatus = "delivered"
	LogStatusFailed    LogStatus = "failed"
)

var (
	ErrVendorIDAlreadySet = errors.New("vendor id already set")
	ErrVendorIDBeforeSent = errors.New("vendor id requires sent status")
)

// CommunicationLog records one delivery attempt to one customer for one
// campaign. It is written by the campaign orchestrator (create), the
// delivery worker (pending→sent) and the receipt reconciler
// (sent→delivered|failed).
type CommunicationLog struct {
	ID            string     `json:"id"`
	CampaignID    string     `json:"campaign_id"`
	CustomerID    string     `json:"customer_id"`
	Message       string     `json:"message"`
	Status        LogStatus  `json:"status"`
	VendorID      string     `json:"vendor_id,omitempty"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty"`
	FailedAt      *time.Time `json:"failed_at,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// MarkSent transitions pending→sent and stamps SentAt.
func (l *CommunicationLog) MarkSent(now time.Time) error {
	if l.Status != LogStatusPending {
		return fmt.Errorf("cannot mark log %s sent from status %s", l.ID, l.Status)
	}
	l.Status = LogStatusSent
	l.SentAt = &now
	l.UpdatedAt = now
	return nil
}

// SetVendorID records the vendor correlation id. It is settable at most
// once and only after the log reached sent.
func (l *CommunicationLog) SetVendorID(id string, now time.Time) error {
	if l.VendorID != "" {
		return ErrVendorIDAlreadySet
	}
	if l.Status == LogStatusPending {
		return ErrVendorIDBeforeSent
	}
	l.VendorID = id
	l.UpdatedAt = now
	return nil
}

// MarkFailed transitions sent→failed with a reason. The delivery worker
// uses it for gateway rejects and hard gateway errors.
func (l *CommunicationLog) MarkFailed(reason string, now time.Time) error {
	if l.Status != LogStatusSent {
		return fmt.Errorf("cannot fail log %s from status %s", l.ID, l.Status)
	}
	l.Status = LogStatusFailed
	l.FailedAt = &now
	l.DeliveredAt = nil
	l.FailureReason = reason
	l.UpdatedAt = now
	return nil
}

// ApplyReceipt reconciles an asynchronous confirmation onto the log.
// Application is last-writer-wins between delivered and failed: a replayed
// or out-of-order receipt overwrites the previous terminal state. It never
// regresses a log that has not been sent yet.
func (l *CommunicationLog) ApplyReceipt(status LogStatus, reason string, now time.Time) error {
	if l.Status == LogStatusPending {
		return fmt.Errorf("receipt for log %s before delivery attempt", l.ID)
	}

	switch status {
	case LogStatusDelivered:
		l.Status = LogStatusDelivered
		l.DeliveredAt = &now
		l.FailedAt = nil
		l.FailureReason = ""
	case LogStatusFailed:
		l.Status = LogStatusFailed
		l.FailedAt = &now
		l.DeliveredAt = nil
		l.FailureReason = reason
	default:
		return fmt.Errorf("invalid receipt status %q for log %s", status, l.ID)
	}

	l.UpdatedAt = now
	return nil
}
