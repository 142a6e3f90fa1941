package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"CampaignPulse/internal/gateway"
	"CampaignPulse/internal/metrics"
	"CampaignPulse/internal/models"
	"CampaignPulse/internal/queue"
	"CampaignPulse/internal/store"
)

// Handler processes one delivery_send item: it moves the log to sent,
// calls the gateway and, on acceptance, enqueues the receipt that will
// settle the log asynchronously.
type Handler struct {
	logs      store.LogStore
	customers store.CustomerStore
	gateway   *gateway.Gateway
	queue     *queue.Store
	log       *zap.Logger
}

func NewHandler(
	logs store.LogStore,
	customers store.CustomerStore,
	gateway *gateway.Gateway,
	q *queue.Store,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		logs:      logs,
		customers: customers,
		gateway:   gateway,
		queue:     q,
		log:       logger,
	}
}

// Process delivers the communication referenced by p. A log that already
// left pending is a duplicate redelivery of the queue item; it no-ops so
// a customer never receives a second attempt.
func (h *Handler) Process(ctx context.Context, p models.DeliverySendPayload) error {
	lg, err := h.logs.GetLog(ctx, p.LogID)
	if err != nil {
		return err
	}

	if lg.Status != models.LogStatusPending {
		h.log.Debug("skipping redelivered log",
			zap.String("log_id", lg.ID),
			zap.String("status", string(lg.Status)),
		)
		return nil
	}

	if err := lg.MarkSent(time.Now().UTC()); err != nil {
		return err
	}
	if err := h.logs.UpdateLog(ctx, lg); err != nil {
		return err
	}

	cust, err := h.customers.GetCustomer(ctx, lg.CustomerID)
	if err != nil {
		return h.failLog(ctx, lg, err.Error(), err)
	}

	ack, err := h.gateway.Deliver(ctx, gateway.Request{
		CustomerID:    cust.ID,
		CustomerName:  cust.FirstName + " " + cust.LastName,
		CustomerEmail: cust.Email,
		Message:       lg.Message,
		CampaignID:    lg.CampaignID,
	})
	if err != nil {
		// The log fails once here; the queue item retries, and the
		// pending-status guard keeps the retry from flipping it again.
		return h.failLog(ctx, lg, err.Error(), err)
	}

	if !ack.Accepted {
		// A vendor rejection is final: fail the log, no receipt, and
		// complete the queue item.
		metrics.DeliveryFailures.Inc()
		return h.failLog(ctx, lg, ack.Error, nil)
	}

	if err := lg.SetVendorID(ack.VendorID, time.Now().UTC()); err != nil {
		return err
	}
	if err := h.logs.UpdateLog(ctx, lg); err != nil {
		return err
	}

	// The vendor's asynchronous outcome is simulated through this same
	// synchronous path; out-of-band receipts enter through the API seam.
	receipt, err := json.Marshal(models.ReceiptPayload{
		LogID:    lg.ID,
		VendorID: ack.VendorID,
		Status:   string(models.LogStatusDelivered),
	})
	if err != nil {
		return err
	}
	if _, err := h.queue.Enqueue(ctx, models.QueueReceiptProcess, receipt, 0); err != nil {
		return fmt.Errorf("enqueue receipt for log %s: %w", lg.ID, err)
	}

	metrics.DeliveriesSent.Inc()
	h.log.Info("delivery accepted",
		zap.String("log_id", lg.ID),
		zap.String("vendor_id", ack.VendorID),
	)
	return nil
}

func (h *Handler) failLog(ctx context.Context, lg *models.CommunicationLog, reason string, cause error) error {
	if reason == "" {
		reason = "delivery rejected"
	}
	if err := lg.MarkFailed(reason, time.Now().UTC()); err != nil {
		return err
	}
	if err := h.logs.UpdateLog(ctx, lg); err != nil {
		return err
	}

	h.log.Warn("delivery failed",
		zap.String("log_id", lg.ID),
		zap.String("reason", reason),
	)

	if cause != nil {
		metrics.DeliveryFailures.Inc()
	}
	return cause
}
