package receipt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"CampaignPulse/internal/metrics"
	"CampaignPulse/internal/models"
	"CampaignPulse/internal/store"
)

// Reconciler is a size/time micro-batcher for delivery confirmations. It
// flushes when the batch reaches MaxSize or MaxAge after the first
// unflushed receipt, whichever comes first. A flush tries one bulk update
// and falls back to per-item application so a single bad receipt cannot
// block the rest of the batch.
type Reconciler struct {
	logs    store.LogStore
	maxSize int
	maxAge  time.Duration
	log     *zap.Logger

	mu    sync.Mutex
	batch []models.ReceiptPayload
	timer *time.Timer
}

func NewReconciler(logs store.LogStore, maxSize int, maxAge time.Duration, logger *zap.Logger) *Reconciler {
	if maxSize <= 0 {
		maxSize = 10
	}
	if maxAge <= 0 {
		maxAge = 5 * time.Second
	}

	return &Reconciler{
		logs:    logs,
		maxSize: maxSize,
		maxAge:  maxAge,
		log:     logger,
	}
}

// Add appends one receipt to the batch, flushing synchronously when the
// size threshold is reached. The first receipt of a batch arms the age
// timer.
func (r *Reconciler) Add(ctx context.Context, p models.ReceiptPayload) error {
	r.mu.Lock()

	r.batch = append(r.batch, p)
	if len(r.batch) == 1 {
		r.timer = time.AfterFunc(r.maxAge, func() {
			// Batch aged out before filling up.
			r.Flush(context.Background())
		})
	}

	if len(r.batch) < r.maxSize {
		r.mu.Unlock()
		return nil
	}

	batch := r.take()
	r.mu.Unlock()

	r.apply(ctx, batch)
	return nil
}

// Flush applies whatever is buffered. The receipt worker's stop hook
// calls it so no confirmation is lost on a clean shutdown.
func (r *Reconciler) Flush(ctx context.Context) error {
	r.mu.Lock()
	batch := r.take()
	r.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	r.apply(ctx, batch)
	return nil
}

// take drains the batch and disarms the age timer. Caller holds r.mu.
func (r *Reconciler) take() []models.ReceiptPayload {
	batch := r.batch
	r.batch = nil
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	return batch
}

func (r *Reconciler) apply(ctx context.Context, batch []models.ReceiptPayload) {
	metrics.ReceiptBatches.Inc()

	updated := make([]*models.CommunicationLog, 0, len(batch))
	for _, p := range batch {
		lg, err := r.resolve(ctx, p)
		if err != nil {
			// A bad receipt never blocks the batch.
			r.log.Warn("receipt dropped",
				zap.String("log_id", p.LogID),
				zap.String("vendor_id", p.VendorID),
				zap.Error(err),
			)
			continue
		}
		updated = append(updated, lg)
	}
	if len(updated) == 0 {
		return
	}

	err := r.logs.UpdateLogs(ctx, updated)
	if err == nil {
		metrics.ReceiptsReconciled.Add(float64(len(updated)))
		return
	}
	r.log.Warn("bulk reconciliation failed, applying per item",
		zap.Int("receipts", len(updated)),
		zap.Error(err),
	)

	for _, lg := range updated {
		if err := r.logs.UpdateLog(ctx, lg); err != nil {
			r.log.Error("receipt application failed",
				zap.String("log_id", lg.ID),
				zap.Error(err),
			)
			continue
		}
		metrics.ReceiptsReconciled.Inc()
	}
}

func (r *Reconciler) resolve(ctx context.Context, p models.ReceiptPayload) (*models.CommunicationLog, error) {
	lg, err := r.logs.GetLog(ctx, p.LogID)
	if err != nil {
		return nil, err
	}

	status := models.LogStatus(p.Status)
	if err := lg.ApplyReceipt(status, p.FailureReason, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("apply receipt: %w", err)
	}
	return lg, nil
}
