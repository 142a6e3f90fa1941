package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"CampaignPulse/internal/metrics"
	"CampaignPulse/internal/models"
	"CampaignPulse/internal/queue"
)

// Handler processes one decoded queue item.
type Handler func(ctx context.Context, item models.QueueItem, payload models.Payload) error

// Loop is a single-flight poller draining one or more queue types. The
// next tick is armed only after the current handler settles, so two
// handler invocations from one loop can never overlap.
type Loop struct {
	name     string
	types    []models.QueueType
	interval time.Duration
	handler  Handler
	store    *queue.Store
	log      *zap.Logger

	// stopHook runs after the in-flight handler finishes; the receipt
	// loop uses it to flush its batch.
	stopHook func(ctx context.Context) error

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

type LoopConfig struct {
	Name     string
	Types    []models.QueueType
	Interval time.Duration
	Handler  Handler
	StopHook func(ctx context.Context) error
}

func NewLoop(store *queue.Store, logger *zap.Logger, cfg LoopConfig) *Loop {
	return &Loop{
		name:     cfg.Name,
		types:    cfg.Types,
		interval: cfg.Interval,
		handler:  cfg.Handler,
		store:    store,
		log:      logger.With(zap.String("worker", cfg.Name)),
		stopHook: cfg.StopHook,
	}
}

// Start launches the polling goroutine. Calling Start on a running loop
// is a no-op.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return
	}
	l.running = true
	l.stop = make(chan struct{})
	l.done = make(chan struct{})

	l.log.Info("worker started", zap.Duration("interval", l.interval))

	go l.run(ctx, l.stop, l.done)
}

// Stop prevents new ticks, waits for the in-flight handler to finish and
// runs the stop hook. Calling Stop on a stopped loop is a no-op.
func (l *Loop) Stop(ctx context.Context) {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	stop, done := l.stop, l.done
	l.mu.Unlock()

	close(stop)
	<-done

	if l.stopHook != nil {
		if err := l.stopHook(ctx); err != nil {
			l.log.Error("worker stop hook failed", zap.Error(err))
		}
	}

	l.log.Info("worker stopped")
}

func (l *Loop) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	timer := time.NewTimer(l.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-timer.C:
		}

		l.tick(ctx)
		timer.Reset(l.interval)
	}
}

// tick claims and processes at most one item across the loop's queue
// types. Handler outcomes are translated into queue transitions here;
// they are never re-thrown since loops run unattended.
func (l *Loop) tick(ctx context.Context) {
	for _, t := range l.types {
		item, err := l.store.DequeueNext(ctx, t)
		if errors.Is(err, queue.ErrNoItem) {
			continue
		}
		if err != nil {
			l.log.Error("dequeue failed", zap.String("queue", string(t)), zap.Error(err))
			return
		}

		l.process(ctx, item)
		return
	}
}

func (l *Loop) process(ctx context.Context, item models.QueueItem) {
	payload, err := models.DecodePayload(item.Type, item.Payload)
	if err == nil {
		err = l.handler(ctx, item, payload)
	}

	if err != nil {
		l.log.Warn("handler failed",
			zap.String("queue", string(item.Type)),
			zap.String("item_id", item.ID),
			zap.Int("attempt", item.Attempts+1),
			zap.Error(err),
		)
		metrics.ItemsFailed.WithLabelValues(string(item.Type)).Inc()

		if mErr := l.store.MarkFailed(ctx, item.ID, err); mErr != nil {
			l.log.Error("mark failed errored", zap.String("item_id", item.ID), zap.Error(mErr))
		}
		return
	}

	if mErr := l.store.MarkCompleted(ctx, item.ID); mErr != nil {
		l.log.Error("mark completed errored", zap.String("item_id", item.ID), zap.Error(mErr))
		return
	}

	metrics.ItemsProcessed.WithLabelValues(string(item.Type)).Inc()
}
