package queue

import (
	"container/heap"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"CampaignPulse/internal/metrics"
	"CampaignPulse/internal/models"
)

var (
	// ErrNoItem signals an empty queue on dequeue.
	ErrNoItem = errors.New("queue has no eligible item")
	// ErrUnknownQueue is a producer error for an unrecognized queue type.
	ErrUnknownQueue = errors.New("unknown queue type")
	// ErrEmptyPayload is a producer error for an empty or invalid payload.
	ErrEmptyPayload = errors.New("payload must be valid non-empty JSON")
	// ErrUnknownItem is returned for transitions on ids the store never saw.
	ErrUnknownItem = errors.New("unknown queue item")
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock uses the system time in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// entry pins a queue item to its arrival sequence so equal priorities
// drain FIFO across retries.
type entry struct {
	item *models.QueueItem
	seq  uint64
}

// Store owns queue item lifecycle: a fast in-memory index keyed by queue
// type over a write-through persistence seam. It is the sole mutator of
// item status and attempts; all claim operations serialize on one mutex so
// two overlapping worker ticks can never claim the same item.
type Store struct {
	mu      sync.Mutex
	items   map[string]*entry
	pending map[models.QueueType]*itemHeap
	seq     uint64

	persist     Persistence
	clock       Clock
	log         *zap.Logger
	maxAttempts int
	retryDelay  time.Duration
}

type Options struct {
	MaxAttempts int
	RetryDelay  time.Duration
	Persistence Persistence
	Clock       Clock
}

func NewStore(logger *zap.Logger, opts Options) *Store {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Second
	}
	if opts.Persistence == nil {
		opts.Persistence = NopPersistence{}
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}

	return &Store{
		items:       make(map[string]*entry),
		pending:     make(map[models.QueueType]*itemHeap),
		persist:     opts.Persistence,
		clock:       opts.Clock,
		log:         logger,
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
	}
}

// Enqueue creates a pending item visible to dequeue immediately.
// Validation failures are producer errors surfaced synchronously.
func (s *Store) Enqueue(ctx context.Context, t models.QueueType, payload json.RawMessage, priority int) (string, error) {
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownQueue, t)
	}
	if len(payload) == 0 || !json.Valid(payload) {
		return "", ErrEmptyPayload
	}

	now := s.clock.Now()
	item := &models.QueueItem{
		ID:          uuid.NewString(),
		Type:        t,
		Payload:     payload,
		Status:      models.QueueStatusPending,
		Priority:    priority,
		MaxAttempts: s.maxAttempts,
		AvailableAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist.SaveItem(ctx, item); err != nil {
		return "", fmt.Errorf("persist queue item: %w", err)
	}

	e := &entry{item: item, seq: s.nextSeq()}
	s.items[item.ID] = e
	s.push(e)
	s.updateDepth(t)

	return item.ID, nil
}

// DequeueNext claims the highest-priority eligible pending item of type t
// (FIFO within equal priority) and transitions it to processing. The
// claim-and-transition is atomic under the store mutex: concurrent callers
// never receive the same item. Returns a copy.
func (s *Store) DequeueNext(ctx context.Context, t models.QueueType) (models.QueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.pending[t]
	if !ok || h.Len() == 0 {
		return models.QueueItem{}, ErrNoItem
	}

	now := s.clock.Now()

	// Items inside their retry delay stay pending but invisible; skip
	// them without disturbing their ordering.
	var skipped []*entry
	var claimed *entry
	for h.Len() > 0 {
		e := heap.Pop(h).(*entry)
		if e.item.AvailableAt.After(now) {
			skipped = append(skipped, e)
			continue
		}
		claimed = e
		break
	}
	for _, e := range skipped {
		heap.Push(h, e)
	}
	if claimed == nil {
		return models.QueueItem{}, ErrNoItem
	}

	claimed.item.Status = models.QueueStatusProcessing
	claimed.item.UpdatedAt = now

	if err := s.persist.SaveItem(ctx, claimed.item); err != nil {
		// Roll the claim back so the item stays eligible.
		claimed.item.Status = models.QueueStatusPending
		heap.Push(h, claimed)
		return models.QueueItem{}, fmt.Errorf("persist claim: %w", err)
	}

	s.updateDepth(t)
	return *claimed.item, nil
}

// MarkCompleted transitions processing→completed. Calling it on an already
// completed item is a no-op.
func (s *Store) MarkCompleted(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	if e.item.Status == models.QueueStatusCompleted {
		return nil
	}

	e.item.Status = models.QueueStatusCompleted
	e.item.UpdatedAt = s.clock.Now()

	if err := s.persist.SaveItem(ctx, e.item); err != nil {
		return fmt.Errorf("persist completion: %w", err)
	}
	return nil
}

// MarkFailed records a handler failure. The item returns to pending after
// the retry delay while attempts remain, and fails permanently once
// attempts reach the item's max.
func (s *Store) MarkFailed(ctx context.Context, id string, handlerErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}

	now := s.clock.Now()
	e.item.Attempts++
	if handlerErr != nil {
		e.item.LastError = handlerErr.Error()
	}
	e.item.UpdatedAt = now

	if e.item.Attempts < e.item.MaxAttempts {
		e.item.Status = models.QueueStatusPending
		e.item.AvailableAt = now.Add(s.retryDelay)
		if err := s.persist.SaveItem(ctx, e.item); err != nil {
			return fmt.Errorf("persist retry: %w", err)
		}
		s.push(e)
		s.updateDepth(e.item.Type)
		return nil
	}

	e.item.Status = models.QueueStatusFailed
	if err := s.persist.SaveItem(ctx, e.item); err != nil {
		return fmt.Errorf("persist failure: %w", err)
	}
	s.log.Warn("queue item failed permanently",
		zap.String("item_id", id),
		zap.String("queue", string(e.item.Type)),
		zap.Int("attempts", e.item.Attempts),
		zap.String("last_error", e.item.LastError),
	)
	return nil
}

// Retry manually re-enters a permanently failed item into the pipeline,
// resetting its attempt counter. The item re-queues behind the existing
// equal-priority backlog, like a fresh arrival.
func (s *Store) Retry(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	if e.item.Status != models.QueueStatusFailed {
		return fmt.Errorf("item %s is %s, only failed items can be retried", id, e.item.Status)
	}

	now := s.clock.Now()
	e.item.Status = models.QueueStatusPending
	e.item.Attempts = 0
	e.item.LastError = ""
	e.item.AvailableAt = now
	e.item.UpdatedAt = now

	if err := s.persist.SaveItem(ctx, e.item); err != nil {
		return fmt.Errorf("persist retry reset: %w", err)
	}
	e.seq = s.nextSeq()
	s.push(e)
	s.updateDepth(e.item.Type)
	return nil
}

// Get returns a copy of an item for inspection.
func (s *Store) Get(id string) (models.QueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[id]
	if !ok {
		return models.QueueItem{}, fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	return *e.item, nil
}

// Stats returns item counts by status, for one queue type or for all when
// t is empty.
func (s *Store) Stats(t models.QueueType) map[models.QueueStatus]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := map[models.QueueStatus]int{
		models.QueueStatusPending:    0,
		models.QueueStatusProcessing: 0,
		models.QueueStatusCompleted:  0,
		models.QueueStatusFailed:     0,
	}
	for _, e := range s.items {
		if t != "" && e.item.Type != t {
			continue
		}
		counts[e.item.Status]++
	}
	return counts
}

// Restore loads surviving items from persistence into the index after a
// restart. Pending items become claimable again; items that died while
// processing stay processing and are visible through Stats.
func (s *Store) Restore(ctx context.Context) error {
	open, err := s.persist.LoadOpen(ctx)
	if err != nil {
		return fmt.Errorf("load open queue items: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range open {
		item := open[i]
		e := &entry{item: &item, seq: s.nextSeq()}
		s.items[item.ID] = e
		if item.Status == models.QueueStatusPending {
			s.push(e)
		}
	}
	for t := range s.pending {
		s.updateDepth(t)
	}

	s.log.Info("queue store restored", zap.Int("items", len(open)))
	return nil
}

func (s *Store) nextSeq() uint64 {
	s.seq++
	return s.seq
}

func (s *Store) push(e *entry) {
	h, ok := s.pending[e.item.Type]
	if !ok {
		h = &itemHeap{}
		heap.Init(h)
		s.pending[e.item.Type] = h
	}
	heap.Push(h, e)
}

func (s *Store) updateDepth(t models.QueueType) {
	if h, ok := s.pending[t]; ok {
		metrics.QueueDepth.WithLabelValues(string(t)).Set(float64(h.Len()))
	}
}
