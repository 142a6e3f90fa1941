package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"CampaignPulse/internal/models"
)

// fakeClock lets tests step through retry delays deterministically.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	return NewStore(zaptest.NewLogger(t), opts)
}

func enqueue(t *testing.T, s *Store, priority int) string {
	t.Helper()
	id, err := s.Enqueue(context.Background(), models.QueueDeliverySend,
		json.RawMessage(`{"log_id":"l1"}`), priority)
	require.NoError(t, err)
	return id
}

func TestEnqueueProducerErrors(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx := context.Background()

	_, err := s.Enqueue(ctx, "nonsense", json.RawMessage(`{}`), 0)
	assert.ErrorIs(t, err, ErrUnknownQueue)

	_, err = s.Enqueue(ctx, models.QueueDeliverySend, nil, 0)
	assert.ErrorIs(t, err, ErrEmptyPayload)

	_, err = s.Enqueue(ctx, models.QueueDeliverySend, json.RawMessage(`{"broken":`), 0)
	assert.ErrorIs(t, err, ErrEmptyPayload)
}

func TestDequeuePriorityThenFIFO(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx := context.Background()

	low1 := enqueue(t, s, 0)
	high1 := enqueue(t, s, 5)
	low2 := enqueue(t, s, 0)
	high2 := enqueue(t, s, 5)

	var order []string
	for {
		item, err := s.DequeueNext(ctx, models.QueueDeliverySend)
		if errors.Is(err, ErrNoItem) {
			break
		}
		require.NoError(t, err)
		order = append(order, item.ID)
	}

	assert.Equal(t, []string{high1, high2, low1, low2}, order)
}

func TestDequeueAtMostOneClaim(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx := context.Background()

	const total = 200
	for i := 0; i < total; i++ {
		enqueue(t, s, i%3)
	}

	claims := make(chan string, total)
	var wg sync.WaitGroup
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				item, err := s.DequeueNext(ctx, models.QueueDeliverySend)
				if errors.Is(err, ErrNoItem) {
					return
				}
				if err != nil {
					t.Error(err)
					return
				}
				claims <- item.ID
			}
		}()
	}
	wg.Wait()
	close(claims)

	seen := make(map[string]bool, total)
	for id := range claims {
		assert.False(t, seen[id], "item %s claimed twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, total)
}

func TestBoundedRetry(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(t, Options{MaxAttempts: 3, RetryDelay: 5 * time.Second, Clock: clock})
	ctx := context.Background()

	id := enqueue(t, s, 0)
	handlerErr := errors.New("gateway unreachable")

	for attempt := 1; attempt <= 3; attempt++ {
		item, err := s.DequeueNext(ctx, models.QueueDeliverySend)
		require.NoError(t, err)
		require.Equal(t, id, item.ID)

		require.NoError(t, s.MarkFailed(ctx, id, handlerErr))

		got, err := s.Get(id)
		require.NoError(t, err)
		assert.Equal(t, attempt, got.Attempts)

		if attempt < 3 {
			assert.Equal(t, models.QueueStatusPending, got.Status)

			// Invisible until the retry delay elapses.
			_, err = s.DequeueNext(ctx, models.QueueDeliverySend)
			assert.ErrorIs(t, err, ErrNoItem)
			clock.Advance(5 * time.Second)
		}
	}

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusFailed, got.Status)
	assert.Equal(t, 3, got.Attempts)
	assert.Equal(t, "gateway unreachable", got.LastError)

	// Exhausted items never come back on their own.
	clock.Advance(time.Hour)
	_, err = s.DequeueNext(ctx, models.QueueDeliverySend)
	assert.ErrorIs(t, err, ErrNoItem)
}

func TestMarkCompletedIdempotent(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx := context.Background()

	id := enqueue(t, s, 0)
	_, err := s.DequeueNext(ctx, models.QueueDeliverySend)
	require.NoError(t, err)

	require.NoError(t, s.MarkCompleted(ctx, id))
	before, err := s.Get(id)
	require.NoError(t, err)

	require.NoError(t, s.MarkCompleted(ctx, id))
	after, err := s.Get(id)
	require.NoError(t, err)

	assert.Equal(t, before, after)
}

func TestManualRetryResetsFailedItem(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(t, Options{MaxAttempts: 1, Clock: clock})
	ctx := context.Background()

	id := enqueue(t, s, 0)
	_, err := s.DequeueNext(ctx, models.QueueDeliverySend)
	require.NoError(t, err)
	require.NoError(t, s.MarkFailed(ctx, id, errors.New("boom")))

	got, err := s.Get(id)
	require.NoError(t, err)
	require.Equal(t, models.QueueStatusFailed, got.Status)

	// Only failed items are retryable.
	other := enqueue(t, s, 0)
	assert.Error(t, s.Retry(ctx, other))

	require.NoError(t, s.Retry(ctx, id))
	got, err = s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusPending, got.Status)
	assert.Zero(t, got.Attempts)
	assert.Empty(t, got.LastError)

	item, err := s.DequeueNext(ctx, models.QueueDeliverySend)
	require.NoError(t, err)
	assert.Equal(t, other, item.ID, "retried item re-queues behind the backlog")
}

func TestStatsByTypeAndOverall(t *testing.T) {
	s := newTestStore(t, Options{MaxAttempts: 1})
	ctx := context.Background()

	enqueue(t, s, 0)
	done := enqueue(t, s, 0)
	_, err := s.Enqueue(ctx, models.QueueReceiptProcess, json.RawMessage(`{"log_id":"l1"}`), 0)
	require.NoError(t, err)

	// Claim and complete one delivery item. Priority ties drain FIFO, so
	// claim both and finish the second.
	first, err := s.DequeueNext(ctx, models.QueueDeliverySend)
	require.NoError(t, err)
	second, err := s.DequeueNext(ctx, models.QueueDeliverySend)
	require.NoError(t, err)
	require.Equal(t, done, second.ID)
	require.NoError(t, s.MarkCompleted(ctx, second.ID))
	require.NoError(t, s.MarkFailed(ctx, first.ID, errors.New("x")))

	delivery := s.Stats(models.QueueDeliverySend)
	assert.Equal(t, 0, delivery[models.QueueStatusPending])
	assert.Equal(t, 1, delivery[models.QueueStatusCompleted])
	assert.Equal(t, 1, delivery[models.QueueStatusFailed])

	all := s.Stats("")
	assert.Equal(t, 1, all[models.QueueStatusPending])
	assert.Equal(t, 1, all[models.QueueStatusCompleted])
	assert.Equal(t, 1, all[models.QueueStatusFailed])
}

// persistRecorder checks write-through ordering and feeds Restore.
type persistRecorder struct {
	mu    sync.Mutex
	saved map[string]models.QueueItem
	fail  bool
}

func newPersistRecorder() *persistRecorder {
	return &persistRecorder{saved: make(map[string]models.QueueItem)}
}

func (p *persistRecorder) SaveItem(_ context.Context, item *models.QueueItem) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("disk full")
	}
	p.saved[item.ID] = *item
	return nil
}

func (p *persistRecorder) LoadOpen(context.Context) ([]models.QueueItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.QueueItem
	for _, item := range p.saved {
		if item.Status == models.QueueStatusPending || item.Status == models.QueueStatusProcessing {
			out = append(out, item)
		}
	}
	return out, nil
}

func TestEnqueueFailsWhenPersistenceFails(t *testing.T) {
	p := newPersistRecorder()
	p.fail = true
	s := newTestStore(t, Options{Persistence: p})

	_, err := s.Enqueue(context.Background(), models.QueueDeliverySend, json.RawMessage(`{}`), 0)
	require.Error(t, err)
	assert.Equal(t, 0, s.Stats("")[models.QueueStatusPending])
}

func TestRestoreRebuildsPendingIndex(t *testing.T) {
	p := newPersistRecorder()
	ctx := context.Background()

	s1 := newTestStore(t, Options{Persistence: p})
	id1, err := s1.Enqueue(ctx, models.QueueDeliverySend, json.RawMessage(`{"log_id":"l1"}`), 0)
	require.NoError(t, err)
	id2, err := s1.Enqueue(ctx, models.QueueDeliverySend, json.RawMessage(`{"log_id":"l2"}`), 0)
	require.NoError(t, err)
	_, err = s1.DequeueNext(ctx, models.QueueDeliverySend)
	require.NoError(t, err)

	// A fresh store over the same persistence sees the surviving items.
	s2 := newTestStore(t, Options{Persistence: p})
	require.NoError(t, s2.Restore(ctx))

	item, err := s2.DequeueNext(ctx, models.QueueDeliverySend)
	require.NoError(t, err)
	assert.Equal(t, id2, item.ID)

	// The item that died in processing stays processing (stuck-item gap).
	stuck, err := s2.Get(id1)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusProcessing, stuck.Status)
}
