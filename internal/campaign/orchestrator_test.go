package campaign

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"CampaignPulse/internal/models"
	"CampaignPulse/internal/queue"
	"CampaignPulse/internal/store"
)

type fixture struct {
	orch  *Orchestrator
	mem   *store.Memory
	queue *queue.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	mem := store.NewMemory()
	q := queue.NewStore(logger, queue.Options{})
	return &fixture{
		orch:  NewOrchestrator(mem, mem, mem, q, logger),
		mem:   mem,
		queue: q,
	}
}

func (f *fixture) seedCustomers(t *testing.T, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("cust-%d", i)
		require.NoError(t, f.mem.PutCustomer(context.Background(), &models.Customer{
			ID:        id,
			FirstName: fmt.Sprintf("First%d", i),
			Email:     id + "@example.com",
		}))
		ids = append(ids, id)
	}
	return ids
}

func TestLaunchEnqueuesCampaignItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orch.Launch(ctx, "camp-1", []string{"a"}, "hi")
	require.NoError(t, err)

	item, err := f.queue.DequeueNext(ctx, models.QueueCampaignProcess)
	require.NoError(t, err)
	p, err := models.DecodePayload(item.Type, item.Payload)
	require.NoError(t, err)
	launch := p.(models.CampaignLaunchPayload)
	assert.Equal(t, "camp-1", launch.CampaignID)
}

func TestLaunchValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orch.Launch(ctx, "", []string{"a"}, "hi")
	assert.Error(t, err)
	_, err = f.orch.Launch(ctx, "camp-1", nil, "hi")
	assert.Error(t, err)
}

func TestHandleLaunchFanOutCompleteness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 7
	customerIDs := f.seedCustomers(t, n)
	c, err := f.orch.Create(ctx, "spring sale", "hi {first_name}")
	require.NoError(t, err)

	require.NoError(t, f.orch.HandleLaunch(ctx, models.CampaignLaunchPayload{
		CampaignID:  c.ID,
		CustomerIDs: customerIDs,
	}))

	got, err := f.mem.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusCompleted, got.Status)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.CompletedAt)

	// Exactly one pending log per customer, each rendered.
	logs, err := f.mem.LogsByCampaign(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, logs, n)
	seen := make(map[string]bool)
	for _, lg := range logs {
		assert.Equal(t, models.LogStatusPending, lg.Status)
		assert.False(t, seen[lg.CustomerID], "customer %s targeted twice", lg.CustomerID)
		seen[lg.CustomerID] = true
		assert.NotContains(t, lg.Message, "{first_name}")
	}

	// Exactly one delivery_send item per customer, each referencing a
	// distinct log.
	logIDs := make(map[string]bool)
	for i := 0; i < n; i++ {
		item, err := f.queue.DequeueNext(ctx, models.QueueDeliverySend)
		require.NoError(t, err)
		p, err := models.DecodePayload(item.Type, item.Payload)
		require.NoError(t, err)
		send := p.(models.DeliverySendPayload)
		assert.False(t, logIDs[send.LogID])
		logIDs[send.LogID] = true
	}
	_, err = f.queue.DequeueNext(ctx, models.QueueDeliverySend)
	assert.ErrorIs(t, err, queue.ErrNoItem)
}

func TestHandleLaunchIgnoresNonLaunchableCampaign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.orch.Create(ctx, "x", "y")
	require.NoError(t, err)
	require.NoError(t, f.orch.Cancel(ctx, c.ID))

	// Caller error: no retry, no state change.
	require.NoError(t, f.orch.HandleLaunch(ctx, models.CampaignLaunchPayload{
		CampaignID:  c.ID,
		CustomerIDs: []string{"a"},
	}))

	got, err := f.mem.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusCancelled, got.Status)
}

func TestHandleLaunchFailureMarksCampaignFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ids := f.seedCustomers(t, 2)
	c, err := f.orch.Create(ctx, "x", "y")
	require.NoError(t, err)

	// Third customer does not exist; the fan-out raises mid-way.
	err = f.orch.HandleLaunch(ctx, models.CampaignLaunchPayload{
		CampaignID:  c.ID,
		CustomerIDs: append(ids, "ghost"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrCustomerNotFound)

	got, err := f.mem.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusFailed, got.Status)

	// Partial fan-out is left behind: logs for the customers processed
	// before the failure.
	logs, err := f.mem.LogsByCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestHandleLaunchUnknownCampaignRetryable(t *testing.T) {
	f := newFixture(t)
	err := f.orch.HandleLaunch(context.Background(), models.CampaignLaunchPayload{
		CampaignID:  "ghost",
		CustomerIDs: []string{"a"},
	})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrCampaignNotFound))
}

func TestPauseResumeCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ids := f.seedCustomers(t, 1)
	c, err := f.orch.Create(ctx, "x", "y")
	require.NoError(t, err)

	// Pausing a draft is invalid.
	assert.Error(t, f.orch.Pause(ctx, c.ID))

	require.NoError(t, f.orch.HandleLaunch(ctx, models.CampaignLaunchPayload{
		CampaignID:  c.ID,
		CustomerIDs: ids,
	}))

	// Completed campaigns are terminal.
	assert.Error(t, f.orch.Pause(ctx, c.ID))
	assert.Error(t, f.orch.Cancel(ctx, c.ID))

	c2, err := f.orch.Create(ctx, "x2", "y")
	require.NoError(t, err)
	require.NoError(t, f.orch.Cancel(ctx, c2.ID))
	assert.Error(t, f.orch.Resume(ctx, c2.ID))
}
