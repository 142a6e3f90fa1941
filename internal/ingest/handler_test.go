package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"CampaignPulse/internal/models"
	"CampaignPulse/internal/store"
)

func newHandler(t *testing.T) (*Handler, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return NewHandler(mem, mem, zaptest.NewLogger(t)), mem
}

func TestApplyCustomerLifecycle(t *testing.T) {
	h, mem := newHandler(t)
	ctx := context.Background()

	require.NoError(t, h.Apply(ctx, models.CustomerIngestPayload{
		Op:       models.MutationCreate,
		Customer: models.Customer{ID: "c1", FirstName: "Ada", Email: "ada@example.com"},
	}))

	got, err := mem.GetCustomer(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.FirstName)

	require.NoError(t, h.Apply(ctx, models.CustomerIngestPayload{
		Op:       models.MutationUpdate,
		Customer: models.Customer{ID: "c1", FirstName: "Grace", Email: "ada@example.com"},
	}))
	got, err = mem.GetCustomer(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Grace", got.FirstName)

	require.NoError(t, h.Apply(ctx, models.CustomerIngestPayload{
		Op:       models.MutationDelete,
		Customer: models.Customer{ID: "c1"},
	}))
	_, err = mem.GetCustomer(ctx, "c1")
	assert.ErrorIs(t, err, store.ErrCustomerNotFound)
}

func TestApplyOrderLifecycle(t *testing.T) {
	h, mem := newHandler(t)
	ctx := context.Background()

	require.NoError(t, h.Apply(ctx, models.OrderIngestPayload{
		Op:    models.MutationCreate,
		Order: models.Order{ID: "o1", CustomerID: "c1", Product: "boots", AmountCent: 4500},
	}))

	got, err := mem.GetOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "boots", got.Product)

	require.NoError(t, h.Apply(ctx, models.OrderIngestPayload{
		Op:    models.MutationDelete,
		Order: models.Order{ID: "o1"},
	}))
	_, err = mem.GetOrder(ctx, "o1")
	assert.ErrorIs(t, err, store.ErrOrderNotFound)
}

func TestApplyErrors(t *testing.T) {
	h, _ := newHandler(t)
	ctx := context.Background()

	// Deleting a missing record is a handler error the queue may retry.
	assert.Error(t, h.Apply(ctx, models.CustomerIngestPayload{
		Op:       models.MutationDelete,
		Customer: models.Customer{ID: "ghost"},
	}))

	assert.Error(t, h.Apply(ctx, models.CustomerIngestPayload{Op: "upsert"}))
	assert.Error(t, h.Apply(ctx, models.DeliverySendPayload{LogID: "x"}))
}
