package queue

import (
	"context"

	"CampaignPulse/internal/models"
)

// Persistence is the durable record behind the in-memory index. Every
// lifecycle mutation is written through before it takes effect.
type Persistence interface {
	// SaveItem inserts or updates one queue item.
	SaveItem(ctx context.Context, item *models.QueueItem) error
	// LoadOpen returns all pending and processing items for restart recovery.
	LoadOpen(ctx context.Context) ([]models.QueueItem, error)
}

// NopPersistence keeps the store cache-only. Used by tests and when no
// database is configured.
type NopPersistence struct{}

func (NopPersistence) SaveItem(context.Context, *models.QueueItem) error { return nil }

func (NopPersistence) LoadOpen(context.Context) ([]models.QueueItem, error) { return nil, nil }
