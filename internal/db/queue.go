package db

import (
	"context"

	"CampaignPulse/internal/models"
)

// SaveItem upserts one queue item, implementing queue.Persistence.
func (s *Store) SaveItem(ctx context.Context, item *models.QueueItem) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO queue_items
		 (id, type, payload, status, priority, attempts, max_attempts, last_error, available_at, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 ON CONFLICT (id) DO UPDATE SET
		   status=EXCLUDED.status,
		   attempts=EXCLUDED.attempts,
		   last_error=EXCLUDED.last_error,
		   available_at=EXCLUDED.available_at,
		   updated_at=EXCLUDED.updated_at`,
		item.ID,
		item.Type,
		item.Payload,
		item.Status,
		item.Priority,
		item.Attempts,
		item.MaxAttempts,
		item.LastError,
		item.AvailableAt,
		item.CreatedAt,
		item.UpdatedAt,
	)

	return err
}

// LoadOpen returns all pending and processing items for restart recovery.
func (s *Store) LoadOpen(ctx context.Context) ([]models.QueueItem, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, type, payload, status, priority, attempts, max_attempts, last_error, available_at, created_at, updated_at
		 FROM queue_items
		 WHERE status IN ($1,$2)
		 ORDER BY priority DESC, created_at ASC`,
		models.QueueStatusPending,
		models.QueueStatusProcessing,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.QueueItem
	for rows.Next() {
		var item models.QueueItem
		if err := rows.Scan(
			&item.ID,
			&item.Type,
			&item.Payload,
			&item.Status,
			&item.Priority,
			&item.Attempts,
			&item.MaxAttempts,
			&item.LastError,
			&item.AvailableAt,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}
