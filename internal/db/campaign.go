package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"CampaignPulse/internal/models"
	"CampaignPulse/internal/store"
)

func (s *Store) CreateCampaign(ctx context.Context, c *models.Campaign) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO campaigns
		 (id, name, template, status, started_at, completed_at, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		c.ID,
		c.Name,
		c.Template,
		c.Status,
		c.StartedAt,
		c.CompletedAt,
		c.CreatedAt,
		c.UpdatedAt,
	)

	return err
}

func (s *Store) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	var c models.Campaign
	err := s.Pool.QueryRow(ctx,
		`SELECT id, name, template, status, started_at, completed_at, created_at, updated_at
		 FROM campaigns WHERE id=$1`,
		id,
	).Scan(&c.ID, &c.Name, &c.Template, &c.Status, &c.StartedAt, &c.CompletedAt, &c.CreatedAt, &c.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrCampaignNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	return &c, nil
}

func (s *Store) UpdateCampaign(ctx context.Context, c *models.Campaign) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE campaigns
		 SET status=$1, started_at=$2, completed_at=$3, updated_at=$4
		 WHERE id=$5`,
		c.Status,
		c.StartedAt,
		c.CompletedAt,
		c.UpdatedAt,
		c.ID,
	)

	return err
}
