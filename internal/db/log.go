package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"CampaignPulse/internal/models"
	"CampaignPulse/internal/store"
)

func (s *Store) CreateLog(ctx context.Context, l *models.CommunicationLog) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO communication_logs
		 (id, campaign_id, customer_id, message, status, vendor_id, sent_at, delivered_at, failed_at, failure_reason, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		l.ID, l.CampaignID, l.CustomerID, l.Message, l.Status, l.VendorID,
		l.SentAt, l.DeliveredAt, l.FailedAt, l.FailureReason, l.CreatedAt, l.UpdatedAt,
	)

	return err
}

func (s *Store) GetLog(ctx context.Context, id string) (*models.CommunicationLog, error) {
	var l models.CommunicationLog
	err := s.Pool.QueryRow(ctx,
		`SELECT id, campaign_id, customer_id, message, status, vendor_id, sent_at, delivered_at, failed_at, failure_reason, created_at, updated_at
		 FROM communication_logs WHERE id=$1`,
		id,
	).Scan(&l.ID, &l.CampaignID, &l.CustomerID, &l.Message, &l.Status, &l.VendorID,
		&l.SentAt, &l.DeliveredAt, &l.FailedAt, &l.FailureReason, &l.CreatedAt, &l.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrLogNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	return &l, nil
}

func (s *Store) UpdateLog(ctx context.Context, l *models.CommunicationLog) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE communication_logs
		 SET status=$1, vendor_id=$2, sent_at=$3, delivered_at=$4, failed_at=$5, failure_reason=$6, updated_at=$7
		 WHERE id=$8`,
		l.Status, l.VendorID, l.SentAt, l.DeliveredAt, l.FailedAt, l.FailureReason, l.UpdatedAt, l.ID,
	)

	return err
}

// UpdateLogs applies a reconciliation batch in one transaction.
func (s *Store) UpdateLogs(ctx context.Context, ls []*models.CommunicationLog) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, l := range ls {
		if _, err := tx.Exec(ctx,
			`UPDATE communication_logs
			 SET status=$1, vendor_id=$2, sent_at=$3, delivered_at=$4, failed_at=$5, failure_reason=$6, updated_at=$7
			 WHERE id=$8`,
			l.Status, l.VendorID, l.SentAt, l.DeliveredAt, l.FailedAt, l.FailureReason, l.UpdatedAt, l.ID,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) LogsByCampaign(ctx context.Context, campaignID string) ([]models.CommunicationLog, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, campaign_id, customer_id, message, status, vendor_id, sent_at, delivered_at, failed_at, failure_reason, created_at, updated_at
		 FROM communication_logs WHERE campaign_id=$1 ORDER BY created_at ASC`,
		campaignID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.CommunicationLog
	for rows.Next() {
		var l models.CommunicationLog
		if err := rows.Scan(&l.ID, &l.CampaignID, &l.CustomerID, &l.Message, &l.Status, &l.VendorID,
			&l.SentAt, &l.DeliveredAt, &l.FailedAt, &l.FailureReason, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}

	return logs, rows.Err()
}
