package store

import (
	"context"
	"errors"

	"CampaignPulse/internal/models"
)

var (
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrLogNotFound      = errors.New("communication log not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrOrderNotFound    = errors.New("order not found")
)

// CampaignStore persists campaigns for the orchestrator.
type CampaignStore interface {
	CreateCampaign(ctx context.Context, c *models.Campaign) error
	GetCampaign(ctx context.Context, id string) (*models.Campaign, error)
	UpdateCampaign(ctx context.Context, c *models.Campaign) error
}

// LogStore persists communication logs. UpdateLogs is the bulk
// reconciliation call used by the receipt batcher; UpdateLog is its
// per-item fallback.
type LogStore interface {
	CreateLog(ctx context.Context, l *models.CommunicationLog) error
	GetLog(ctx context.Context, id string) (*models.CommunicationLog, error)
	UpdateLog(ctx context.Context, l *models.CommunicationLog) error
	UpdateLogs(ctx context.Context, ls []*models.CommunicationLog) error
	// LogsByCampaign supports campaign delivery stats.
	LogsByCampaign(ctx context.Context, campaignID string) ([]models.CommunicationLog, error)
}

// CustomerStore is the CRM collaborator the ingest worker mutates and the
// pipeline reads identities from.
type CustomerStore interface {
	PutCustomer(ctx context.Context, c *models.Customer) error
	GetCustomer(ctx context.Context, id string) (*models.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error
}

// OrderStore is the CRM order collaborator for the ingest worker.
type OrderStore interface {
	PutOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	DeleteOrder(ctx context.Context, id string) error
}
