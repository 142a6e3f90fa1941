package campaign

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"CampaignPulse/internal/models"
	"CampaignPulse/internal/queue"
	"CampaignPulse/internal/store"
)

// Orchestrator fans a single launch intent out into one delivery intent
// per targeted customer and drives campaign status transitions.
type Orchestrator struct {
	campaigns store.CampaignStore
	customers store.CustomerStore
	logs      store.LogStore
	queue     *queue.Store
	log       *zap.Logger
}

func NewOrchestrator(
	campaigns store.CampaignStore,
	customers store.CustomerStore,
	logs store.LogStore,
	q *queue.Store,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		campaigns: campaigns,
		customers: customers,
		logs:      logs,
		queue:     q,
		log:       logger,
	}
}

// Create registers a draft campaign.
func (o *Orchestrator) Create(ctx context.Context, name, template string) (*models.Campaign, error) {
	now := time.Now().UTC()
	c := &models.Campaign{
		ID:        uuid.NewString(),
		Name:      name,
		Template:  template,
		Status:    models.CampaignStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := o.campaigns.CreateCampaign(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Launch enqueues one campaign_process item carrying the fan-out list.
// This is the producer side; HandleLaunch is the worker side.
func (o *Orchestrator) Launch(ctx context.Context, campaignID string, customerIDs []string, message string) (string, error) {
	if campaignID == "" {
		return "", fmt.Errorf("campaign id is required")
	}
	if len(customerIDs) == 0 {
		return "", fmt.Errorf("campaign %s has no target customers", campaignID)
	}

	payload, err := json.Marshal(models.CampaignLaunchPayload{
		CampaignID:  campaignID,
		CustomerIDs: customerIDs,
		Message:     message,
	})
	if err != nil {
		return "", err
	}

	return o.queue.Enqueue(ctx, models.QueueCampaignProcess, payload, 0)
}

// HandleLaunch is the campaign worker handler: it validates the campaign,
// flips it to running, creates one pending log plus one delivery_send
// item per customer, and flips the campaign to completed once the fan-out
// finishes. Completed means fan-out done; deliveries resolve
// asynchronously afterwards. The fan-out is not transactional: a crash
// midway leaves a partial fan-out behind.
func (o *Orchestrator) HandleLaunch(ctx context.Context, p models.CampaignLaunchPayload) error {
	c, err := o.campaigns.GetCampaign(ctx, p.CampaignID)
	if err != nil {
		return err
	}

	if c.Status != models.CampaignStatusDraft && c.Status != models.CampaignStatusScheduled {
		// Caller error: launching a campaign in any other state is not
		// retried.
		o.log.Warn("launch ignored for campaign in non-launchable state",
			zap.String("campaign_id", c.ID),
			zap.String("status", string(c.Status)),
		)
		return nil
	}

	now := time.Now().UTC()
	if err := c.TransitionTo(models.CampaignStatusRunning, now); err != nil {
		return err
	}
	if err := o.campaigns.UpdateCampaign(ctx, c); err != nil {
		return err
	}

	template := p.Message
	if template == "" {
		template = c.Template
	}

	if err := o.fanOut(ctx, c, p.CustomerIDs, template); err != nil {
		o.fail(ctx, c)
		return err
	}

	if err := c.TransitionTo(models.CampaignStatusCompleted, time.Now().UTC()); err != nil {
		return err
	}
	if err := o.campaigns.UpdateCampaign(ctx, c); err != nil {
		return err
	}

	o.log.Info("campaign fan-out completed",
		zap.String("campaign_id", c.ID),
		zap.Int("customers", len(p.CustomerIDs)),
	)
	return nil
}

func (o *Orchestrator) fanOut(ctx context.Context, c *models.Campaign, customerIDs []string, template string) error {
	for _, customerID := range customerIDs {
		cust, err := o.customers.GetCustomer(ctx, customerID)
		if err != nil {
			return fmt.Errorf("fan-out customer %s: %w", customerID, err)
		}

		now := time.Now().UTC()
		lg := &models.CommunicationLog{
			ID:         uuid.NewString(),
			CampaignID: c.ID,
			CustomerID: customerID,
			Message:    Render(template, cust),
			Status:     models.LogStatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := o.logs.CreateLog(ctx, lg); err != nil {
			return fmt.Errorf("fan-out log for customer %s: %w", customerID, err)
		}

		payload, err := json.Marshal(models.DeliverySendPayload{LogID: lg.ID})
		if err != nil {
			return err
		}
		if _, err := o.queue.Enqueue(ctx, models.QueueDeliverySend, payload, 0); err != nil {
			return fmt.Errorf("fan-out enqueue for customer %s: %w", customerID, err)
		}
	}

	return nil
}

func (o *Orchestrator) fail(ctx context.Context, c *models.Campaign) {
	if err := c.TransitionTo(models.CampaignStatusFailed, time.Now().UTC()); err != nil {
		o.log.Error("campaign failed transition rejected", zap.String("campaign_id", c.ID), zap.Error(err))
		return
	}
	if err := o.campaigns.UpdateCampaign(ctx, c); err != nil {
		o.log.Error("campaign failed status not persisted", zap.String("campaign_id", c.ID), zap.Error(err))
	}
}

// Pause suspends a running campaign.
func (o *Orchestrator) Pause(ctx context.Context, id string) error {
	return o.transition(ctx, id, models.CampaignStatusPaused)
}

// Resume returns a paused campaign to running.
func (o *Orchestrator) Resume(ctx context.Context, id string) error {
	return o.transition(ctx, id, models.CampaignStatusRunning)
}

// Cancel terminally cancels a campaign from any pre-completion state.
func (o *Orchestrator) Cancel(ctx context.Context, id string) error {
	return o.transition(ctx, id, models.CampaignStatusCancelled)
}

func (o *Orchestrator) transition(ctx context.Context, id string, next models.CampaignStatus) error {
	c, err := o.campaigns.GetCampaign(ctx, id)
	if err != nil {
		return err
	}
	if err := c.TransitionTo(next, time.Now().UTC()); err != nil {
		return err
	}
	return o.campaigns.UpdateCampaign(ctx, c)
}
