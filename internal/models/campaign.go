package models

import (
	"fmt"
	"time"
)

type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusScheduled CampaignStatus = "scheduled"
	CampaignStatusRunning   CampaignStatus = "running"
	CampaignStatusPaused    CampaignStatus = "paused"
	// CampaignStatusCompleted means the fan-out finished: every targeted
	// customer has a log row and a delivery queue item. Individual
	// deliveries resolve asynchronously afterwards.
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusCancelled CampaignStatus = "cancelled"
	CampaignStatusFailed    CampaignStatus = "failed"
)

var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignStatusDraft:     {CampaignStatusScheduled, CampaignStatusRunning, CampaignStatusCancelled},
	CampaignStatusScheduled: {CampaignStatusRunning, CampaignStatusCancelled},
	CampaignStatusRunning:   {CampaignStatusPaused, CampaignStatusCompleted, CampaignStatusFailed, CampaignStatusCancelled},
	CampaignStatusPaused:    {CampaignStatusRunning, CampaignStatusCancelled},
}

type Campaign struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Template    string         `json:"template"`
	Status      CampaignStatus `json:"status"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CanTransitionTo reports whether the state machine allows moving to next.
func (c *Campaign) CanTransitionTo(next CampaignStatus) bool {
	for _, allowed := range campaignTransitions[c.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransitionTo moves the campaign to next, stamping StartedAt/CompletedAt
// where the target state requires it.
func (c *Campaign) TransitionTo(next CampaignStatus, now time.Time) error {
	if !c.CanTransitionTo(next) {
		return fmt.Errorf("campaign %s cannot transition %s→%s", c.ID, c.Status, next)
	}

	switch next {
	case CampaignStatusRunning:
		if c.StartedAt == nil {
			c.StartedAt = &now
		}
	case CampaignStatusCompleted:
		c.CompletedAt = &now
	}

	c.Status = next
	c.UpdatedAt = now
	return nil
}
