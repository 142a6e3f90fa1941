package store

import (
	"context"
	"fmt"
	"sync"

	"CampaignPulse/internal/models"
)

// Memory is an in-process implementation of every store interface. It
// backs tests and database-less deployments.
type Memory struct {
	mu        sync.RWMutex
	campaigns map[string]models.Campaign
	logs      map[string]models.CommunicationLog
	customers map[string]models.Customer
	orders    map[string]models.Order
}

func NewMemory() *Memory {
	return &Memory{
		campaigns: make(map[string]models.Campaign),
		logs:      make(map[string]models.CommunicationLog),
		customers: make(map[string]models.Customer),
		orders:    make(map[string]models.Order),
	}
}

func (m *Memory) CreateCampaign(_ context.Context, c *models.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.campaigns[c.ID]; ok {
		return fmt.Errorf("campaign %s already exists", c.ID)
	}
	m.campaigns[c.ID] = *c
	return nil
}

func (m *Memory) GetCampaign(_ context.Context, id string) (*models.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCampaignNotFound, id)
	}
	return &c, nil
}

func (m *Memory) UpdateCampaign(_ context.Context, c *models.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.campaigns[c.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrCampaignNotFound, c.ID)
	}
	m.campaigns[c.ID] = *c
	return nil
}

func (m *Memory) CreateLog(_ context.Context, l *models.CommunicationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.logs[l.ID]; ok {
		return fmt.Errorf("communication log %s already exists", l.ID)
	}
	m.logs[l.ID] = *l
	return nil
}

func (m *Memory) GetLog(_ context.Context, id string) (*models.CommunicationLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.logs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLogNotFound, id)
	}
	return &l, nil
}

func (m *Memory) UpdateLog(_ context.Context, l *models.CommunicationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.logs[l.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrLogNotFound, l.ID)
	}
	m.logs[l.ID] = *l
	return nil
}

func (m *Memory) UpdateLogs(ctx context.Context, ls []*models.CommunicationLog) error {
	for _, l := range ls {
		if err := m.UpdateLog(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) LogsByCampaign(_ context.Context, campaignID string) ([]models.CommunicationLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.CommunicationLog
	for _, l := range m.logs {
		if l.CampaignID == campaignID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *Memory) PutCustomer(_ context.Context, c *models.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[c.ID] = *c
	return nil
}

func (m *Memory) GetCustomer(_ context.Context, id string) (*models.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCustomerNotFound, id)
	}
	return &c, nil
}

func (m *Memory) DeleteCustomer(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customers[id]; !ok {
		return fmt.Errorf("%w: %s", ErrCustomerNotFound, id)
	}
	delete(m.customers, id)
	return nil
}

func (m *Memory) PutOrder(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = *o
	return nil
}

func (m *Memory) GetOrder(_ context.Context, id string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	return &o, nil
}

func (m *Memory) DeleteOrder(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	delete(m.orders, id)
	return nil
}
