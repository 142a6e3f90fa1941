package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"CampaignPulse/internal/models"
	"CampaignPulse/internal/store"
)

// Handler applies one customer or order mutation per queue item to the
// CRM store collaborator.
type Handler struct {
	customers store.CustomerStore
	orders    store.OrderStore
	log       *zap.Logger
}

func NewHandler(customers store.CustomerStore, orders store.OrderStore, logger *zap.Logger) *Handler {
	return &Handler{
		customers: customers,
		orders:    orders,
		log:       logger,
	}
}

// Apply dispatches on the decoded payload shape.
func (h *Handler) Apply(ctx context.Context, payload models.Payload) error {
	switch p := payload.(type) {
	case models.CustomerIngestPayload:
		return h.applyCustomer(ctx, p)
	case models.OrderIngestPayload:
		return h.applyOrder(ctx, p)
	default:
		return fmt.Errorf("ingest cannot handle %T", payload)
	}
}

func (h *Handler) applyCustomer(ctx context.Context, p models.CustomerIngestPayload) error {
	switch p.Op {
	case models.MutationCreate, models.MutationUpdate:
		c := p.Customer
		c.UpdatedAt = time.Now().UTC()
		if err := h.customers.PutCustomer(ctx, &c); err != nil {
			return err
		}
	case models.MutationDelete:
		if err := h.customers.DeleteCustomer(ctx, p.Customer.ID); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown customer mutation %q", p.Op)
	}

	h.log.Debug("customer mutation applied",
		zap.String("op", string(p.Op)),
		zap.String("customer_id", p.Customer.ID),
	)
	return nil
}

func (h *Handler) applyOrder(ctx context.Context, p models.OrderIngestPayload) error {
	switch p.Op {
	case models.MutationCreate, models.MutationUpdate:
		o := p.Order
		o.UpdatedAt = time.Now().UTC()
		if err := h.orders.PutOrder(ctx, &o); err != nil {
			return err
		}
	case models.MutationDelete:
		if err := h.orders.DeleteOrder(ctx, p.Order.ID); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown order mutation %q", p.Op)
	}

	h.log.Debug("order mutation applied",
		zap.String("op", string(p.Op)),
		zap.String("order_id", p.Order.ID),
	)
	return nil
}
