package gateway

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Request is one communication intent handed to the external channel.
type Request struct {
	CustomerID    string
	CustomerName  string
	CustomerEmail string
	Message       string
	CampaignID    string
}

// Ack is the vendor's synchronous answer. A rejection is a valid answer,
// not an error; errors mean the call itself did not complete.
type Ack struct {
	Accepted bool
	VendorID string
	Error    string
}

// Vendor is the external delivery channel.
type Vendor interface {
	Send(ctx context.Context, req Request) (Ack, error)
}

// Gateway fronts a Vendor with outbound rate limiting and a bounded
// per-call timeout.
type Gateway struct {
	vendor  Vendor
	limiter *rate.Limiter
	timeout time.Duration
	log     *zap.Logger
}

func NewGateway(v Vendor, limiter *rate.Limiter, timeout time.Duration, logger *zap.Logger) *Gateway {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Gateway{
		vendor:  v,
		limiter: limiter,
		timeout: timeout,
		log:     logger,
	}
}

// Deliver sends one request through the vendor within the gateway budget.
func (g *Gateway) Deliver(ctx context.Context, req Request) (Ack, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return Ack{}, fmt.Errorf("rate limiter: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	ack, err := g.vendor.Send(ctx, req)
	if err != nil {
		return Ack{}, fmt.Errorf("vendor send: %w", err)
	}

	return ack, nil
}
