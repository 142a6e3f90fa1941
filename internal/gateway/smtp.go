package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

// SMTP delivers campaign messages over email. Transient dial errors are
// retried with exponential backoff inside the gateway's timeout budget.
type SMTP struct {
	Host string
	Port int
	From string
}

func (s *SMTP) Send(ctx context.Context, req Request) (Ack, error) {
	if req.CustomerEmail == "" {
		return Ack{Accepted: false, Error: "customer has no email address"}, nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", req.CustomerEmail)
	m.SetHeader("Subject", "Campaign "+req.CampaignID)
	m.SetBody("text/plain", req.Message)

	d := gomail.NewDialer(s.Host, s.Port, "", "")

	operation := func() error {
		return d.DialAndSend(m)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return Ack{}, fmt.Errorf("smtp send: %w", err)
	}

	// SMTP issues no correlation id of its own; mint one so receipts can
	// still reference the attempt.
	return Ack{
		Accepted: true,
		VendorID: "smtp-" + uuid.NewString(),
	}, nil
}
