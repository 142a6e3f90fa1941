package gateway

import (
	"context"
	"math/rand"
	"sync"

	"github.com/google/uuid"
)

// Simulated is an in-process vendor that accepts a configurable fraction
// of sends and rejects the rest. It stands in for the real channel in
// development and tests.
type Simulated struct {
	acceptRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulated builds a simulated vendor accepting acceptRate of sends.
// A nil source falls back to a time-seeded one.
func NewSimulated(acceptRate float64, src rand.Source) *Simulated {
	if acceptRate < 0 {
		acceptRate = 0
	}
	if acceptRate > 1 {
		acceptRate = 1
	}

	var rng *rand.Rand
	if src != nil {
		rng = rand.New(src)
	}

	return &Simulated{acceptRate: acceptRate, rng: rng}
}

func (s *Simulated) Send(ctx context.Context, req Request) (Ack, error) {
	if err := ctx.Err(); err != nil {
		return Ack{}, err
	}

	if s.roll() < s.acceptRate {
		return Ack{
			Accepted: true,
			VendorID: "sim-" + uuid.NewString(),
		}, nil
	}

	return Ack{
		Accepted: false,
		Error:    "recipient rejected by channel",
	}, nil
}

func (s *Simulated) roll() float64 {
	if s.rng == nil {
		return rand.Float64()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}
