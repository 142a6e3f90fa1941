package worker

import (
	"context"

	"go.uber.org/zap"
)

// Supervisor owns the process's worker loops and starts/stops them as a
// unit. Loops are explicit values, not package globals, so tests can run
// independent instances.
type Supervisor struct {
	loops []*Loop
	log   *zap.Logger
}

func NewSupervisor(logger *zap.Logger, loops ...*Loop) *Supervisor {
	return &Supervisor{loops: loops, log: logger}
}

func (s *Supervisor) Start(ctx context.Context) {
	for _, l := range s.loops {
		l.Start(ctx)
	}
	s.log.Info("supervisor started", zap.Int("workers", len(s.loops)))
}

// Stop halts loops in reverse start order so downstream stages drain
// after their producers.
func (s *Supervisor) Stop(ctx context.Context) {
	for i := len(s.loops) - 1; i >= 0; i-- {
		s.loops[i].Stop(ctx)
	}
	s.log.Info("supervisor stopped")
}
