package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres persistence behind the queue store and the
// campaign/log stores. The in-memory layers remain the fast path; every
// write lands here so the pipeline survives a restart.
type Store struct {
	Pool *pgxpool.Pool
}

func New(conn string) (*Store, error) {
	pool, err := pgxpool.New(context.Background(), conn)
	if err != nil {
		return nil, err
	}

	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}
