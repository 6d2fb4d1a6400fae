package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
)

// sequenceCounter hands out the global monotonic sequence stamped on every
// event row. Row IDs are per-table; the sequence orders events across a run
// even if more event tables are added.
//
// The mutex serializes within the process; the RETURNING clause makes the
// increment atomic at the database level. The backing table is created by
// the first migration.
type sequenceCounter struct {
	mu sync.Mutex
	db *sqlx.DB
}

func newSequenceCounter(db *sqlx.DB) *sequenceCounter {
	return &sequenceCounter{db: db}
}

// Next atomically returns the next sequence number and increments the counter.
func (sc *sequenceCounter) Next(ctx context.Context) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var seq int64
	err := sc.db.QueryRowxContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}
