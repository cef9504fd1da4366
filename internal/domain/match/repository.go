package match

import (
	"context"
	"time"
)

// Repository is the canonical match store.
type Repository interface {
	// ListByKickoffRange returns records with from <= kickoff_at <= to,
	// ordered by kickoff time then external id.
	ListByKickoffRange(ctx context.Context, from, to time.Time) ([]Record, error)
	// UpsertBatch inserts or refreshes records by external id and returns
	// the number of rows written. Re-upserting the same batch keeps one
	// row per id.
	UpsertBatch(ctx context.Context, records []Record) (int, error)
	// DeleteFinishedBefore prunes finished matches that kicked off before
	// cutoff and returns the number of rows removed.
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int, error)
}
