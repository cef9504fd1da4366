package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kickboard/matchsync/internal/domain/match"
)

// MatchRepository is an in-memory match store for dev mode and tests.
type MatchRepository struct {
	mu      sync.RWMutex
	records map[int64]match.Record
}

func NewMatchRepository() *MatchRepository {
	return &MatchRepository{records: make(map[int64]match.Record)}
}

func (r *MatchRepository) ListByKickoffRange(_ context.Context, from, to time.Time) ([]match.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]match.Record, 0)
	for _, record := range r.records {
		if record.KickoffAt.Before(from) || record.KickoffAt.After(to) {
			continue
		}
		out = append(out, record)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].KickoffAt.Equal(out[j].KickoffAt) {
			return out[i].KickoffAt.Before(out[j].KickoffAt)
		}
		return out[i].ExternalID < out[j].ExternalID
	})
	return out, nil
}

func (r *MatchRepository) UpsertBatch(_ context.Context, records []match.Record) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, record := range records {
		r.records[record.ExternalID] = record
	}
	return len(records), nil
}

func (r *MatchRepository) DeleteFinishedBefore(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for id, record := range r.records {
		if record.Status == match.StatusFinished && record.KickoffAt.Before(cutoff) {
			delete(r.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Len reports the number of stored records. Test helper.
func (r *MatchRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
