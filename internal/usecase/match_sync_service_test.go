package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kickboard/matchsync/internal/domain/match"
	"github.com/kickboard/matchsync/internal/platform/logging"
)

type stubMatchProvider struct {
	mu      sync.Mutex
	calls   [][]string
	froms   []time.Time
	tos     []time.Time
	byCode  map[string][]ProviderMatch
	panicOn bool
}

func (p *stubMatchProvider) FetchMatches(_ context.Context, codes []string, from, to time.Time) []ProviderMatch {
	if p.panicOn {
		panic("provider exploded")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, codes)
	p.froms = append(p.froms, from)
	p.tos = append(p.tos, to)

	var out []ProviderMatch
	for _, code := range codes {
		out = append(out, p.byCode[code]...)
	}
	if out == nil {
		out = []ProviderMatch{}
	}
	return out
}

func fixedNow() time.Time {
	return time.Date(2026, time.August, 28, 9, 30, 0, 0, time.UTC)
}

func TestMatchSyncService_RunOnce_UpsertsWindow(t *testing.T) {
	t.Parallel()

	provider := &stubMatchProvider{
		byCode: map[string][]ProviderMatch{
			"PL": {
				{
					ExternalID:      497100,
					CompetitionCode: "PL",
					CompetitionName: "Premier League",
					KickoffAt:       time.Date(2026, time.August, 29, 14, 0, 0, 0, time.UTC),
					Status:          "timed",
					HomeTeam:        "Arsenal FC",
					AwayTeam:        "Chelsea FC",
				},
				{
					ExternalID:      497101,
					CompetitionCode: "PL",
					CompetitionName: "Premier League",
					KickoffAt:       time.Date(2026, time.September, 5, 19, 30, 0, 0, time.UTC),
					Status:          "SCHEDULED",
					HomeTeam:        "Everton FC",
					AwayTeam:        "Fulham FC",
				},
			},
		},
	}
	repo := &stubMatchRepository{}
	svc := NewMatchSyncService(MatchSyncServiceConfig{
		Provider:   provider,
		Repository: repo,
		Logger:     logging.NewNop(),
		Now:        fixedNow,
	})

	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if len(provider.froms) != 1 {
		t.Fatalf("expected 1 provider call, got %d", len(provider.froms))
	}
	wantFrom := time.Date(2026, time.August, 28, 0, 0, 0, 0, time.UTC)
	wantTo := wantFrom.AddDate(0, 0, 30)
	if !provider.froms[0].Equal(wantFrom) || !provider.tos[0].Equal(wantTo) {
		t.Fatalf("unexpected sync window [%v, %v]", provider.froms[0], provider.tos[0])
	}

	if repo.upsertCalls != 1 {
		t.Fatalf("expected one batch upsert, got %d", repo.upsertCalls)
	}
	records := repo.upserted[0]
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Status != match.StatusTimed {
		t.Fatalf("expected status normalized to %q, got %q", match.StatusTimed, records[0].Status)
	}
	if records[0].UpdatedAt.IsZero() {
		t.Fatal("expected UpdatedAt to be stamped")
	}
}

func TestMatchSyncService_RunOnce_EmptyResponseKeepsStore(t *testing.T) {
	t.Parallel()

	provider := &stubMatchProvider{byCode: map[string][]ProviderMatch{}}
	repo := &stubMatchRepository{}
	cache := newStubQueryCache()
	svc := NewMatchSyncService(MatchSyncServiceConfig{
		Provider:   provider,
		Repository: repo,
		Cache:      cache,
		Logger:     logging.NewNop(),
		Now:        fixedNow,
	})

	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if repo.upsertCalls != 0 {
		t.Fatalf("expected no store mutation for an empty response, got %d upserts", repo.upsertCalls)
	}
	if len(cache.deletedPrefixes) != 0 {
		t.Fatalf("expected no cache invalidation for an empty response, got %v", cache.deletedPrefixes)
	}
}

func TestMatchSyncService_RunOnce_InvalidatesCachedRanges(t *testing.T) {
	t.Parallel()

	provider := &stubMatchProvider{
		byCode: map[string][]ProviderMatch{
			"PL": {{ExternalID: 497100, CompetitionCode: "PL", KickoffAt: time.Date(2026, time.August, 29, 14, 0, 0, 0, time.UTC), Status: "TIMED"}},
		},
	}
	repo := &stubMatchRepository{}
	cache := newStubQueryCache()
	cache.entries["matches::2026-08-28::2026-09-04::PL"] = []MatchView{{MatchID: 1}}
	cache.entries["other::key"] = "untouched"

	svc := NewMatchSyncService(MatchSyncServiceConfig{
		Provider:   provider,
		Repository: repo,
		Cache:      cache,
		Logger:     logging.NewNop(),
		Now:        fixedNow,
	})

	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if len(cache.deletedPrefixes) != 1 || cache.deletedPrefixes[0] != "matches::" {
		t.Fatalf("expected one invalidation of the match range prefix, got %v", cache.deletedPrefixes)
	}
	if _, ok := cache.entries["matches::2026-08-28::2026-09-04::PL"]; ok {
		t.Fatal("expected stale range entry to be dropped after the sync run")
	}
	if _, ok := cache.entries["other::key"]; !ok {
		t.Fatal("expected unrelated cache entries to survive the sync run")
	}
}

func TestMatchSyncService_RunOnce_AbsorbsPanic(t *testing.T) {
	t.Parallel()

	provider := &stubMatchProvider{panicOn: true}
	repo := &stubMatchRepository{}
	svc := NewMatchSyncService(MatchSyncServiceConfig{
		Provider:   provider,
		Repository: repo,
		Logger:     logging.NewNop(),
		Now:        fixedNow,
	})

	err := svc.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected RunOnce to surface the recovered panic as an error")
	}
}

func TestMatchSyncService_RunOnce_FansOutCompetitions(t *testing.T) {
	t.Parallel()

	shared := ProviderMatch{
		ExternalID:      600001,
		CompetitionCode: "CL",
		KickoffAt:       time.Date(2026, time.September, 15, 20, 0, 0, 0, time.UTC),
		Status:          "SCHEDULED",
	}
	provider := &stubMatchProvider{
		byCode: map[string][]ProviderMatch{
			"PL": {
				{ExternalID: 500001, CompetitionCode: "PL", KickoffAt: time.Date(2026, time.August, 30, 14, 0, 0, 0, time.UTC), Status: "TIMED"},
				shared,
			},
			"CL": {shared},
		},
	}
	repo := &stubMatchRepository{}
	svc := NewMatchSyncService(MatchSyncServiceConfig{
		Provider:         provider,
		Repository:       repo,
		Logger:           logging.NewNop(),
		CompetitionCodes: []string{"PL", "CL"},
		Now:              fixedNow,
	})

	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if len(provider.calls) != 2 {
		t.Fatalf("expected one fetch per competition, got %d calls", len(provider.calls))
	}
	if repo.upsertCalls != 1 {
		t.Fatalf("expected one merged batch upsert, got %d", repo.upsertCalls)
	}
	if got := len(repo.upserted[0]); got != 2 {
		t.Fatalf("expected duplicate external ids to collapse to 2 records, got %d", got)
	}
}

func TestMatchSyncService_RunOnce_PrunesWhenRetentionConfigured(t *testing.T) {
	t.Parallel()

	provider := &stubMatchProvider{
		byCode: map[string][]ProviderMatch{
			"PL": {{ExternalID: 1, CompetitionCode: "PL", KickoffAt: fixedNow().AddDate(0, 0, 2), Status: "TIMED"}},
		},
	}
	repo := &stubMatchRepository{}
	svc := NewMatchSyncService(MatchSyncServiceConfig{
		Provider:      provider,
		Repository:    repo,
		Logger:        logging.NewNop(),
		RetentionDays: 7,
		Now:           fixedNow,
	})

	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if repo.deleteCalls != 1 {
		t.Fatalf("expected one retention prune, got %d", repo.deleteCalls)
	}
	wantCutoff := time.Date(2026, time.August, 20, 0, 0, 0, 0, time.UTC)
	if !repo.deleteBelow.Equal(wantCutoff) {
		t.Fatalf("expected cutoff %v, got %v", wantCutoff, repo.deleteBelow)
	}
}
