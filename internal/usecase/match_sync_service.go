package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	ants "github.com/panjf2000/ants/v2"

	"github.com/kickboard/matchsync/internal/domain/match"
	"github.com/kickboard/matchsync/internal/platform/logging"
)

const (
	defaultSyncWindowDays   = 30
	defaultSyncWorkers      = 4
	defaultSyncCompetition  = "PL"
	syncWindowDateLayout    = "2006-01-02"
	retentionCutoffGraceDay = 1
)

type MatchSyncServiceConfig struct {
	Provider         MatchProvider
	Repository       match.Repository
	Cache            QueryCache
	Logger           *logging.Logger
	CompetitionCodes []string
	WindowDays       int
	RetentionDays    int
	Workers          int
	Now              func() time.Time
}

// MatchSyncService refreshes the canonical store from the provider. RunOnce
// is the unit the scheduler drives; it absorbs panics so a bad run never
// takes the loop down with it.
type MatchSyncService struct {
	provider         MatchProvider
	repository       match.Repository
	cache            QueryCache
	logger           *logging.Logger
	competitionCodes []string
	windowDays       int
	retentionDays    int
	workers          int
	now              func() time.Time
}

func NewMatchSyncService(cfg MatchSyncServiceConfig) *MatchSyncService {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	codes := normalizeCodes(cfg.CompetitionCodes)
	if len(codes) == 0 {
		codes = []string{defaultSyncCompetition}
	}

	windowDays := cfg.WindowDays
	if windowDays <= 0 {
		windowDays = defaultSyncWindowDays
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultSyncWorkers
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &MatchSyncService{
		provider:         cfg.Provider,
		repository:       cfg.Repository,
		cache:            cfg.Cache,
		logger:           logger,
		competitionCodes: codes,
		windowDays:       windowDays,
		retentionDays:    cfg.RetentionDays,
		workers:          workers,
		now:              now,
	}
}

// RunOnce fetches the sync window for every configured competition and
// performs one batch upsert. All failure modes end here: the returned error
// is for manual triggers, the scheduler ignores it.
func (s *MatchSyncService) RunOnce(ctx context.Context) (err error) {
	ctx, span := startUsecaseSpan(ctx, "MatchSyncService.RunOnce")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("match sync run panicked: %v", r)
			s.logger.ErrorContext(ctx, "match sync run panicked", "panic", fmt.Sprint(r))
		}
	}()

	today := startOfDayUTC(s.now())
	windowEnd := today.AddDate(0, 0, s.windowDays)

	fetched := s.fetchWindow(ctx, today, windowEnd)
	if len(fetched) == 0 {
		s.logger.WarnContext(ctx, "provider returned no matches, keeping existing store contents",
			"competitions", s.competitionCodes,
			"window_from", today.Format(syncWindowDateLayout),
			"window_to", windowEnd.Format(syncWindowDateLayout),
		)
		return nil
	}

	records := s.recordsFromProvider(fetched)
	upserted, upsertErr := s.repository.UpsertBatch(ctx, records)
	if upsertErr != nil {
		s.logger.ErrorContext(ctx, "match batch upsert failed",
			"records", len(records),
			"error", upsertErr,
		)
		return fmt.Errorf("upsert matches: %w", upsertErr)
	}

	s.logger.InfoContext(ctx, "match sync completed",
		"fetched", len(fetched),
		"upserted", upserted,
		"window_from", today.Format(syncWindowDateLayout),
		"window_to", windowEnd.Format(syncWindowDateLayout),
	)

	// Cached range queries may now be stale; drop them so the fresh rows
	// become visible before their TTL expires.
	if s.cache != nil {
		s.cache.DeletePrefix(ctx, matchCacheKeyPrefix+"::")
	}

	s.pruneFinished(ctx, today)
	return nil
}

// fetchWindow fans competition fetches out over a worker pool and merges the
// results, deduplicating on external id.
func (s *MatchSyncService) fetchWindow(ctx context.Context, from, to time.Time) []ProviderMatch {
	if len(s.competitionCodes) == 1 {
		return s.provider.FetchMatches(ctx, s.competitionCodes, from, to)
	}

	pool, poolErr := ants.NewPool(min(s.workers, len(s.competitionCodes)))
	if poolErr != nil {
		s.logger.WarnContext(ctx, "worker pool unavailable, fetching competitions sequentially", "error", poolErr)
		return s.provider.FetchMatches(ctx, s.competitionCodes, from, to)
	}
	defer pool.Release()

	var (
		mu     sync.Mutex
		merged []ProviderMatch
		wg     sync.WaitGroup
	)
	for _, code := range s.competitionCodes {
		code := code
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			batch := s.provider.FetchMatches(ctx, []string{code}, from, to)
			if len(batch) == 0 {
				return
			}
			mu.Lock()
			merged = append(merged, batch...)
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			s.logger.WarnContext(ctx, "failed to submit competition fetch", "competition", code, "error", submitErr)
		}
	}
	wg.Wait()

	return dedupeByExternalID(merged)
}

func (s *MatchSyncService) recordsFromProvider(fetched []ProviderMatch) []match.Record {
	updatedAt := s.now().UTC()
	records := make([]match.Record, 0, len(fetched))
	for _, pm := range fetched {
		records = append(records, match.Record{
			ExternalID:      pm.ExternalID,
			CompetitionCode: pm.CompetitionCode,
			CompetitionName: pm.CompetitionName,
			KickoffAt:       pm.KickoffAt.UTC(),
			Status:          match.NormalizeStatus(pm.Status),
			Matchday:        pm.Matchday,
			Stage:           pm.Stage,
			GroupName:       pm.Group,
			HomeTeam:        pm.HomeTeam,
			AwayTeam:        pm.AwayTeam,
			HomeCrest:       pm.HomeCrest,
			AwayCrest:       pm.AwayCrest,
			HomeScore:       pm.HomeScore,
			AwayScore:       pm.AwayScore,
			UpdatedAt:       updatedAt,
		})
	}
	return records
}

func (s *MatchSyncService) pruneFinished(ctx context.Context, today time.Time) {
	if s.retentionDays <= 0 {
		return
	}

	cutoff := today.AddDate(0, 0, -(s.retentionDays + retentionCutoffGraceDay))
	deleted, err := s.repository.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		s.logger.WarnContext(ctx, "retention prune failed", "cutoff", cutoff.Format(syncWindowDateLayout), "error", err)
		return
	}
	if deleted > 0 {
		s.logger.InfoContext(ctx, "pruned finished matches", "deleted", deleted, "cutoff", cutoff.Format(syncWindowDateLayout))
	}
}

func dedupeByExternalID(matches []ProviderMatch) []ProviderMatch {
	seen := make(map[int64]struct{}, len(matches))
	out := make([]ProviderMatch, 0, len(matches))
	for _, pm := range matches {
		if _, dup := seen[pm.ExternalID]; dup {
			continue
		}
		seen[pm.ExternalID] = struct{}{}
		out = append(out, pm)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].KickoffAt.Equal(out[j].KickoffAt) {
			return out[i].KickoffAt.Before(out[j].KickoffAt)
		}
		return out[i].ExternalID < out[j].ExternalID
	})
	return out
}
