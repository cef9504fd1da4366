package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/kickboard/matchsync/internal/domain/match"
	"github.com/kickboard/matchsync/internal/platform/logging"
)

const (
	matchCacheKeyPrefix = "matches"
	displayTimeLayout   = "2006-01-02 15:04"
	cacheKeyDateLayout  = "2006-01-02"
	defaultQueryTTL     = time.Hour
)

// MatchView is the read-side DTO served to API clients. Scores stay null
// until a match has been played.
type MatchView struct {
	MatchID         int64  `json:"matchID"`
	MatchDate       string `json:"matchDate"`
	Status          string `json:"status"`
	CompetitionName string `json:"competitionName"`
	HomeTeamName    string `json:"homeTeamName"`
	AwayTeamName    string `json:"awayTeamName"`
	HomeScore       *int   `json:"homeScore"`
	AwayScore       *int   `json:"awayScore"`
	Matchday        int    `json:"matchday"`
	Stage           string `json:"stage"`
	Group           string `json:"group"`
	HomeCrest       string `json:"homeCrest"`
	AwayCrest       string `json:"awayCrest"`
}

type MatchQueryServiceConfig struct {
	Repository   match.Repository
	Cache        QueryCache
	Provider     MatchProvider
	Logger       *logging.Logger
	CacheTTL     time.Duration
	CacheEnabled bool
}

// MatchQueryService serves match reads cache-aside over the canonical store.
// Every public method degrades to an empty list instead of returning an
// error: a broken store or cache must not fail a read request.
type MatchQueryService struct {
	repository   match.Repository
	cache        QueryCache
	provider     MatchProvider
	logger       *logging.Logger
	cacheTTL     time.Duration
	cacheEnabled bool
}

func NewMatchQueryService(cfg MatchQueryServiceConfig) *MatchQueryService {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultQueryTTL
	}

	return &MatchQueryService{
		repository:   cfg.Repository,
		cache:        cfg.Cache,
		provider:     cfg.Provider,
		logger:       logger,
		cacheTTL:     ttl,
		cacheEnabled: cfg.CacheEnabled && cfg.Cache != nil,
	}
}

// GetMatchesForRange returns matches whose kickoff falls on any day in
// [start, end], cheapest source first: cache, then store with a write-back.
func (s *MatchQueryService) GetMatchesForRange(ctx context.Context, start, end time.Time, competitionCodes []string) []MatchView {
	ctx, span := startUsecaseSpan(ctx, "MatchQueryService.GetMatchesForRange")
	defer span.End()

	codes := normalizeCodes(competitionCodes)
	key := matchRangeCacheKey(start, end, codes)

	if s.cacheEnabled {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.WarnContext(ctx, "match cache read failed", "cache_key", key, "error", err)
		} else if ok {
			// A hit needs a non-empty list: an empty cached value must not
			// mask matches synced into the store since it was written.
			if views, valid := cached.([]MatchView); valid {
				if len(views) > 0 {
					return views
				}
			} else {
				s.logger.WarnContext(ctx, "match cache entry has unexpected type, treating as miss", "cache_key", key)
			}
		}
	}

	from := startOfDayUTC(start)
	to := endOfDayUTC(end)
	records, err := s.repository.ListByKickoffRange(ctx, from, to)
	if err != nil {
		s.logger.ErrorContext(ctx, "match store query failed",
			"from", from.Format(cacheKeyDateLayout),
			"to", to.Format(cacheKeyDateLayout),
			"error", err,
		)
		return []MatchView{}
	}

	views := make([]MatchView, 0, len(records))
	for _, record := range records {
		if len(codes) > 0 && !containsCode(codes, record.CompetitionCode) {
			continue
		}
		views = append(views, viewFromRecord(record))
	}

	if s.cacheEnabled && len(views) > 0 {
		if err := s.cache.Set(ctx, key, views, s.cacheTTL); err != nil {
			s.logger.WarnContext(ctx, "match cache write failed", "cache_key", key, "error", err)
		}
	}

	return views
}

// GetMatchesForMonth expands (year, month) into that month's first and last
// day and delegates to the range query. time.Date normalization keeps the
// last day correct across month lengths and leap years.
func (s *MatchQueryService) GetMatchesForMonth(ctx context.Context, year int, month time.Month, competitionCodes []string) []MatchView {
	ctx, span := startUsecaseSpan(ctx, "MatchQueryService.GetMatchesForMonth")
	defer span.End()

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return s.GetMatchesForRange(ctx, first, last, competitionCodes)
}

// GetMatchesForRangeDirect bypasses store and cache and serves straight from
// the provider. Used for live views where staleness matters more than load.
func (s *MatchQueryService) GetMatchesForRangeDirect(ctx context.Context, start, end time.Time, competitionCodes []string) []MatchView {
	ctx, span := startUsecaseSpan(ctx, "MatchQueryService.GetMatchesForRangeDirect")
	defer span.End()

	if s.provider == nil {
		s.logger.WarnContext(ctx, "direct match query requested but no provider is configured")
		return []MatchView{}
	}

	codes := normalizeCodes(competitionCodes)
	if len(codes) == 0 {
		codes = []string{"PL"}
	}

	fetched := s.provider.FetchMatches(ctx, codes, startOfDayUTC(start), startOfDayUTC(end))
	views := make([]MatchView, 0, len(fetched))
	for _, pm := range fetched {
		views = append(views, viewFromProvider(pm))
	}
	return views
}

// matchRangeCacheKey builds the deterministic colon-joined key for a range
// query: matches::<from>::<to>::<codes csv>.
func matchRangeCacheKey(start, end time.Time, codes []string) string {
	var b strings.Builder
	b.WriteString(matchCacheKeyPrefix)
	b.WriteString("::")
	b.WriteString(start.UTC().Format(cacheKeyDateLayout))
	b.WriteString("::")
	b.WriteString(end.UTC().Format(cacheKeyDateLayout))
	b.WriteString("::")
	b.WriteString(strings.Join(codes, ","))
	return b.String()
}

func startOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
}

func normalizeCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		candidate := strings.ToUpper(strings.TrimSpace(code))
		if candidate == "" {
			continue
		}
		out = append(out, candidate)
	}
	return out
}

func containsCode(codes []string, code string) bool {
	for _, candidate := range codes {
		if candidate == code {
			return true
		}
	}
	return false
}

func viewFromRecord(record match.Record) MatchView {
	return MatchView{
		MatchID:         record.ExternalID,
		MatchDate:       record.KickoffAt.UTC().Format(displayTimeLayout),
		Status:          record.Status,
		CompetitionName: record.CompetitionName,
		HomeTeamName:    record.HomeTeam,
		AwayTeamName:    record.AwayTeam,
		HomeScore:       record.HomeScore,
		AwayScore:       record.AwayScore,
		Matchday:        record.Matchday,
		Stage:           record.Stage,
		Group:           record.GroupName,
		HomeCrest:       record.HomeCrest,
		AwayCrest:       record.AwayCrest,
	}
}

func viewFromProvider(pm ProviderMatch) MatchView {
	return MatchView{
		MatchID:         pm.ExternalID,
		MatchDate:       pm.KickoffAt.UTC().Format(displayTimeLayout),
		Status:          match.NormalizeStatus(pm.Status),
		CompetitionName: pm.CompetitionName,
		HomeTeamName:    pm.HomeTeam,
		AwayTeamName:    pm.AwayTeam,
		HomeScore:       pm.HomeScore,
		AwayScore:       pm.AwayScore,
		Matchday:        pm.Matchday,
		Stage:           pm.Stage,
		Group:           pm.Group,
		HomeCrest:       pm.HomeCrest,
		AwayCrest:       pm.AwayCrest,
	}
}
