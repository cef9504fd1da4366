package usecase

import (
	"context"
	"time"
)

// ProviderMatch is one match as reported by the external schedule provider,
// already normalized out of the provider's wire format.
type ProviderMatch struct {
	ExternalID      int64
	CompetitionCode string
	CompetitionName string
	KickoffAt       time.Time
	Status          string
	Matchday        int
	Stage           string
	Group           string
	HomeTeam        string
	AwayTeam        string
	HomeCrest       string
	AwayCrest       string
	HomeScore       *int
	AwayScore       *int
}

// MatchProvider fetches schedule data from the external API. FetchMatches is
// the contained boundary: any provider failure is logged inside the client
// and surfaces here as an empty slice, never as an error.
type MatchProvider interface {
	FetchMatches(ctx context.Context, competitionCodes []string, dateFrom, dateTo time.Time) []ProviderMatch
}

// QueryCache is the cache-aside port for the query service. The in-process
// implementation never fails; a remote one may, and the service treats those
// failures as soft.
type QueryCache interface {
	Get(ctx context.Context, key string) (any, bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string)
}
