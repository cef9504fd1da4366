package footballdata

import (
	"strings"
	"time"

	"github.com/kickboard/matchsync/internal/usecase"
)

type matchesEnvelope struct {
	Matches []matchItem `json:"matches"`
}

type matchItem struct {
	ID          int64           `json:"id"`
	UTCDate     string          `json:"utcDate"`
	Status      string          `json:"status"`
	Matchday    int             `json:"matchday"`
	Stage       string          `json:"stage"`
	Group       string          `json:"group"`
	Competition competitionItem `json:"competition"`
	HomeTeam    teamItem        `json:"homeTeam"`
	AwayTeam    teamItem        `json:"awayTeam"`
	Score       scoreItem       `json:"score"`
}

type competitionItem struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type teamItem struct {
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	TLA       string `json:"tla"`
	Crest     string `json:"crest"`
}

type scoreItem struct {
	Winner   string       `json:"winner"`
	FullTime scoreValues  `json:"fullTime"`
	HalfTime *scoreValues `json:"halfTime"`
}

type scoreValues struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

func (t teamItem) displayName() string {
	if name := strings.TrimSpace(t.Name); name != "" {
		return name
	}
	if name := strings.TrimSpace(t.ShortName); name != "" {
		return name
	}
	return strings.TrimSpace(t.TLA)
}

func mapMatchItem(item matchItem) (usecase.ProviderMatch, bool) {
	kickoff := parseProviderDateTime(item.UTCDate)
	if item.ID <= 0 || kickoff == nil {
		return usecase.ProviderMatch{}, false
	}

	return usecase.ProviderMatch{
		ExternalID:      item.ID,
		CompetitionCode: strings.ToUpper(strings.TrimSpace(item.Competition.Code)),
		CompetitionName: strings.TrimSpace(item.Competition.Name),
		KickoffAt:       *kickoff,
		Status:          strings.ToUpper(strings.TrimSpace(item.Status)),
		Matchday:        item.Matchday,
		Stage:           strings.TrimSpace(item.Stage),
		Group:           strings.TrimSpace(item.Group),
		HomeTeam:        item.HomeTeam.displayName(),
		AwayTeam:        item.AwayTeam.displayName(),
		HomeCrest:       strings.TrimSpace(item.HomeTeam.Crest),
		AwayCrest:       strings.TrimSpace(item.AwayTeam.Crest),
		HomeScore:       item.Score.FullTime.Home,
		AwayScore:       item.Score.FullTime.Away,
	}, true
}

func parseProviderDateTime(raw string) *time.Time {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}

	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			v := parsed.UTC()
			return &v
		}
	}
	return nil
}
