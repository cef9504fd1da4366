package footballdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kickboard/matchsync/internal/platform/logging"
	"github.com/kickboard/matchsync/internal/platform/resilience"
)

const testToken = "super-secret-token"

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(ClientConfig{
		HTTPClient: srv.Client(),
		BaseURL:    srv.URL,
		Token:      testToken,
		MaxRetries: 0,
		Logger:     logging.NewNop(),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled: false,
		},
	})
	return client, srv
}

func TestClient_FetchMatches_MapsProviderPayload(t *testing.T) {
	t.Parallel()

	var gotToken atomic.Value
	var gotQuery atomic.Value
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken.Store(r.Header.Get("X-Auth-Token"))
		gotQuery.Store(r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"matches": [
				{
					"id": 497101,
					"utcDate": "2026-08-29T14:00:00Z",
					"status": "TIMED",
					"matchday": 3,
					"stage": "REGULAR_SEASON",
					"competition": {"name": "Premier League", "code": "PL"},
					"homeTeam": {"name": "Arsenal FC", "shortName": "Arsenal", "tla": "ARS", "crest": "https://crests.example/57.png"},
					"awayTeam": {"name": "Chelsea FC", "shortName": "Chelsea", "tla": "CHE", "crest": "https://crests.example/61.png"},
					"score": {"winner": null, "fullTime": {"home": null, "away": null}}
				},
				{
					"id": 497100,
					"utcDate": "2026-08-28T19:30:00Z",
					"status": "FINISHED",
					"matchday": 3,
					"stage": "REGULAR_SEASON",
					"competition": {"name": "Premier League", "code": "PL"},
					"homeTeam": {"name": "Everton FC"},
					"awayTeam": {"name": "Fulham FC"},
					"score": {"winner": "HOME_TEAM", "fullTime": {"home": 2, "away": 1}}
				},
				{
					"id": 0,
					"utcDate": "",
					"status": "SCHEDULED",
					"competition": {"name": "Premier League", "code": "PL"},
					"homeTeam": {"name": "Ghost"},
					"awayTeam": {"name": "Entry"},
					"score": {"fullTime": {"home": null, "away": null}}
				}
			]
		}`))
	})

	client, _ := newTestClient(t, handler)

	from := time.Date(2026, time.August, 28, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, time.September, 27, 0, 0, 0, 0, time.UTC)
	matches := client.FetchMatches(context.Background(), []string{"pl"}, from, to)

	if token, _ := gotToken.Load().(string); token != testToken {
		t.Fatalf("expected X-Auth-Token header %q, got %q", testToken, token)
	}
	wantQuery := "competitions=PL&dateFrom=2026-08-28&dateTo=2026-09-27"
	if query, _ := gotQuery.Load().(string); query != wantQuery {
		t.Fatalf("expected query %q, got %q", wantQuery, query)
	}

	if len(matches) != 2 {
		t.Fatalf("expected 2 mapped matches, got %d", len(matches))
	}

	first := matches[0]
	if first.ExternalID != 497101 {
		t.Fatalf("expected external id 497101, got %d", first.ExternalID)
	}
	if first.HomeTeam != "Arsenal FC" || first.AwayTeam != "Chelsea FC" {
		t.Fatalf("unexpected team names: %q vs %q", first.HomeTeam, first.AwayTeam)
	}
	if first.HomeScore != nil || first.AwayScore != nil {
		t.Fatal("expected nil scores for an unplayed match")
	}
	if first.KickoffAt != time.Date(2026, time.August, 29, 14, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected kickoff: %v", first.KickoffAt)
	}

	second := matches[1]
	if second.HomeScore == nil || *second.HomeScore != 2 {
		t.Fatalf("expected home score 2, got %v", second.HomeScore)
	}
	if second.AwayScore == nil || *second.AwayScore != 1 {
		t.Fatalf("expected away score 1, got %v", second.AwayScore)
	}
}

func TestClient_FetchMatches_ContainsProviderFailure(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"forbidden"}`, http.StatusForbidden)
	})
	client, _ := newTestClient(t, handler)

	from := time.Date(2026, time.August, 28, 0, 0, 0, 0, time.UTC)
	matches := client.FetchMatches(context.Background(), []string{"PL"}, from, from.AddDate(0, 0, 30))

	if matches == nil {
		t.Fatal("expected a non-nil empty slice on failure")
	}
	if len(matches) != 0 {
		t.Fatalf("expected no matches on failure, got %d", len(matches))
	}
}

func TestClient_FetchMatches_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"matches": []}`))
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(ClientConfig{
		HTTPClient: srv.Client(),
		BaseURL:    srv.URL,
		Token:      testToken,
		MaxRetries: 1,
		Logger:     logging.NewNop(),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled: false,
		},
	})

	from := time.Date(2026, time.August, 28, 0, 0, 0, 0, time.UTC)
	matches, err := client.fetchMatches(context.Background(), []string{"PL"}, from, from.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected empty window, got %d matches", len(matches))
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestClient_FetchMatches_RejectsInvertedWindow(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("no request should be sent for an inverted window")
	}))

	from := time.Date(2026, time.August, 28, 0, 0, 0, 0, time.UTC)
	if _, err := client.fetchMatches(context.Background(), []string{"PL"}, from, from.AddDate(0, 0, -1)); err == nil {
		t.Fatal("expected an error for an inverted date window")
	}
}

func TestClient_Sanitize_RedactsToken(t *testing.T) {
	t.Parallel()

	client := NewClient(ClientConfig{
		Token:  testToken,
		Logger: logging.NewNop(),
	})

	in := `Get "https://api.football-data.org/v4/matches": header X-Auth-Token: ` + testToken + ` rejected`
	got := client.sanitize(in)

	if strings.Contains(got, testToken) {
		t.Fatalf("token leaked into sanitized text: %q", got)
	}
	if !strings.Contains(got, "REDACTED") {
		t.Fatalf("expected REDACTED marker, got %q", got)
	}
}
