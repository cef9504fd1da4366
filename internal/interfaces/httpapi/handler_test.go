package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/kickboard/matchsync/internal/domain/match"
	"github.com/kickboard/matchsync/internal/infrastructure/repository/memory"
	"github.com/kickboard/matchsync/internal/platform/logging"
	"github.com/kickboard/matchsync/internal/usecase"
)

type stubSyncRunner struct {
	calls int
	err   error
}

func (s *stubSyncRunner) RunOnce(_ context.Context) error {
	s.calls++
	return s.err
}

func newTestHandler(t *testing.T, runner SyncRunner) *Handler {
	t.Helper()

	repo := memory.NewMatchRepository()
	_, err := repo.UpsertBatch(context.Background(), []match.Record{
		{
			ExternalID:      497100,
			CompetitionCode: "PL",
			CompetitionName: "Premier League",
			KickoffAt:       time.Date(2026, time.August, 29, 14, 0, 0, 0, time.UTC),
			Status:          match.StatusTimed,
			HomeTeam:        "Arsenal FC",
			AwayTeam:        "Chelsea FC",
		},
	})
	if err != nil {
		t.Fatalf("seed repository: %v", err)
	}

	svc := usecase.NewMatchQueryService(usecase.MatchQueryServiceConfig{
		Repository: repo,
		Logger:     logging.NewNop(),
	})

	h := NewHandler(svc, runner, logging.NewNop())
	h.now = func() time.Time {
		return time.Date(2026, time.August, 28, 10, 0, 0, 0, time.UTC)
	}
	return h
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	return body
}

func TestHandler_GetMatches_DefaultWindow(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/matches", nil)
	rec := httptest.NewRecorder()
	h.GetMatches(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := decodeEnvelope(t, rec)
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %v", body["data"])
	}
	if count, _ := data["count"].(float64); count != 1 {
		t.Fatalf("expected 1 match in the default window, got %v", data["count"])
	}

	matches, _ := data["matches"].([]any)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match row, got %d", len(matches))
	}
	row, _ := matches[0].(map[string]any)
	if got, _ := row["matchDate"].(string); got != "2026-08-29 14:00" {
		t.Fatalf("unexpected matchDate: %q", got)
	}
	if _, hasScore := row["homeScore"]; !hasScore {
		t.Fatal("expected homeScore key to be present (null) for unplayed matches")
	}
	if row["homeScore"] != nil {
		t.Fatalf("expected null homeScore, got %v", row["homeScore"])
	}
}

func TestHandler_GetMatches_RejectsMalformedDate(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/matches?date_from=29-08-2026", nil)
	rec := httptest.NewRecorder()
	h.GetMatches(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestHandler_GetMatchesMonthly_RejectsInvalidMonth(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/matches/monthly?year=2026&month=13", nil)
	rec := httptest.NewRecorder()
	h.GetMatchesMonthly(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestHandler_GetMatchesMonthly_ReturnsMonthMatches(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/matches/monthly?year=2026&month=8", nil)
	rec := httptest.NewRecorder()
	h.GetMatchesMonthly(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	data, _ := body["data"].(map[string]any)
	if count, _ := data["count"].(float64); count != 1 {
		t.Fatalf("expected 1 match in August, got %v", data["count"])
	}
}

func TestHandler_RunSync_Succeeds(t *testing.T) {
	runner := &stubSyncRunner{}
	h := newTestHandler(t, runner)

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/sync/run", nil)
	rec := httptest.NewRecorder()
	h.RunSync(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if runner.calls != 1 {
		t.Fatalf("expected 1 sync run, got %d", runner.calls)
	}
}

func TestHandler_RunSync_SurfacesFailure(t *testing.T) {
	runner := &stubSyncRunner{err: errors.New("provider exploded")}
	h := newTestHandler(t, runner)

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/sync/run", nil)
	rec := httptest.NewRecorder()
	h.RunSync(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
}

func TestRequireInternalJobToken_RejectsMissingToken(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireInternalJobToken("job-secret", next)

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/sync/run", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestRequireInternalJobToken_AllowsMatchingToken(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireInternalJobToken("job-secret", next)

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/sync/run", nil)
	req.Header.Set("X-Internal-Job-Token", "job-secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}
