package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kickboard/matchsync/internal/platform/logging"
	"github.com/kickboard/matchsync/internal/platform/scheduler"
	"github.com/kickboard/matchsync/internal/usecase"
)

const queryDateLayout = "2006-01-02"

// defaultRangeDays is the window served by GET /v1/matches when the caller
// omits both dates.
const defaultRangeDays = 7

// SyncRunner triggers one sync run outside the schedule.
type SyncRunner interface {
	RunOnce(ctx context.Context) error
}

type Handler struct {
	queryService *usecase.MatchQueryService
	syncRunner   SyncRunner
	logger       *logging.Logger
	validator    *validator.Validate
	now          func() time.Time
}

func NewHandler(
	queryService *usecase.MatchQueryService,
	syncRunner SyncRunner,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		queryService: queryService,
		syncRunner:   syncRunner,
		logger:       logger,
		validator:    validator.New(),
		now:          time.Now,
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

type matchRangeParams struct {
	DateFrom     string `validate:"omitempty,datetime=2006-01-02"`
	DateTo       string `validate:"omitempty,datetime=2006-01-02"`
	Competitions string `validate:"omitempty,max=200"`
}

func (h *Handler) GetMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMatches")
	defer span.End()

	params := matchRangeParams{
		DateFrom:     strings.TrimSpace(r.URL.Query().Get("date_from")),
		DateTo:       strings.TrimSpace(r.URL.Query().Get("date_to")),
		Competitions: strings.TrimSpace(r.URL.Query().Get("competitions")),
	}
	if err := h.validateRequest(ctx, params); err != nil {
		writeError(ctx, w, err)
		return
	}

	start, end, err := h.resolveRange(params.DateFrom, params.DateTo)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	matches := h.queryService.GetMatchesForRange(ctx, start, end, splitCompetitions(params.Competitions))
	writeSuccess(ctx, w, http.StatusOK, map[string]any{
		"matches": matches,
		"count":   len(matches),
	})
}

type matchMonthParams struct {
	Year         string `validate:"required,len=4,number"`
	Month        string `validate:"required,number"`
	Competitions string `validate:"omitempty,max=200"`
}

func (h *Handler) GetMatchesMonthly(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMatchesMonthly")
	defer span.End()

	params := matchMonthParams{
		Year:         strings.TrimSpace(r.URL.Query().Get("year")),
		Month:        strings.TrimSpace(r.URL.Query().Get("month")),
		Competitions: strings.TrimSpace(r.URL.Query().Get("competitions")),
	}
	if err := h.validateRequest(ctx, params); err != nil {
		writeError(ctx, w, err)
		return
	}

	year, _ := strconv.Atoi(params.Year)
	month, _ := strconv.Atoi(params.Month)
	if month < 1 || month > 12 {
		writeError(ctx, w, fmt.Errorf("%w: month must be between 1 and 12", usecase.ErrInvalidInput))
		return
	}

	matches := h.queryService.GetMatchesForMonth(ctx, year, time.Month(month), splitCompetitions(params.Competitions))
	writeSuccess(ctx, w, http.StatusOK, map[string]any{
		"matches": matches,
		"count":   len(matches),
	})
}

func (h *Handler) GetLiveMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetLiveMatches")
	defer span.End()

	competitions := splitCompetitions(strings.TrimSpace(r.URL.Query().Get("competitions")))
	today := h.now().UTC()
	matches := h.queryService.GetMatchesForRangeDirect(ctx, today, today, competitions)

	writeSuccess(ctx, w, http.StatusOK, map[string]any{
		"matches": matches,
		"count":   len(matches),
	})
}

func (h *Handler) RunSync(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunSync")
	defer span.End()

	if h.syncRunner == nil {
		writeError(ctx, w, fmt.Errorf("%w: sync is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	if err := h.syncRunner.RunOnce(ctx); err != nil {
		if errors.Is(err, scheduler.ErrRunInFlight) {
			writeError(ctx, w, fmt.Errorf("%w: a sync run is already in flight", usecase.ErrConflict))
			return
		}
		h.logger.WarnContext(ctx, "manual sync run failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "completed"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func (h *Handler) resolveRange(dateFrom, dateTo string) (time.Time, time.Time, error) {
	today := h.now().UTC().Truncate(24 * time.Hour)

	start := today
	if dateFrom != "" {
		parsed, err := time.Parse(queryDateLayout, dateFrom)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid date_from", usecase.ErrInvalidInput)
		}
		start = parsed
	}

	end := start.AddDate(0, 0, defaultRangeDays)
	if dateTo != "" {
		parsed, err := time.Parse(queryDateLayout, dateTo)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid date_to", usecase.ErrInvalidInput)
		}
		end = parsed
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: date_to is before date_from", usecase.ErrInvalidInput)
	}

	return start, end, nil
}

func splitCompetitions(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		candidate := strings.TrimSpace(part)
		if candidate == "" {
			continue
		}
		out = append(out, candidate)
	}
	return out
}
