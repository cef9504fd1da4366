package footballdata

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/kickboard/matchsync/internal/platform/logging"
	"github.com/kickboard/matchsync/internal/platform/resilience"
	"github.com/kickboard/matchsync/internal/usecase"
)

const (
	defaultBaseURL     = "https://api.football-data.org/v4"
	defaultTimeout     = 20 * time.Second
	maxResponseBytes   = 6 << 20
	providerDateLayout = "2006-01-02"
)

var authTokenHeaderRegex = regexp.MustCompile(`(?i)(x-auth-token[=:]\s*)[^\s"',]+`)
var errProviderTransient = crerr.New("football data transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Token          string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the football-data.org v4 API. The exported fetch path
// never returns errors: the service prefers serving nothing over failing a
// request because the provider is down.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	token          string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		token:          strings.TrimSpace(cfg.Token),
		maxRetries:     max(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// FetchMatches returns the provider's matches for the competitions and date
// window. Every failure mode collapses to an empty slice after an error-level
// log with the token redacted.
func (c *Client) FetchMatches(ctx context.Context, competitionCodes []string, dateFrom, dateTo time.Time) []usecase.ProviderMatch {
	matches, err := c.fetchMatches(ctx, competitionCodes, dateFrom, dateTo)
	if err != nil {
		c.logger.ErrorContext(ctx, "football data fetch failed",
			"competitions", strings.Join(normalizeCompetitionCodes(competitionCodes), ","),
			"date_from", dateFrom.Format(providerDateLayout),
			"date_to", dateTo.Format(providerDateLayout),
			"error", stderrors.New(c.sanitize(err.Error())),
		)
		return []usecase.ProviderMatch{}
	}
	return matches
}

func (c *Client) fetchMatches(ctx context.Context, competitionCodes []string, dateFrom, dateTo time.Time) ([]usecase.ProviderMatch, error) {
	codes := normalizeCompetitionCodes(competitionCodes)
	if len(codes) == 0 {
		return nil, fmt.Errorf("%w: at least one competition code is required", usecase.ErrInvalidInput)
	}
	if dateTo.Before(dateFrom) {
		return nil, fmt.Errorf("%w: dateTo %s is before dateFrom %s", usecase.ErrInvalidInput,
			dateTo.Format(providerDateLayout), dateFrom.Format(providerDateLayout))
	}

	query := url.Values{}
	query.Set("competitions", strings.Join(codes, ","))
	query.Set("dateFrom", dateFrom.Format(providerDateLayout))
	query.Set("dateTo", dateTo.Format(providerDateLayout))

	var envelope matchesEnvelope
	if err := c.doJSON(ctx, "/matches", query, &envelope); err != nil {
		return nil, err
	}

	out := make([]usecase.ProviderMatch, 0, len(envelope.Matches))
	for _, item := range envelope.Matches {
		mapped, ok := mapMatchItem(item)
		if !ok {
			c.logger.WarnContext(ctx, "skipping provider match with missing id or kickoff",
				"match_id", item.ID,
				"utc_date", item.UTCDate,
			)
			continue
		}
		out = append(out, mapped)
	}

	return out, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query url.Values, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "football data circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: schedule provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && isCircuitFailure(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode provider payload: %w", err)
	}

	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("X-Auth-Token", c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errProviderTransient, c.sanitize(err.Error()))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("%w: read response body: %v", errProviderTransient, readErr)
			} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return raw, nil
			} else {
				if isRetryableStatus(resp.StatusCode) {
					lastErr = fmt.Errorf("%w: provider status=%d body=%s", errProviderTransient, resp.StatusCode, abbreviateBody(raw))
				} else {
					return nil, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
				}
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "football data request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

// sanitize strips the API token from free text before it can reach a log
// line or an error chain.
func (c *Client) sanitize(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if c.token != "" {
		value = strings.ReplaceAll(value, c.token, "REDACTED")
	}
	return authTokenHeaderRegex.ReplaceAllString(value, "${1}REDACTED")
}

func isCircuitFailure(err error) bool {
	return crerr.Is(err, errProviderTransient)
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return status >= 500
}

func abbreviateBody(raw []byte) string {
	const limit = 256
	body := strings.TrimSpace(string(raw))
	if len(body) > limit {
		return body[:limit] + "..."
	}
	return body
}

func normalizeCompetitionCodes(codes []string) []string {
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
