package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/kickboard/matchsync/external/footballdata"
	"github.com/kickboard/matchsync/internal/config"
	"github.com/kickboard/matchsync/internal/domain/match"
	"github.com/kickboard/matchsync/internal/infrastructure/repository/memory"
	"github.com/kickboard/matchsync/internal/infrastructure/repository/postgres"
	"github.com/kickboard/matchsync/internal/interfaces/httpapi"
	"github.com/kickboard/matchsync/internal/platform/cache"
	"github.com/kickboard/matchsync/internal/platform/logging"
	"github.com/kickboard/matchsync/internal/platform/resilience"
	"github.com/kickboard/matchsync/internal/platform/scheduler"
	"github.com/kickboard/matchsync/internal/usecase"
)

// App owns the wired service graph and the lifecycles of the HTTP server
// and the sync scheduler.
type App struct {
	Config    config.Config
	Logger    *logging.Logger
	Server    *http.Server
	Scheduler *scheduler.Scheduler

	db *sqlx.DB
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	repo, db, err := buildMatchRepository(cfg, logger)
	if err != nil {
		return nil, err
	}

	provider := footballdata.NewClient(footballdata.ClientConfig{
		BaseURL:    cfg.FootballDataBaseURL,
		Token:      cfg.FootballDataToken,
		Timeout:    cfg.FootballDataTimeout,
		MaxRetries: cfg.FootballDataMaxRetries,
		Logger:     logger.Named("footballdata"),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.FootballDataCircuitEnabled,
			FailureThreshold: cfg.FootballDataCircuitFailureCount,
			OpenTimeout:      cfg.FootballDataCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.FootballDataCircuitHalfOpenMaxReq,
		},
	})

	var queryCache usecase.QueryCache
	if cfg.CacheEnabled {
		queryCache = cache.NewStore(cfg.CacheTTL)
	}

	queryService := usecase.NewMatchQueryService(usecase.MatchQueryServiceConfig{
		Repository:   repo,
		Cache:        queryCache,
		Provider:     provider,
		Logger:       logger.Named("query"),
		CacheTTL:     cfg.CacheTTL,
		CacheEnabled: cfg.CacheEnabled,
	})

	var syncScheduler *scheduler.Scheduler
	if cfg.SyncEnabled {
		syncService := usecase.NewMatchSyncService(usecase.MatchSyncServiceConfig{
			Provider:         provider,
			Repository:       repo,
			Cache:            queryCache,
			Logger:           logger.Named("sync"),
			CompetitionCodes: cfg.SyncCompetitions,
			WindowDays:       cfg.SyncWindowDays,
			RetentionDays:    cfg.SyncRetentionDays,
		})
		syncScheduler = scheduler.New(scheduler.Config{
			Interval: cfg.SyncInterval,
			Job:      syncService,
			Logger:   logger.Named("scheduler"),
		})
	}

	var syncRunner httpapi.SyncRunner
	if syncScheduler != nil {
		syncRunner = syncScheduler
	}

	handler := httpapi.NewHandler(queryService, syncRunner, logger.Named("httpapi"))
	router := httpapi.NewRouter(handler, logger.Named("httpapi"), cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return &App{
		Config:    cfg,
		Logger:    logger,
		Server:    server,
		Scheduler: syncScheduler,
		db:        db,
	}, nil
}

// Start launches the sync scheduler. The HTTP server is started by the
// caller so it can own ListenAndServe error handling.
func (a *App) Start(ctx context.Context) {
	if a.Scheduler != nil {
		a.Scheduler.Start(ctx)
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}

	var firstErr error
	if err := a.Server.Shutdown(ctx); err != nil {
		firstErr = err
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// buildMatchRepository picks postgres when DB_URL is set and falls back to
// the in-memory store for dev mode.
func buildMatchRepository(cfg config.Config, logger *logging.Logger) (match.Repository, *sqlx.DB, error) {
	if cfg.DBURL == "" {
		logger.Warn("DB_URL is empty, using in-memory match store")
		return memory.NewMatchRepository(), nil, nil
	}

	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)
	db, err := otelsqlx.Open("postgres", dsn,
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	return postgres.NewMatchRepository(db, logger.Named("postgres")), db, nil
}
