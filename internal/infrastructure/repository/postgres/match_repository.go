package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kickboard/matchsync/internal/domain/match"
	"github.com/kickboard/matchsync/internal/platform/logging"
	"github.com/kickboard/matchsync/internal/platform/querybuilder"
)

const matchTable = "matches"

// upsertChunkSize keeps each multi-row insert well under postgres's 65535
// bind parameter ceiling (15 columns per row).
const upsertChunkSize = 500

const matchUpsertSuffix = `ON CONFLICT (external_id) DO UPDATE SET
	competition_code = EXCLUDED.competition_code,
	competition_name = EXCLUDED.competition_name,
	kickoff_at = EXCLUDED.kickoff_at,
	status = EXCLUDED.status,
	matchday = EXCLUDED.matchday,
	stage = EXCLUDED.stage,
	group_name = EXCLUDED.group_name,
	home_team = EXCLUDED.home_team,
	away_team = EXCLUDED.away_team,
	home_crest = EXCLUDED.home_crest,
	away_crest = EXCLUDED.away_crest,
	home_score = EXCLUDED.home_score,
	away_score = EXCLUDED.away_score,
	updated_at = EXCLUDED.updated_at`

// MatchRepository is the postgres-backed canonical match store.
type MatchRepository struct {
	db     *sqlx.DB
	logger *logging.Logger
}

func NewMatchRepository(db *sqlx.DB, logger *logging.Logger) *MatchRepository {
	if logger == nil {
		logger = logging.Default()
	}
	return &MatchRepository{db: db, logger: logger}
}

func (r *MatchRepository) ListByKickoffRange(ctx context.Context, from, to time.Time) ([]match.Record, error) {
	query, args, err := querybuilder.Select(matchColumns...).
		From(matchTable).
		Where(
			querybuilder.Gte("kickoff_at", from.UTC()),
			querybuilder.Lte("kickoff_at", to.UTC()),
		).
		OrderBy("kickoff_at", "external_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build match range query: %w", err)
	}

	var rows []matchRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query matches by kickoff range: %w", err)
	}

	records := make([]match.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}
	return records, nil
}

// UpsertBatch writes records in chunks, one multi-row statement per chunk,
// keyed on external_id so re-syncing the same window stays idempotent.
func (r *MatchRepository) UpsertBatch(ctx context.Context, records []match.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	total := 0
	for start := 0; start < len(records); start += upsertChunkSize {
		end := start + upsertChunkSize
		if end > len(records) {
			end = len(records)
		}

		rows := make([]matchRow, 0, end-start)
		for _, record := range records[start:end] {
			rows = append(rows, rowFromRecord(record))
		}

		query, args, err := querybuilder.InsertModels(matchTable, rows, matchUpsertSuffix)
		if err != nil {
			return total, fmt.Errorf("build match upsert: %w", err)
		}

		result, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("upsert match chunk: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			// lib/pq always reports rows affected; fall back to the chunk size.
			affected = int64(len(rows))
		}
		total += int(affected)
	}

	return total, nil
}

func (r *MatchRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	query, args, err := querybuilder.DeleteFrom(matchTable).
		Where(
			querybuilder.Eq("status", match.StatusFinished),
			querybuilder.Lt("kickoff_at", cutoff.UTC()),
		).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build match retention delete: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete finished matches: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(affected), nil
}
