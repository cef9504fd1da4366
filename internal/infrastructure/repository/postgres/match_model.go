package postgres

import (
	"time"

	"github.com/kickboard/matchsync/internal/domain/match"
)

type matchRow struct {
	ExternalID      int64     `db:"external_id"`
	CompetitionCode string    `db:"competition_code"`
	CompetitionName string    `db:"competition_name"`
	KickoffAt       time.Time `db:"kickoff_at"`
	Status          string    `db:"status"`
	Matchday        int       `db:"matchday"`
	Stage           string    `db:"stage"`
	GroupName       string    `db:"group_name"`
	HomeTeam        string    `db:"home_team"`
	AwayTeam        string    `db:"away_team"`
	HomeCrest       string    `db:"home_crest"`
	AwayCrest       string    `db:"away_crest"`
	HomeScore       *int      `db:"home_score"`
	AwayScore       *int      `db:"away_score"`
	UpdatedAt       time.Time `db:"updated_at"`
}

var matchColumns = []string{
	"external_id",
	"competition_code",
	"competition_name",
	"kickoff_at",
	"status",
	"matchday",
	"stage",
	"group_name",
	"home_team",
	"away_team",
	"home_crest",
	"away_crest",
	"home_score",
	"away_score",
	"updated_at",
}

func rowFromRecord(record match.Record) matchRow {
	return matchRow{
		ExternalID:      record.ExternalID,
		CompetitionCode: record.CompetitionCode,
		CompetitionName: record.CompetitionName,
		KickoffAt:       record.KickoffAt.UTC(),
		Status:          record.Status,
		Matchday:        record.Matchday,
		Stage:           record.Stage,
		GroupName:       record.GroupName,
		HomeTeam:        record.HomeTeam,
		AwayTeam:        record.AwayTeam,
		HomeCrest:       record.HomeCrest,
		AwayCrest:       record.AwayCrest,
		HomeScore:       record.HomeScore,
		AwayScore:       record.AwayScore,
		UpdatedAt:       record.UpdatedAt.UTC(),
	}
}

func (r matchRow) toRecord() match.Record {
	return match.Record{
		ExternalID:      r.ExternalID,
		CompetitionCode: r.CompetitionCode,
		CompetitionName: r.CompetitionName,
		KickoffAt:       r.KickoffAt.UTC(),
		Status:          r.Status,
		Matchday:        r.Matchday,
		Stage:           r.Stage,
		GroupName:       r.GroupName,
		HomeTeam:        r.HomeTeam,
		AwayTeam:        r.AwayTeam,
		HomeCrest:       r.HomeCrest,
		AwayCrest:       r.AwayCrest,
		HomeScore:       r.HomeScore,
		AwayScore:       r.AwayScore,
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}
