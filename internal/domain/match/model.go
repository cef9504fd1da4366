package match

import (
	"strings"
	"time"
)

const (
	StatusScheduled = "SCHEDULED"
	StatusTimed     = "TIMED"
	StatusInPlay    = "IN_PLAY"
	StatusPaused    = "PAUSED"
	StatusFinished  = "FINISHED"
	StatusCancelled = "CANCELLED"
	StatusPostponed = "POSTPONED"
	StatusSuspended = "SUSPENDED"
)

// Record is the canonical row for one match, keyed by the provider's
// external match id. Scores stay nil until the match has been played.
type Record struct {
	ExternalID      int64
	CompetitionCode string
	CompetitionName string
	KickoffAt       time.Time
	Status          string
	Matchday        int
	Stage           string
	GroupName       string
	HomeTeam        string
	AwayTeam        string
	HomeCrest       string
	AwayCrest       string
	HomeScore       *int
	AwayScore       *int
	UpdatedAt       time.Time
}

func NormalizeStatus(value string) string {
	status := strings.ToUpper(strings.TrimSpace(value))
	if status == "" {
		return StatusScheduled
	}
	return status
}

func IsLiveStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusInPlay, StatusPaused, "LIVE", "HT":
		return true
	default:
		return false
	}
}

func IsFinishedStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusFinished, "FT", "AET", "PEN", "AWARDED":
		return true
	default:
		return false
	}
}

func IsCancelledLikeStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusCancelled, StatusPostponed, StatusSuspended, "ABANDONED":
		return true
	default:
		return false
	}
}
