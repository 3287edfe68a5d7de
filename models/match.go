package models

import "time"

type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchScheduled MatchStatus = "scheduled"
	MatchOngoing   MatchStatus = "ongoing"
	MatchCompleted MatchStatus = "completed"
)

type MatchKind string

const (
	MatchKindMain   MatchKind = "main"
	MatchKindBronze MatchKind = "bronze"
	MatchKindFinal  MatchKind = "final"
)

// Match is a persisted bracket slot of a tournament.
type Match struct {
	ID           int         `json:"id" db:"id"`
	TournamentID int         `json:"tournament_id" db:"tournament_id"`
	Round        int         `json:"round" db:"round"`
	MatchNumber  int         `json:"match_number" db:"match_number"`
	Kind         MatchKind   `json:"kind" db:"kind"`
	Player1ID    *int        `json:"player1_id,omitempty" db:"player1_id"`
	Player2ID    *int        `json:"player2_id,omitempty" db:"player2_id"`
	Player1Score *int        `json:"player1_score,omitempty" db:"player1_score"`
	Player2Score *int        `json:"player2_score,omitempty" db:"player2_score"`
	WinnerID     *int        `json:"winner_id,omitempty" db:"winner_id"`
	Status       MatchStatus `json:"status" db:"status"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}
