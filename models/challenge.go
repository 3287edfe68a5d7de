package models

import "time"

type ChallengeStatus string

const (
	ChallengePending   ChallengeStatus = "pending"
	ChallengeAccepted  ChallengeStatus = "accepted"
	ChallengeDeclined  ChallengeStatus = "declined"
	ChallengeCompleted ChallengeStatus = "completed"
	ChallengeCancelled ChallengeStatus = "cancelled"
	ChallengeExpired   ChallengeStatus = "expired"
)

// Challenge is a one-on-one stake match between two ranked players.
type Challenge struct {
	ID                 int             `json:"id" db:"id"`
	ChallengerID       int             `json:"challenger_id" db:"challenger_id"`
	OpponentID         int             `json:"opponent_id" db:"opponent_id"`
	ChallengerRank     Rank            `json:"challenger_rank" db:"challenger_rank"`
	OpponentRank       Rank            `json:"opponent_rank" db:"opponent_rank"`
	StakeAmount        int             `json:"stake_amount" db:"stake_amount"`
	RaceTo             int             `json:"race_to" db:"race_to"`
	HandicapChallenger int             `json:"handicap_challenger" db:"handicap_challenger"`
	HandicapOpponent   int             `json:"handicap_opponent" db:"handicap_opponent"`
	Message            *string         `json:"message,omitempty" db:"message"`
	Status             ChallengeStatus `json:"status" db:"status"`
	ChallengerScore    *int            `json:"challenger_score,omitempty" db:"challenger_score"`
	OpponentScore      *int            `json:"opponent_score,omitempty" db:"opponent_score"`
	WinnerID           *int            `json:"winner_id,omitempty" db:"winner_id"`
	ExpiresAt          time.Time       `json:"expires_at" db:"expires_at"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
}

// IsParticipant reports whether userID is one of the two players.
func (c *Challenge) IsParticipant(userID int) bool {
	return c.ChallengerID == userID || c.OpponentID == userID
}

type ChallengeFilter struct {
	UserID *int
	Status *ChallengeStatus
	Limit  int
	Offset int
}
