package models

import "time"

type EloHistory struct {
	ID          int       `json:"id" db:"id"`
	UserID      int       `json:"user_id" db:"user_id"`
	ChallengeID *int      `json:"challenge_id,omitempty" db:"challenge_id"`
	OpponentID  *int      `json:"opponent_id,omitempty" db:"opponent_id"`
	EloBefore   int       `json:"elo_before" db:"elo_before"`
	EloAfter    int       `json:"elo_after" db:"elo_after"`
	EloChange   int       `json:"elo_change" db:"elo_change"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type SpaReason string

const (
	SpaChallengeWin    SpaReason = "challenge_win"
	SpaChallengeLoss   SpaReason = "challenge_loss"
	SpaTournamentPlace SpaReason = "tournament_placement"
	SpaPenalty         SpaReason = "penalty"
	SpaPenaltyRefund   SpaReason = "penalty_refund"
)

// SpaTransaction is one entry of a player's SPA points ledger.
type SpaTransaction struct {
	ID          int       `json:"id" db:"id"`
	UserID      int       `json:"user_id" db:"user_id"`
	Amount      int       `json:"amount" db:"amount"`
	Reason      SpaReason `json:"reason" db:"reason"`
	ReferenceID *int      `json:"reference_id,omitempty" db:"reference_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
