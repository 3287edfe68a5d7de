package models

import "time"

type RankRequestStatus string

const (
	RankRequestPending  RankRequestStatus = "pending"
	RankRequestApproved RankRequestStatus = "approved"
	RankRequestRejected RankRequestStatus = "rejected"
)

// RankRequest is a player's claim to a rank, backed by uploaded evidence.
type RankRequest struct {
	ID            int               `json:"id" db:"id"`
	UserID        int               `json:"user_id" db:"user_id"`
	RequestedRank Rank              `json:"requested_rank" db:"requested_rank"`
	EvidenceKey   string            `json:"-" db:"evidence_key"`
	EvidenceURL   *string           `json:"evidence_url,omitempty" db:"-"`
	Note          *string           `json:"note,omitempty" db:"note"`
	Status        RankRequestStatus `json:"status" db:"status"`
	ReviewerID    *int              `json:"reviewer_id,omitempty" db:"reviewer_id"`
	RejectReason  *string           `json:"reject_reason,omitempty" db:"reject_reason"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	ReviewedAt    *time.Time        `json:"reviewed_at,omitempty" db:"reviewed_at"`
}
