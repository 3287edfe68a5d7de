package models

import "time"

type PenaltyStatus string

const (
	PenaltyActive   PenaltyStatus = "active"
	PenaltyAppealed PenaltyStatus = "appealed"
	PenaltyUpheld   PenaltyStatus = "upheld"
	PenaltyRevoked  PenaltyStatus = "revoked"
)

type Penalty struct {
	ID          int           `json:"id" db:"id"`
	UserID      int           `json:"user_id" db:"user_id"`
	IssuedBy    int           `json:"issued_by" db:"issued_by"`
	SpaDeducted int           `json:"spa_deducted" db:"spa_deducted"`
	Reason      string        `json:"reason" db:"reason"`
	AppealText  *string       `json:"appeal_text,omitempty" db:"appeal_text"`
	Status      PenaltyStatus `json:"status" db:"status"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty" db:"resolved_at"`
}
