package models

import "time"

// TournamentStatus mirrors the tournament_status enum in the database.
type TournamentStatus string

const (
	TournamentUpcoming     TournamentStatus = "upcoming"
	TournamentRegistration TournamentStatus = "registration"
	TournamentOngoing      TournamentStatus = "ongoing"
	TournamentCompleted    TournamentStatus = "completed"
	TournamentCancelled    TournamentStatus = "cancelled"
)

func (s TournamentStatus) IsValid() bool {
	switch s {
	case TournamentUpcoming, TournamentRegistration, TournamentOngoing, TournamentCompleted, TournamentCancelled:
		return true
	}
	return false
}

type Tournament struct {
	ID                int              `json:"id" db:"id"`
	Name              string           `json:"name" db:"name"`
	Slug              string           `json:"slug" db:"slug"`
	Description       *string          `json:"description,omitempty" db:"description"`
	OrganizerID       int              `json:"organizer_id" db:"organizer_id"`
	BracketSize       int              `json:"bracket_size" db:"bracket_size"`
	RaceTo            int              `json:"race_to" db:"race_to"`
	EntryFee          int              `json:"entry_fee" db:"entry_fee"`
	PrizePool         int              `json:"prize_pool" db:"prize_pool"`
	Venue             *string          `json:"venue,omitempty" db:"venue"`
	RegistrationStart time.Time        `json:"registration_start" db:"registration_start"`
	RegistrationEnd   time.Time        `json:"registration_end" db:"registration_end"`
	StartDate         time.Time        `json:"start_date" db:"start_date"`
	Status            TournamentStatus `json:"status" db:"status"`
	WinnerID          *int             `json:"winner_id,omitempty" db:"winner_id"`
	LogoKey           *string          `json:"-" db:"logo_key"`
	LogoURL           *string          `json:"logo_url,omitempty" db:"-"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`

	Registrations []Registration `json:"registrations,omitempty" db:"-"`
	Matches       []Match        `json:"matches,omitempty" db:"-"`
}

type RegistrationStatus string

const (
	RegistrationActive    RegistrationStatus = "registered"
	RegistrationWithdrawn RegistrationStatus = "withdrawn"
)

// Registration is a player's entry into a tournament.
type Registration struct {
	ID           int                `json:"id" db:"id"`
	TournamentID int                `json:"tournament_id" db:"tournament_id"`
	UserID       int                `json:"user_id" db:"user_id"`
	Status       RegistrationStatus `json:"status" db:"status"`
	CreatedAt    time.Time          `json:"created_at" db:"created_at"`

	User *User `json:"user,omitempty" db:"-"`
}

type TournamentFilter struct {
	Status *TournamentStatus
	Limit  int
	Offset int
}
