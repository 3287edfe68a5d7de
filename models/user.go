package models

import "time"

type UserRole string

const (
	RoleAdmin     UserRole = "admin"
	RoleOrganizer UserRole = "organizer"
	RolePlayer    UserRole = "player"
)

type UserStatus string

const (
	UserStatusActive UserStatus = "active"
	UserStatusBanned UserStatus = "banned"
)

// DefaultElo is the rating every new profile starts with.
const DefaultElo = 1000

type User struct {
	ID           int        `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	DisplayName  string     `json:"display_name" db:"display_name"`
	Phone        *string    `json:"phone,omitempty" db:"phone"`
	ClubName     *string    `json:"club_name,omitempty" db:"club_name"`
	Bio          *string    `json:"bio,omitempty" db:"bio"`
	Role         UserRole   `json:"role" db:"role"`
	Status       UserStatus `json:"status" db:"status"`
	BanReason    *string    `json:"ban_reason,omitempty" db:"ban_reason"`
	VerifiedRank *Rank      `json:"verified_rank,omitempty" db:"verified_rank"`
	Elo          int        `json:"elo" db:"elo"`
	SpaPoints    int        `json:"spa_points" db:"spa_points"`
	AvatarKey    *string    `json:"-" db:"avatar_key"`
	AvatarURL    *string    `json:"avatar_url,omitempty" db:"-"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

func (u *User) IsBanned() bool {
	return u.Status == UserStatusBanned
}

type UserFilter struct {
	Search string
	Status *UserStatus
	Rank   *Rank
	Limit  int
	Offset int
}

type UserListResponse struct {
	Users      []User `json:"users"`
	TotalCount int    `json:"total_count"`
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
}

// LeaderboardOrder selects the column the leaderboard is sorted by.
type LeaderboardOrder string

const (
	LeaderboardByElo LeaderboardOrder = "elo"
	LeaderboardBySpa LeaderboardOrder = "spa"
)
