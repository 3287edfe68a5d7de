package models

type DashboardStats struct {
	UsersTotal          int `json:"users_total"`
	BannedUsers         int `json:"banned_users"`
	TournamentsTotal    int `json:"tournaments_total"`
	OngoingTournaments  int `json:"ongoing_tournaments"`
	ChallengesTotal     int `json:"challenges_total"`
	CompletedChallenges int `json:"completed_challenges"`
	PendingRankRequests int `json:"pending_rank_requests"`
	OpenPenaltyAppeals  int `json:"open_penalty_appeals"`
}
