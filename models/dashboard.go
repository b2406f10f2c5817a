package models

type DashboardStats struct {
	PairsTotal          int `json:"pairs_total"`
	ChallengesTotal     int `json:"challenges_total"`
	ActiveChallenges    int `json:"active_challenges"`
	CompletedChallenges int `json:"completed_challenges"`
	DisputedChallenges  int `json:"disputed_challenges"`
	UsersTotal          int `json:"users_total"`
}
