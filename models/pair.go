package models

import "time"

// PairStats — накопительная статистика пары в рейтинге.
type PairStats struct {
	TotalGames          int        `json:"total_games"`
	Victories           int        `json:"victories"`
	Defeats             int        `json:"defeats"`
	WinRate             int        `json:"win_rate"` // percentage, rounded
	ChallengesSent      int        `json:"challenges_sent"`
	ChallengesReceived  int        `json:"challenges_received"`
	ChallengesAccepted  int        `json:"challenges_accepted"`
	ChallengesDeclined  int        `json:"challenges_declined"`
	CurrentStreak       int        `json:"current_streak"` // positive = wins, negative = losses
	BestStreak          int        `json:"best_streak"`
	LastGameDate        *time.Time `json:"last_game_date,omitempty"`
}

// Pair представляет пару (двойку игроков), занимающую одну позицию в рейтинге.
type Pair struct {
	ID               string    `json:"id"`
	Player1Name      string    `json:"player1_name"`
	Player2Name      string    `json:"player2_name"`
	ResponsiblePhone string    `json:"responsible_phone"`
	Position         int       `json:"position"` // 1 = top, contiguous, unique
	Stats            PairStats `json:"stats"`
	CreatedAt        time.Time `json:"created_at"`
	LogoKey          *string   `json:"-"`
	LogoURL          *string   `json:"logo_url,omitempty"`
}

// DisplayName is the form the challenge audit trail records.
func (p *Pair) DisplayName() string {
	return p.Player1Name + " / " + p.Player2Name
}
