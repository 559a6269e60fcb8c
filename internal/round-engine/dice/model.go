package dice

import (
	"errors"
	"time"
)

// Status do jogo de dados PvP
type Status string

const (
	StatusAcceptingBets   Status = "ACCEPTING_BETS"
	StatusClosed          Status = "CLOSED"
	StatusWaitingForAdmin Status = "WAITING_FOR_ADMIN"
	StatusInProgress      Status = "IN_PROGRESS"
	StatusCompleted       Status = "COMPLETED"
)

// Identificadores dos lados do jogo
const (
	SidePlayer1 = "player1"
	SidePlayer2 = "player2"
)

func ValidSide(s string) bool { return s == SidePlayer1 || s == SidePlayer2 }

var (
	ErrNotFound      = errors.New("dice game not found")
	ErrInvalidState  = errors.New("operation not valid for current game status")
	ErrInvalidSide   = errors.New("unknown side")
	ErrBettingClosed = errors.New("game is not accepting bets")
)

// Game é uma instância do jogo de dados.
// SelectedWinner e AdminProfitCents mudam sempre juntos na transação de
// liquidação: nunca persiste uma combinação defasada dos dois.
type Game struct {
	ID               int64      `json:"id"`
	GameNumber       int64      `json:"game_number"`
	Status           Status     `json:"status"`
	Player1Name      string     `json:"player1Name"`
	Player2Name      string     `json:"player2Name"`
	PayoutMultiplier float64    `json:"payout_multiplier"` // fixo na criação, >= 1.0
	SelectedWinner   *string    `json:"selected_winner,omitempty"`
	DiceResult       *string    `json:"dice_result,omitempty"`
	AdminSetResult   bool       `json:"admin_set_result"`
	AutoSelected     bool       `json:"auto_selected"` // vencedor sugerido pelo caminho automático
	AdminProfitCents *int64     `json:"admin_profit_cents,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	ClosedAt         *time.Time `json:"closed_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// SideSummary agrega as apostas de um lado
type SideSummary struct {
	Side          string `json:"side"`
	Name          string `json:"name"`
	TotalBetCents int64  `json:"total_bet_cents"`
	BetCount      int    `json:"bet_count"`
}

// Bet é uma aposta em um lado de um jogo; mesma forma da aposta de rodada,
// com o lado no lugar do alvo de cashout
type Bet struct {
	ID                string     `json:"id"`
	GameID            int64      `json:"game_id"`
	UserID            string     `json:"userId"`
	Side              string     `json:"side"`
	StakeCents        int64      `json:"stake_cents"`
	Result            string     `json:"result"` // pending | win | loss | cancelled
	AmountChangeCents *int64     `json:"amount_change_cents,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	SettledAt         *time.Time `json:"settled_at,omitempty"`
}
