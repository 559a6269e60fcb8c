package events

import "time"

// Evento emitido após liquidar (ou corrigir) um jogo de dados PvP.
type GameSettled struct {
	GameID           int64     `json:"game_id"`
	GameNumber       int64     `json:"game_number"`
	Winner           string    `json:"winner"`
	DiceResult       string    `json:"dice_result,omitempty"`
	AdminProfitCents int64     `json:"admin_profit_cents"`
	Resettlement     bool      `json:"resettlement"`
	Ts               time.Time `json:"ts"`
}
