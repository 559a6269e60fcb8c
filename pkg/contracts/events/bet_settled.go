package events

import "time"

// Evento por aposta liquidada; é o que o notification-worker entrega por usuário.
type BetSettled struct {
	BetID             string    `json:"bet_id"`
	UserID            string    `json:"user_id"`
	Game              string    `json:"game"`         // "crash" | "dice" | "sports"
	ReferenceID       string    `json:"reference_id"` // round/game/bet conforme o jogo
	Result            string    `json:"result"`       // "win" | "loss"
	AmountChangeCents int64     `json:"amount_change_cents"`
	Resettlement      bool      `json:"resettlement"`
	Ts                time.Time `json:"ts"`
}
