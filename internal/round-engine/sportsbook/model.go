package sportsbook

import (
	"errors"
	"time"
)

// Status de uma aposta esportiva
const (
	StatusPending = "pending"
	StatusWin     = "win"
	StatusLoss    = "loss"
	StatusVoid    = "void" // evento cancelado; stake devolvido
)

var (
	ErrNotFound       = errors.New("sports bet not found")
	ErrInvalidStake   = errors.New("stake must be positive")
	ErrInvalidStatus  = errors.New("status must be win, loss or void")
	ErrAlreadySettled = errors.New("sports bet already settled")
	ErrWinAmount      = errors.New("win amount must be positive")
)

// Bet é uma aposta esportiva liquidada manualmente pelo admin
type Bet struct {
	ID                string     `json:"id"`
	UserID            string     `json:"userId"`
	EventID           string     `json:"eventId"`
	Market            string     `json:"market"`    // ex: "MATCH_ODDS"
	Selection         string     `json:"selection"` // "home" | "draw" | "away"
	StakeCents        int64      `json:"stake_cents"`
	OddValue          float64    `json:"odd_value"`
	Status            string     `json:"status"`
	AmountChangeCents *int64     `json:"amount_change_cents,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	SettledAt         *time.Time `json:"settled_at,omitempty"`
}

// BulkResult é o resultado individual de um id dentro de uma liquidação em lote
type BulkResult struct {
	BetID string `json:"betId"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}
