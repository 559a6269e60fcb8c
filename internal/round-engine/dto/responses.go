package dto

import (
	"time"

	"github.com/radieske/game-round-engine-poc/internal/round-engine/dice"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/round"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/settle"
)

// Round é a visão pública de uma rodada: crash_point e server_seed só
// aparecem depois do crash (commit-reveal), o commit_hash desde o início
type Round struct {
	ID            int64      `json:"id"`
	State         string     `json:"state"`
	Multiplier    float64    `json:"multiplier"`
	CrashPoint    *float64   `json:"crash_point,omitempty"`
	ServerSeed    *string    `json:"server_seed,omitempty"`
	OutcomeSource string     `json:"outcome_source,omitempty"`
	CommitHash    string     `json:"commit_hash"`
	RoundKey      string     `json:"round_key"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// RoundFrom projeta a rodada pro formato público, revelando o seed e o
// crash point apenas quando o estado já passou do crash
func RoundFrom(r *round.Round) Round {
	out := Round{
		ID:            r.ID,
		State:         string(r.State),
		Multiplier:    r.Multiplier,
		OutcomeSource: r.OutcomeSource,
		CommitHash:    r.CommitHash,
		RoundKey:      r.RoundKey,
		StartedAt:     r.StartedAt,
		EndedAt:       r.EndedAt,
		CreatedAt:     r.CreatedAt,
	}
	if r.State == round.StateCrashed || r.State == round.StateCompleted {
		cp := r.CrashPoint
		seed := r.ServerSeed
		out.CrashPoint = &cp
		out.ServerSeed = &seed
	}
	return out
}

type CurrentRoundResponse struct {
	Round            Round   `json:"round"`
	Multiplier       float64 `json:"multiplier"`
	ElapsedMs        int64   `json:"elapsed_ms"`
	BetCount         int     `json:"bet_count"`
	TotalStakedCents int64   `json:"total_staked_cents"`
}

type CrashRoundResponse struct {
	Round      Round                   `json:"round"`
	Settlement round.SettlementSummary `json:"settlement"`
}

type ChangeRoundOutcomeResponse struct {
	Round      Round                   `json:"round"`
	Reversal   settle.Reversal         `json:"reversal"`
	Settlement round.SettlementSummary `json:"settlement"`
}

// Recommendation é a sugestão não vinculante de vencedor pro admin
type Recommendation struct {
	Side        string `json:"side"`
	ProfitCents int64  `json:"profit_cents"`
}

type GameResponse struct {
	Game           dice.Game          `json:"game"`
	Options        []dice.SideSummary `json:"options"`
	Recommendation *Recommendation    `json:"recommendation,omitempty"`
}

type SelectWinnerResponse struct {
	Game       dice.Game               `json:"game"`
	Settlement round.SettlementSummary `json:"settlement"`
}

type ChangeOutcomeResponse struct {
	Game       dice.Game               `json:"game"`
	Reversal   settle.Reversal         `json:"reversal"`
	Settlement round.SettlementSummary `json:"settlement"`
}

type WalletResponse struct {
	UserID       string `json:"userId"`
	WalletID     string `json:"walletId"`
	BalanceCents int64  `json:"balance_cents"`
}

type ListResponse[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
