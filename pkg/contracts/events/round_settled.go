package events

import "time"

// Evento emitido pelo round-engine após liquidar uma rodada crash.
type RoundSettled struct {
	RoundID       int64     `json:"round_id"`
	CrashPoint    float64   `json:"crash_point"`
	OutcomeSource string    `json:"outcome_source"` // "computed" | "admin-override"
	ServerSeed    string    `json:"server_seed"`    // revelado após o crash
	BetCount      int       `json:"bet_count"`
	WinnerCount   int       `json:"winner_count"`
	TotalStaked   int64     `json:"total_staked_cents"`
	TotalPaidOut  int64     `json:"total_paid_out_cents"`
	Resettlement  bool      `json:"resettlement"`
	Ts            time.Time `json:"ts"`
}
