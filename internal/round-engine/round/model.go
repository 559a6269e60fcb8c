package round

import (
	"errors"
	"time"
)

// State é o estado do ciclo de vida de uma rodada crash
type State string

const (
	StateWaiting    State = "WAITING"
	StateInProgress State = "IN_PROGRESS"
	StateCrashed    State = "CRASHED"
	StateCompleted  State = "COMPLETED"
)

// Tabela de transições legais; qualquer outra aresta falha sem mutação
var legalTransitions = map[State]map[State]bool{
	StateWaiting:    {StateInProgress: true},
	StateInProgress: {StateCrashed: true},
	StateCrashed:    {StateCompleted: true},
}

// CanTransition responde se a aresta from->to é legal
func CanTransition(from, to State) bool {
	return legalTransitions[from][to]
}

// ActiveStates são estados em que a rodada ocupa o slot único do sistema
var ActiveStates = []State{StateWaiting, StateInProgress}

// AdmittingStates são estados em que a rodada aceita apostas
func (s State) Admitting() bool {
	return s == StateWaiting || s == StateInProgress
}

var (
	ErrActiveRoundExists = errors.New("an active round already exists")
	ErrNoActiveRound     = errors.New("no active round")
	ErrNotFound          = errors.New("round not found")
	ErrIllegalTransition = errors.New("illegal round state transition")
	ErrBettingClosed     = errors.New("round is not accepting bets")
)

// Round é uma instância do jogo de multiplicador.
// CrashPoint e ServerSeed são fixados na criação (commit-reveal) e só podem
// ser expostos depois do crash; CommitHash é público desde o início.
type Round struct {
	ID            int64      `json:"id"`
	State         State      `json:"state"`
	Multiplier    float64    `json:"multiplier"` // congelado no crash
	CrashPoint    float64    `json:"-"`
	OutcomeSource string     `json:"outcome_source,omitempty"` // "computed" | "admin-override"
	CommitHash    string     `json:"commit_hash"`
	ServerSeed    string     `json:"-"`
	RoundKey      string     `json:"round_key"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Resultados possíveis de uma aposta
const (
	ResultPending   = "pending"
	ResultWin       = "win"
	ResultLoss      = "loss"
	ResultCancelled = "cancelled"
)

// Bet é uma aposta contra uma rodada; imutável depois de admitida.
// AmountChangeCents é definido uma única vez por ciclo de liquidação;
// correção passa por reversão explícita, nunca sobrescrita silenciosa.
type Bet struct {
	ID                string     `json:"id"`
	RoundID           int64      `json:"round_id"`
	UserID            string     `json:"userId"`
	StakeCents        int64      `json:"stake_cents"`
	CashoutMultiplier *float64   `json:"cashout_multiplier,omitempty"` // alvo escolhido pelo jogador
	Result            string     `json:"result"`
	AmountChangeCents *int64     `json:"amount_change_cents,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	SettledAt         *time.Time `json:"settled_at,omitempty"`
}

// SettlementSummary resume a liquidação de uma rodada/jogo
type SettlementSummary struct {
	BetCount          int   `json:"bet_count"`
	WinnerCount       int   `json:"winner_count"`
	TotalStakedCents  int64 `json:"total_staked_cents"`
	TotalPaidOutCents int64 `json:"total_paid_out_cents"`
}
