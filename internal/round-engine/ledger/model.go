package ledger

import "time"

// Motivos registrados nas entradas do ledger
const (
	ReasonDeposit            = "deposit"
	ReasonBetPlaced          = "bet-placed"
	ReasonBetCancelled       = "bet-cancelled"
	ReasonBetWon             = "bet-won"
	ReasonSettlementReversed = "settlement-reversed"
)

// Entry é uma entrada imutável do ledger; o saldo de um usuário é a soma
// das suas entradas. Correções geram novas entradas, nunca edição.
type Entry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	AmountCents int64     `json:"amount_cents"` // com sinal: débito negativo, crédito positivo
	Reason      string    `json:"reason"`
	ReferenceID string    `json:"reference_id"` // id da aposta/rodada/jogo de origem
	CreatedAt   time.Time `json:"created_at"`
}
