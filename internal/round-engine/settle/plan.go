package settle

import (
	"math"

	"github.com/radieske/game-round-engine-poc/internal/round-engine/dice"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/ledger"
	"github.com/radieske/game-round-engine-poc/internal/round-engine/round"
)

// BetResult é o resultado calculado de uma aposta
type BetResult struct {
	BetID             string
	UserID            string
	Result            string // win | loss
	AmountChangeCents int64  // payout - stake (perda = -stake)
	PayoutCents       int64  // crédito aplicado no ledger (0 em perda)
}

// Entry é uma mutação de ledger planejada, ainda não aplicada
type Entry struct {
	UserID      string
	AmountCents int64
	Reason      string
	ReferenceID string
}

// Plan é o conjunto completo de efeitos de uma liquidação; calculado puro,
// aplicado depois em uma única transação
type Plan struct {
	Results []BetResult
	Entries []Entry
	Summary round.SettlementSummary
}

// PlanCrash calcula ganho/perda de cada aposta da rodada pro crash point canônico.
// Regra do produto: a aposta ganha sse o alvo de cashout foi definido e é <= crash
// point; o pagamento é stake x alvo (liquidado no alvo do jogador, não no
// multiplicador final). Sem alvo registrado antes do crash, a aposta perde.
func PlanCrash(bets []round.Bet, crashPoint float64) Plan {
	var p Plan
	for _, b := range bets {
		if b.Result == round.ResultCancelled {
			continue
		}
		p.Summary.BetCount++
		p.Summary.TotalStakedCents += b.StakeCents

		if b.CashoutMultiplier != nil && *b.CashoutMultiplier <= crashPoint {
			payout := int64(math.Round(float64(b.StakeCents) * *b.CashoutMultiplier))
			p.Results = append(p.Results, BetResult{
				BetID:             b.ID,
				UserID:            b.UserID,
				Result:            round.ResultWin,
				AmountChangeCents: payout - b.StakeCents,
				PayoutCents:       payout,
			})
			p.Entries = append(p.Entries, Entry{
				UserID:      b.UserID,
				AmountCents: payout,
				Reason:      ledger.ReasonBetWon,
				ReferenceID: b.ID,
			})
			p.Summary.WinnerCount++
			p.Summary.TotalPaidOutCents += payout
			continue
		}

		// stake já foi debitado na admissão; perda não gera entrada
		p.Results = append(p.Results, BetResult{
			BetID:             b.ID,
			UserID:            b.UserID,
			Result:            round.ResultLoss,
			AmountChangeCents: -b.StakeCents,
		})
	}
	return p
}

// PlanDice calcula ganho/perda por aposta dado o lado vencedor:
// vitória paga stake x payoutMultiplier, derrota paga zero
func PlanDice(bets []dice.Bet, winner string, payoutMultiplier float64) Plan {
	var p Plan
	for _, b := range bets {
		if b.Result == round.ResultCancelled {
			continue
		}
		p.Summary.BetCount++
		p.Summary.TotalStakedCents += b.StakeCents

		if b.Side == winner {
			payout := int64(math.Round(float64(b.StakeCents) * payoutMultiplier))
			p.Results = append(p.Results, BetResult{
				BetID:             b.ID,
				UserID:            b.UserID,
				Result:            round.ResultWin,
				AmountChangeCents: payout - b.StakeCents,
				PayoutCents:       payout,
			})
			p.Entries = append(p.Entries, Entry{
				UserID:      b.UserID,
				AmountCents: payout,
				Reason:      ledger.ReasonBetWon,
				ReferenceID: b.ID,
			})
			p.Summary.WinnerCount++
			p.Summary.TotalPaidOutCents += payout
			continue
		}

		p.Results = append(p.Results, BetResult{
			BetID:             b.ID,
			UserID:            b.UserID,
			Result:            round.ResultLoss,
			AmountChangeCents: -b.StakeCents,
		})
	}
	return p
}

// AdminProfitCents deriva o lucro do admin da liquidação: total apostado menos
// total pago; recalculado a cada liquidação e a cada correção
func (p Plan) AdminProfitCents() int64 {
	return p.Summary.TotalStakedCents - p.Summary.TotalPaidOutCents
}

// SettledPayout é o pagamento anterior de uma aposta vencedora, alvo de reversão
type SettledPayout struct {
	BetID       string
	UserID      string
	PayoutCents int64
}

// Reversal resume a fase de reversão de uma correção
type Reversal struct {
	ReversedBets  int   `json:"reversed_bets"`
	ReversedCents int64 `json:"reversed_cents"`
}

// PlanReversal gera, pra cada pagamento anterior, uma entrada que o cancela
// exatamente. Stakes não entram: foram consumidos na admissão e uma correção
// não devolve nem cobra de novo o stake.
func PlanReversal(payouts []SettledPayout) ([]Entry, Reversal) {
	var entries []Entry
	var rev Reversal
	for _, s := range payouts {
		if s.PayoutCents <= 0 {
			continue
		}
		entries = append(entries, Entry{
			UserID:      s.UserID,
			AmountCents: -s.PayoutCents,
			Reason:      ledger.ReasonSettlementReversed,
			ReferenceID: s.BetID,
		})
		rev.ReversedBets++
		rev.ReversedCents += s.PayoutCents
	}
	return entries, rev
}
