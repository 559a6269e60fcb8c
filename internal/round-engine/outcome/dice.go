package outcome

import "math"

// SideStake agrega o total apostado em um lado do jogo de dados
type SideStake struct {
	Side       string
	TotalCents int64
}

// ProfitIfWins calcula o lucro do admin caso o lado vença:
// totalStaked - (apostado no lado x payoutMultiplier)
func ProfitIfWins(totalStakedCents, sideStakeCents int64, payoutMultiplier float64) int64 {
	payout := int64(math.Round(float64(sideStakeCents) * payoutMultiplier))
	return totalStakedCents - payout
}

// Recommend retorna o lado cuja vitória gera mais lucro pro admin.
// Recomendação não-vinculante: o vencedor real é escolhido por ação explícita
// do admin, nunca por este cálculo.
func Recommend(sides []SideStake, payoutMultiplier float64) (side string, profitCents int64) {
	var total int64
	for _, s := range sides {
		total += s.TotalCents
	}

	first := true
	for _, s := range sides {
		p := ProfitIfWins(total, s.TotalCents, payoutMultiplier)
		if first || p > profitCents {
			side, profitCents = s.Side, p
			first = false
		}
	}
	return side, profitCents
}
