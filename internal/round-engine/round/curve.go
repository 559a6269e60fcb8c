package round

import (
	"math"
	"time"
)

// Multiplier calcula o multiplicador exibido após elapsed de rodada.
// Curva exponencial m(t) = e^(rate*t): monotônica e reproduzível, de modo que
// o valor exibido e a curva de pagamento nunca divergem pro mesmo crash point.
func Multiplier(growthRate float64, elapsed time.Duration) float64 {
	m := math.Exp(growthRate * elapsed.Seconds())
	// truncado em duas casas, igual ao valor exibido pros jogadores
	m = math.Floor(m*100) / 100
	if m < 1.0 {
		return 1.0
	}
	return m
}

// TimeToReach retorna quanto tempo a curva leva pra atingir o multiplicador alvo
func TimeToReach(growthRate, target float64) time.Duration {
	if target <= 1.0 || growthRate <= 0 {
		return 0
	}
	secs := math.Log(target) / growthRate
	return time.Duration(secs * float64(time.Second))
}
