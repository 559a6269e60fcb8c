package outcome

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"math/big"
)

// Source indica a origem do resultado que chega na liquidação
type Source string

const (
	SourceComputed      Source = "computed"       // derivado do seed comprometido
	SourceAdminOverride Source = "admin-override" // multiplicador informado pelo admin
)

// Crash é o resultado canônico de uma rodada; o mesmo valor vale para
// todas as apostas da rodada, sem aplicação parcial
type Crash struct {
	Source     Source
	CrashPoint float64
}

func Computed(v float64) Crash      { return Crash{Source: SourceComputed, CrashPoint: v} }
func AdminOverride(v float64) Crash { return Crash{Source: SourceAdminOverride, CrashPoint: v} }

// Limites do crash point derivado
const (
	MinCrashPoint = 1.0
	MaxCrashPoint = 10000.0
)

// GenerateServerSeed cria um server seed aleatório (hex) para o commit-reveal
func GenerateServerSeed() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// CommitHash retorna o SHA-256 do seed, publicado antes da rodada começar
func CommitHash(seed string) string {
	h := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(h[:])
}

// DeriveFloat64 deriva deterministicamente um valor em [0,1) de serverSeed e roundKey
// HMAC-SHA256(serverSeed, roundKey), primeiros 8 bytes interpretados como inteiro
func DeriveFloat64(serverSeed, roundKey string) float64 {
	mac := hmac.New(sha256.New, []byte(serverSeed))
	mac.Write([]byte(roundKey))
	sum := mac.Sum(nil)

	bigInt := new(big.Int).SetBytes(sum[:8])
	max := new(big.Int).Lsh(big.NewInt(1), 64) // 2^64
	f, _ := new(big.Rat).SetFrac(bigInt, max).Float64()
	return f
}

// CrashPoint calcula o ponto de crash da rodada a partir do seed comprometido.
// Fixado na criação da rodada, antes de qualquer aposta ser admitida.
// crash = (1 - houseEdge) / (1 - f), truncado em duas casas, limitado a [1.0, 10000.0]
func CrashPoint(serverSeed, roundKey string, houseEdge float64) float64 {
	f := DeriveFloat64(serverSeed, roundKey)
	if f >= 1.0 {
		f = math.Nextafter(1.0, 0)
	}

	cp := (1.0 - houseEdge) / (1.0 - f)
	cp = math.Floor(cp*100) / 100

	if cp < MinCrashPoint {
		return MinCrashPoint
	}
	if cp > MaxCrashPoint {
		return MaxCrashPoint
	}
	return cp
}
