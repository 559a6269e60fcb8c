package round_test

import (
	"testing"
	"time"

	"github.com/radieske/game-round-engine-poc/internal/round-engine/round"
)

func TestMultiplier_StartsAtOne(t *testing.T) {
	if got := round.Multiplier(0.06, 0); got != 1.0 {
		t.Errorf("got %v, want 1.0", got)
	}
}

func TestMultiplier_Monotonic(t *testing.T) {
	prev := 0.0
	for ms := int64(0); ms <= 60000; ms += 100 {
		m := round.Multiplier(0.06, time.Duration(ms)*time.Millisecond)
		if m < prev {
			t.Fatalf("multiplier decreased at %dms: %v < %v", ms, m, prev)
		}
		prev = m
	}
}

func TestMultiplier_TwoDecimals(t *testing.T) {
	for ms := int64(0); ms <= 10000; ms += 137 {
		m := round.Multiplier(0.06, time.Duration(ms)*time.Millisecond)
		scaled := m * 100
		if scaled != float64(int64(scaled)) {
			t.Fatalf("multiplier %v at %dms has more than two decimals", m, ms)
		}
	}
}

func TestTimeToReach_Inverse(t *testing.T) {
	const rate = 0.06
	for _, target := range []float64{1.5, 2.0, 3.0, 10.0} {
		d := round.TimeToReach(rate, target)
		// um tick depois do instante alvo a curva já deve ter alcançado o valor
		m := round.Multiplier(rate, d+100*time.Millisecond)
		if m < target-0.01 {
			t.Errorf("target %v: multiplier %v after %v has not reached it", target, m, d)
		}
	}
}

func TestTimeToReach_DegenerateTargets(t *testing.T) {
	if d := round.TimeToReach(0.06, 1.0); d != 0 {
		t.Errorf("target 1.0: got %v, want 0", d)
	}
	if d := round.TimeToReach(0, 2.0); d != 0 {
		t.Errorf("zero rate: got %v, want 0", d)
	}
}
