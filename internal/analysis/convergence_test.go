package analysis

import (
	"math"
	"testing"

	"github.com/san-kum/msmseg/internal/relax"
)

func geometric(n int, first, factor float64) []relax.IterationStats {
	h := make([]relax.IterationStats, n)
	d := first
	for i := range h {
		h[i] = relax.IterationStats{Iteration: i + 1, MaxDisplacement: d, MeanDisplacement: d / 2}
		d *= factor
	}
	return h
}

func TestDecayRateGeometric(t *testing.T) {
	rate, intercept, ok := DecayRate(geometric(20, 1, 0.5))
	if !ok {
		t.Fatal("expected a fit")
	}
	if math.Abs(rate-math.Log(0.5)) > 1e-9 {
		t.Errorf("expected rate ln(0.5), got %f", rate)
	}
	// d(1) = 1, so ln d = rate*(it-1)
	if math.Abs(intercept+rate) > 1e-9 {
		t.Errorf("unexpected intercept %f", intercept)
	}
}

func TestDecayRateTooShort(t *testing.T) {
	h := geometric(2, 1, 0.5)
	h = append(h, relax.IterationStats{Iteration: 3})
	if _, _, ok := DecayRate(h); ok {
		t.Error("zero displacements must not count toward the fit")
	}
}

func TestAnalyzePrediction(t *testing.T) {
	rep := Analyze(geometric(10, 1, 0.5), 1e-3)
	if !rep.Fitted {
		t.Fatal("expected a fit")
	}
	if math.Abs(rep.HalfLife-1) > 1e-9 {
		t.Errorf("expected half-life 1, got %f", rep.HalfLife)
	}
	// 0.5^(it-1) <= 1e-3 first at it = 11
	if rep.Predicted != 11 {
		t.Errorf("expected predicted iteration 11, got %d", rep.Predicted)
	}
	if rep.Period != 0 {
		t.Errorf("monotone decay should not ring, got period %f", rep.Period)
	}
}

func TestAnalyzeGrowing(t *testing.T) {
	rep := Analyze(geometric(10, 1, 1.5), 1e-3)
	if rep.Rate <= 0 {
		t.Errorf("expected positive rate, got %f", rep.Rate)
	}
	if !math.IsInf(rep.HalfLife, 1) || rep.Predicted != -1 {
		t.Errorf("diverging run has no half-life or prediction: %+v", rep)
	}
}

func TestDominantPeriod(t *testing.T) {
	h := make([]relax.IterationStats, 64)
	for i := range h {
		h[i] = relax.IterationStats{
			Iteration:        i + 1,
			MeanDisplacement: 1 + 0.5*math.Sin(2*math.Pi*float64(i)/8),
		}
	}
	if p := DominantPeriod(h); math.Abs(p-8) > 1e-9 {
		t.Errorf("expected period 8, got %f", p)
	}

	if p := DominantPeriod(h[:4]); p != 0 {
		t.Errorf("short history should report 0, got %f", p)
	}
}
