package analysis

import (
	"math"
	"math/cmplx"

	"github.com/san-kum/msmseg/internal/relax"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// minFit is the fewest positive samples a rate is estimated from.
const minFit = 3

type Report struct {
	Iterations int
	// Rate is d ln(max displacement) / d iteration from a least-squares
	// fit. Negative when the mesh is settling.
	Rate float64
	// HalfLife is the number of iterations that halve the step size; +Inf
	// unless Rate is negative.
	HalfLife float64
	// Predicted is the iteration at which the fit reaches epsilon, or -1
	// when it never does.
	Predicted int
	// Period is the dominant oscillation period of the mean displacement
	// in iterations, 0 when there is no ringing.
	Period float64
	Fitted bool
}

// DecayRate fits ln(MaxDisplacement) against the iteration number. Zero
// displacements are skipped. ok is false with fewer than three usable
// iterations.
func DecayRate(history []relax.IterationStats) (rate, intercept float64, ok bool) {
	xs := make([]float64, 0, len(history))
	ys := make([]float64, 0, len(history))
	for _, h := range history {
		if h.MaxDisplacement > 0 && !math.IsInf(h.MaxDisplacement, 0) {
			xs = append(xs, float64(h.Iteration))
			ys = append(ys, math.Log(h.MaxDisplacement))
		}
	}
	if len(xs) < minFit {
		return 0, 0, false
	}
	intercept, rate = stat.LinearRegression(xs, ys, nil, false)
	return rate, intercept, true
}

// DominantPeriod returns the period, in iterations, of the strongest
// non-constant frequency in the mean displacement after removing its
// linear trend. A peak below two full cycles per history is trend, not
// ringing, and so is a peak holding less than a quarter of the
// non-constant power; both report 0.
func DominantPeriod(history []relax.IterationStats) float64 {
	n := len(history)
	if n < 8 {
		return 0
	}
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, h := range history {
		xs[i] = float64(i)
		ys[i] = h.MeanDisplacement
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	for i := range ys {
		ys[i] -= alpha + beta*xs[i]
	}

	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, ys)

	total, peak, at := 0.0, 0.0, 0
	for i := 1; i < len(coeff); i++ {
		p := cmplx.Abs(coeff[i])
		p *= p
		total += p
		if p > peak {
			peak, at = p, i
		}
	}
	if total == 0 || at < 2 || peak < total/4 {
		return 0
	}
	freq := fft.Freq(at)
	if freq == 0 {
		return 0
	}
	return 1 / freq
}

// Analyze summarises a run history. epsilon is the convergence threshold
// the prediction is made against.
func Analyze(history []relax.IterationStats, epsilon float64) Report {
	rep := Report{
		Iterations: len(history),
		HalfLife:   math.Inf(1),
		Predicted:  -1,
		Period:     DominantPeriod(history),
	}

	rate, intercept, ok := DecayRate(history)
	if !ok {
		return rep
	}
	rep.Fitted = true
	rep.Rate = rate
	if rate < 0 {
		rep.HalfLife = math.Ln2 / -rate
		if epsilon > 0 {
			rep.Predicted = int(math.Ceil((math.Log(epsilon) - intercept) / rate))
		}
	}
	return rep
}
