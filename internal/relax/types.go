package relax

import (
	"fmt"
	"math"

	"github.com/san-kum/msmseg/internal/mesh"
)

// ConvergenceMetric picks which per-iteration displacement statistic is
// compared against the convergence epsilon.
type ConvergenceMetric int

const (
	ConvergeOnMax ConvergenceMetric = iota
	ConvergeOnMean
)

func (c ConvergenceMetric) String() string {
	if c == ConvergeOnMean {
		return "mean"
	}
	return "max"
}

func ParseConvergenceMetric(s string) (ConvergenceMetric, error) {
	switch s {
	case "", "max":
		return ConvergeOnMax, nil
	case "mean":
		return ConvergeOnMean, nil
	}
	return ConvergeOnMax, fmt.Errorf("%w: unknown convergence metric %q", ErrInvalidConfig, s)
}

type Config struct {
	Timestep float64
	// Damping is the velocity retention factor in [0,1].
	Damping            float64
	Mass               float64
	ConvergenceEpsilon float64
	Metric             ConvergenceMetric
	MaxIterations      int
	// OutOfBoundsTolerance is the number of out-of-bounds samples, summed
	// over all points and iterations, that a run absorbs before failing.
	OutOfBoundsTolerance int
	Workers              int
	// LogEvery controls how often progress is logged at debug level.
	LogEvery int
}

func DefaultConfig() Config {
	return Config{
		Timestep:             0.1,
		Damping:              0.8,
		Mass:                 1,
		ConvergenceEpsilon:   1e-3,
		MaxIterations:        500,
		OutOfBoundsTolerance: 64,
		LogEvery:             50,
	}
}

func (c Config) Validate() error {
	switch {
	case !(c.Timestep > 0) || math.IsInf(c.Timestep, 0):
		return fmt.Errorf("%w: timestep must be positive, got %g", ErrInvalidConfig, c.Timestep)
	case !(c.Damping >= 0 && c.Damping <= 1):
		return fmt.Errorf("%w: damping must be in [0,1], got %g", ErrInvalidConfig, c.Damping)
	case !(c.Mass > 0):
		return fmt.Errorf("%w: mass must be positive, got %g", ErrInvalidConfig, c.Mass)
	case !(c.ConvergenceEpsilon > 0):
		return fmt.Errorf("%w: convergence epsilon must be positive, got %g", ErrInvalidConfig, c.ConvergenceEpsilon)
	case c.MaxIterations <= 0:
		return fmt.Errorf("%w: max iterations must be positive, got %d", ErrInvalidConfig, c.MaxIterations)
	case c.OutOfBoundsTolerance < 0:
		return fmt.Errorf("%w: out-of-bounds tolerance must be non-negative, got %d", ErrInvalidConfig, c.OutOfBoundsTolerance)
	}
	return nil
}

// IterationStats summarises one completed iteration.
type IterationStats struct {
	Iteration        int
	MaxDisplacement  float64
	MeanDisplacement float64
	KineticEnergy    float64
	OutOfBounds      int
	TotalOutOfBounds int
}

type Metric interface {
	Name() string
	// Observe is called after every completed iteration with the mesh in
	// its post-iteration state. It must not retain or modify the mesh.
	Observe(stats IterationStats, m *mesh.Mesh)
	Value() float64
	Reset()
}

type Observer interface {
	OnIteration(stats IterationStats)
}

type ObserverFunc func(stats IterationStats)

func (f ObserverFunc) OnIteration(stats IterationStats) { f(stats) }

type Result struct {
	// Mesh is the final state, or the last good state when the run failed.
	Mesh       *mesh.Mesh
	State      State
	Iterations int
	// Displacement is |final - initial| per point id.
	Displacement []float64
	History      []IterationStats
	// OutOfBounds counts out-of-bounds samples per point id.
	OutOfBounds map[int]int
	Err         error
	Metrics     map[string]float64
}
