// Package relax drives the mass-spring mesh toward equilibrium: a
// synchronous, double-buffered iteration of force evaluation and
// integration with an explicit terminal state machine.
package relax

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/log"
	"github.com/san-kum/msmseg/internal/forces"
	"github.com/san-kum/msmseg/internal/integrators"
	"github.com/san-kum/msmseg/internal/mesh"
	"github.com/san-kum/msmseg/internal/parallel"
	"github.com/san-kum/msmseg/internal/volume"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// minChunk keeps tiny meshes on one goroutine.
const minChunk = 64

type Simulator struct {
	eval      *forces.Evaluator
	stepper   integrators.Stepper
	metrics   []Metric
	observers []Observer
	logger    *log.Logger
}

type Option func(*Simulator)

func WithLogger(l *log.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(eval *forces.Evaluator, stepper integrators.Stepper, opts ...Option) *Simulator {
	if stepper == nil {
		stepper = integrators.NewSemiImplicitEuler()
	}
	s := &Simulator{
		eval:      eval,
		stepper:   stepper,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		logger:    log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// run is the mutable state of one Run call.
type run struct {
	cfg     Config
	work    *mesh.Mesh
	pos     []r3.Vec
	vel     []r3.Vec
	nextPos []r3.Vec
	nextVel []r3.Vec
	disp    []float64
	oob     []bool
	total   int
}

// Run relaxes a copy of m. The input mesh is never modified.
//
// Construction and configuration errors are returned with a nil Result.
// Once the loop has started a Result is always returned; when the run
// fails it carries the last good mesh and the same *RunError that is
// returned as the error.
func (s *Simulator) Run(ctx context.Context, m *mesh.Mesh, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if s.eval == nil {
		return nil, fmt.Errorf("%w: no force evaluator", ErrInvalidConfig)
	}
	if m == nil || m.Len() == 0 {
		return nil, fmt.Errorf("%w: empty mesh", ErrInvalidTopology)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	if bound := integrators.StabilityBound(s.stepper, s.eval.Stiffness, cfg.Mass, cfg.Damping, m.MaxDegree()); cfg.Timestep >= bound {
		s.logger.Warn("timestep above stability bound", "dt", cfg.Timestep, "bound", bound)
	}

	for _, mt := range s.metrics {
		mt.Reset()
	}

	n := m.Len()
	r := &run{
		cfg:     cfg,
		work:    m.Clone(),
		pos:     m.Positions(),
		vel:     m.Velocities(),
		nextPos: make([]r3.Vec, n),
		nextVel: make([]r3.Vec, n),
		disp:    make([]float64, n),
		oob:     make([]bool, n),
	}
	initial := m.Positions()

	res := &Result{
		State:       StateInitialized,
		History:     make([]IterationStats, 0, min(cfg.MaxIterations, 1024)),
		OutOfBounds: make(map[int]int),
		Metrics:     make(map[string]float64),
	}
	res.State = StateRunning
	s.logger.Info("relaxation started", "points", n, "max_iterations", cfg.MaxIterations)

	for it := 1; it <= cfg.MaxIterations; it++ {
		if err := ctx.Err(); err != nil {
			s.fail(res, &RunError{Kind: ErrCancelled, Iteration: it - 1, Err: err})
			break
		}

		if err := s.iterate(ctx, r); err != nil {
			kind := err
			if ctx.Err() != nil {
				kind = ErrCancelled
			}
			runErr := &RunError{Kind: kind, Iteration: it, Err: err}
			var pe *pointError
			if errors.As(err, &pe) {
				runErr.PointIDs = []int{pe.id}
			}
			s.fail(res, runErr)
			break
		}

		var hit []int
		for id, o := range r.oob {
			if o {
				res.OutOfBounds[id]++
				hit = append(hit, id)
			}
		}
		r.total += len(hit)

		if bad := nonFinite(r.nextPos, r.nextVel); len(bad) > 0 {
			s.fail(res, &RunError{Kind: ErrNumericalInstability, Iteration: it, PointIDs: bad, Err: ErrNumericalInstability})
			break
		}
		if r.total > cfg.OutOfBoundsTolerance {
			err := fmt.Errorf("%d out-of-bounds samples exceed tolerance %d", r.total, cfg.OutOfBoundsTolerance)
			s.fail(res, &RunError{Kind: ErrOutOfBounds, Iteration: it, PointIDs: hit, Err: err})
			break
		}

		r.pos, r.nextPos = r.nextPos, r.pos
		r.vel, r.nextVel = r.nextVel, r.vel
		if err := r.work.SetState(r.pos, r.vel); err != nil {
			s.fail(res, &RunError{Kind: ErrInvalidTopology, Iteration: it, Err: err})
			break
		}

		stats := IterationStats{
			Iteration:        it,
			MaxDisplacement:  floats.Max(r.disp),
			MeanDisplacement: floats.Sum(r.disp) / float64(n),
			KineticEnergy:    kineticEnergy(r.vel, cfg.Mass),
			OutOfBounds:      len(hit),
			TotalOutOfBounds: r.total,
		}
		res.History = append(res.History, stats)
		res.Iterations = it

		for _, mt := range s.metrics {
			mt.Observe(stats, r.work)
		}
		for _, obs := range s.observers {
			obs.OnIteration(stats)
		}
		if cfg.LogEvery > 0 && it%cfg.LogEvery == 0 {
			s.logger.Debug("iteration", "n", it, "max_disp", stats.MaxDisplacement, "mean_disp", stats.MeanDisplacement, "oob", r.total)
		}

		if converged(stats, cfg) {
			res.State = StateConverged
			break
		}
	}

	if res.State == StateRunning {
		res.State = StateIterationLimitReached
	}

	res.Mesh = r.work
	res.Displacement = make([]float64, n)
	for i, p := range r.work.Points {
		res.Displacement[i] = r3.Norm(r3.Sub(p.Pos, initial[i]))
	}
	for _, mt := range s.metrics {
		res.Metrics[mt.Name()] = mt.Value()
	}

	if res.Err != nil {
		s.logger.Error("relaxation failed", "state", res.State, "iterations", res.Iterations, "err", res.Err)
		return res, res.Err
	}
	s.logger.Info("relaxation finished", "state", res.State, "iterations", res.Iterations)
	return res, nil
}

// iterate evaluates every point against the frozen front buffers and
// writes the integrated state into the back buffers.
func (s *Simulator) iterate(ctx context.Context, r *run) error {
	cfg := r.cfg
	return parallel.For(ctx, len(r.pos), minChunk, cfg.Workers, func(start, end int) error {
		for id := start; id < end; id++ {
			smp, err := s.eval.Evaluate(r.work, r.pos, id)
			r.oob[id] = smp.OutOfBounds
			if err != nil && !errors.Is(err, volume.ErrOutOfBounds) {
				return &pointError{id: id, err: err}
			}
			x, v := s.stepper.Step(r.pos[id], r.vel[id], smp.Net, cfg.Timestep, cfg.Damping, cfg.Mass)
			r.nextPos[id], r.nextVel[id] = x, v
			r.disp[id] = r3.Norm(r3.Sub(x, r.pos[id]))
		}
		return nil
	})
}

type pointError struct {
	id  int
	err error
}

func (e *pointError) Error() string { return fmt.Sprintf("point %d: %v", e.id, e.err) }

func (e *pointError) Unwrap() error { return e.err }

func (s *Simulator) fail(res *Result, err *RunError) {
	res.State = StateFailed
	res.Err = err
}

func converged(stats IterationStats, cfg Config) bool {
	d := stats.MaxDisplacement
	if cfg.Metric == ConvergeOnMean {
		d = stats.MeanDisplacement
	}
	return d < cfg.ConvergenceEpsilon
}

func kineticEnergy(vel []r3.Vec, mass float64) float64 {
	e := 0.0
	for _, v := range vel {
		e += r3.Norm2(v)
	}
	return 0.5 * mass * e
}

func nonFinite(pos, vel []r3.Vec) []int {
	var bad []int
	for i := range pos {
		if !finite(pos[i]) || !finite(vel[i]) {
			bad = append(bad, i)
		}
	}
	return bad
}

func finite(v r3.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsNaN(v.Z) &&
		!math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0) && !math.IsInf(v.Z, 0)
}
