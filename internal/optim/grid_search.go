// Package optim searches the numeric configuration space for the setting
// that scores best on a run metric.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/san-kum/msmseg/internal/config"
	"github.com/san-kum/msmseg/internal/experiment"
	"github.com/san-kum/msmseg/internal/relax"
	"github.com/san-kum/msmseg/internal/volume"
	"golang.org/x/sync/errgroup"
)

var ErrNoTrials = errors.New("optim: no trial finished")

// Axis is one swept option and the values it takes.
type Axis struct {
	Key    string
	Values []float64
}

type Trial struct {
	Params map[string]float64
	State  relax.State
	// Score is the objective metric, +Inf for failed or invalid trials.
	Score      float64
	Iterations int
	Err        error
}

type GridSearch struct {
	axes     []Axis
	parallel int
}

func NewGridSearch(axes []Axis) *GridSearch {
	return &GridSearch{axes: axes, parallel: runtime.NumCPU()}
}

// SetParallel bounds how many trials run at once.
func (g *GridSearch) SetParallel(n int) {
	if n > 0 {
		g.parallel = n
	}
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, a := range g.axes {
		n *= len(a.Values)
	}
	return n
}

// Search runs one experiment per grid point on top of base and returns
// every trial sorted by ascending score (ties keep grid order) together
// with the best one. Every trial segments the same volume, built once
// from base unless acc is given.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, acc volume.Accessor, metric string) (*Trial, []Trial, error) {
	for _, a := range g.axes {
		if _, err := base.Get(a.Key); err != nil {
			return nil, nil, err
		}
		if len(a.Values) == 0 {
			return nil, nil, fmt.Errorf("optim: axis %s has no values", a.Key)
		}
	}

	var points []map[string]float64
	g.enumerate(0, make(map[string]float64), &points)

	if acc == nil {
		loader := experiment.New(base.Clone())
		if err := loader.Setup(ctx); err != nil {
			return nil, nil, err
		}
		acc = loader.Volume()
	}

	trials := make([]Trial, len(points))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.parallel)
	for i, params := range points {
		eg.Go(func() error {
			trials[i] = runTrial(ctx, base, acc, params, metric)
			if errors.Is(trials[i].Err, relax.ErrCancelled) {
				return trials[i].Err
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, trials, err
	}

	sort.SliceStable(trials, func(a, b int) bool { return trials[a].Score < trials[b].Score })
	if math.IsInf(trials[0].Score, 1) {
		return nil, trials, ErrNoTrials
	}
	return &trials[0], trials, nil
}

func (g *GridSearch) enumerate(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.axes) {
		*out = append(*out, current)
		return
	}

	axis := g.axes[depth]
	for _, val := range axis.Values {
		next := make(map[string]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[axis.Key] = val
		g.enumerate(depth+1, next, out)
	}
}

func runTrial(ctx context.Context, base *config.Config, acc volume.Accessor, params map[string]float64, metric string) Trial {
	trial := Trial{Params: params, State: relax.StateFailed, Score: math.Inf(1)}

	cfg := base.Clone()
	for k, v := range params {
		if err := cfg.Set(k, v); err != nil {
			trial.Err = err
			return trial
		}
	}
	// sweeps run concurrently; keep each trial's force loop serial
	cfg.Workers = 1

	exp := experiment.New(cfg, experiment.WithVolume(acc))
	if err := exp.Setup(ctx); err != nil {
		trial.Err = err
		return trial
	}
	res, err := exp.Run(ctx)
	if res == nil {
		trial.Err = err
		return trial
	}
	trial.State = res.State
	trial.Iterations = res.Iterations
	trial.Err = res.Err
	if res.State == relax.StateFailed {
		return trial
	}
	score, ok := res.Metrics[metric]
	if !ok {
		trial.Err = fmt.Errorf("optim: run has no metric %q", metric)
		return trial
	}
	trial.Score = score
	return trial
}
