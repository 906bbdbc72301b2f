// Package experiment assembles a segmentation run from a configuration:
// volume, coordinate mapper, external field, initial mesh and simulator.
package experiment

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/san-kum/msmseg/internal/config"
	"github.com/san-kum/msmseg/internal/coords"
	"github.com/san-kum/msmseg/internal/forces"
	"github.com/san-kum/msmseg/internal/mesh"
	"github.com/san-kum/msmseg/internal/relax"
	"github.com/san-kum/msmseg/internal/volume"
)

type Experiment struct {
	cfg       *config.Config
	registry  *Registry
	logger    *log.Logger
	volume    volume.Accessor
	mapper    *coords.Mapper
	mesh      *mesh.Mesh
	simulator *relax.Simulator
}

type Option func(*Experiment)

func WithLogger(l *log.Logger) Option {
	return func(e *Experiment) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithVolume segments acc instead of the configured phantom.
func WithVolume(acc volume.Accessor) Option {
	return func(e *Experiment) { e.volume = acc }
}

func New(cfg *config.Config, opts ...Option) *Experiment {
	e := &Experiment{
		cfg:      cfg,
		registry: NewRegistry(),
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Setup validates the configuration and builds everything the run needs.
// The gradient field is computed here, before any iteration.
func (e *Experiment) Setup(ctx context.Context) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	if e.volume == nil {
		e.mapper = coords.New(e.cfg.Phantom.Width, e.cfg.Phantom.Height, e.cfg.Phantom.Depth, e.cfg.MapperOptions()...)
		v, err := volume.NewPhantom(e.cfg.PhantomParams(), e.mapper.VoxelWorld)
		if err != nil {
			return err
		}
		e.volume = v
	} else {
		e.mapper = coords.FromAccessor(e.volume, e.cfg.MapperOptions()...)
	}
	w, h, d := e.volume.Dims()
	e.logger.Debug("volume ready", "width", w, "height", h, "depth", d)

	params, err := e.cfg.MeshParams()
	if err != nil {
		return err
	}
	m, err := mesh.Generate(params)
	if err != nil {
		return err
	}
	e.mesh = m

	opts, err := e.cfg.GradientOptions()
	if err != nil {
		return err
	}
	build, err := e.registry.GetCoupling(e.cfg.ExternalForce)
	if err != nil {
		return err
	}
	ext, err := build(ctx, e.volume, e.mapper, opts)
	if err != nil {
		return fmt.Errorf("building %s field: %w", e.cfg.ExternalForce, err)
	}

	law, err := e.registry.GetSpringLaw(e.cfg.SpringLaw)
	if err != nil {
		return err
	}
	stepper, err := e.registry.GetIntegrator(e.cfg.Integrator)
	if err != nil {
		return err
	}

	eval := forces.NewEvaluator(e.cfg.Stiffness, e.cfg.ExternalWeight, law, ext)
	e.simulator = relax.New(eval, stepper, relax.WithLogger(e.logger))
	for _, mt := range e.registry.DefaultMetrics() {
		e.simulator.AddMetric(mt)
	}
	e.logger.Debug("mesh ready", "points", m.Len(), "max_degree", m.MaxDegree())
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*relax.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	rc, err := e.cfg.RelaxConfig()
	if err != nil {
		return nil, err
	}
	return e.simulator.Run(ctx, e.mesh, rc)
}

// Simulator returns the underlying simulator for adding observers.
func (e *Experiment) Simulator() *relax.Simulator { return e.simulator }

func (e *Experiment) Volume() volume.Accessor { return e.volume }
func (e *Experiment) Mapper() *coords.Mapper  { return e.mapper }

// InitialMesh is the generated sphere before relaxation.
func (e *Experiment) InitialMesh() *mesh.Mesh { return e.mesh }

func (e *Experiment) Config() *config.Config { return e.cfg }
