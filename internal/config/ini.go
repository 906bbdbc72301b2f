package config

import (
	"fmt"

	"gopkg.in/gcfg.v1"
)

// iniFile is the INI layout of Config. gcfg needs every variable inside a
// section, so the flat YAML keys are grouped here.
//
//	[mesh]
//	seed-x = 112
//	seed-y = 229
//	seed-z = 83
//	radius = 40
//	rings = 22
//	per-ring = 15
//	axial = slice-stack
type iniFile struct {
	Mesh struct {
		SeedX   float64 `gcfg:"seed-x"`
		SeedY   float64 `gcfg:"seed-y"`
		SeedZ   float64 `gcfg:"seed-z"`
		Radius  float64
		Rings   int
		PerRing int `gcfg:"per-ring"`
		Axial   string
		Poles   string
	}
	Forces struct {
		Stiffness      float64
		ExternalWeight float64 `gcfg:"external-weight"`
		Mass           float64
		SpringLaw      string `gcfg:"spring-law"`
		External       string
	}
	Solver struct {
		Integrator           string
		Timestep             float64
		Damping              float64
		Epsilon              float64
		Metric               string
		MaxIterations        int `gcfg:"max-iterations"`
		OutOfBoundsTolerance int `gcfg:"out-of-bounds-tolerance"`
		Workers              int
	}
	Gradient struct {
		Mode      string
		Sigma     float64
		Normalize bool
	}
	Mapper struct {
		FlipY bool `gcfg:"flip-y"`
		FlipZ bool `gcfg:"flip-z"`
	}
	Phantom struct {
		Width, Height, Depth int
		CenterX              float64 `gcfg:"center-x"`
		CenterY              float64 `gcfg:"center-y"`
		CenterZ              float64 `gcfg:"center-z"`
		Radius               float64
		Foreground           float64
		Background           float64
		Noise                float64
		Seed                 int64
	}
}

func loadINI(path string, cfg *Config) (*Config, error) {
	f := toINI(cfg)
	if err := gcfg.ReadFileInto(f, path); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	fromINI(f, cfg)
	return cfg, nil
}

func toINI(c *Config) *iniFile {
	f := &iniFile{}
	seed := c.SeedVec()
	f.Mesh.SeedX, f.Mesh.SeedY, f.Mesh.SeedZ = seed.X, seed.Y, seed.Z
	f.Mesh.Radius = c.Radius
	f.Mesh.Rings = c.RingCount
	f.Mesh.PerRing = c.PointsPerRing
	f.Mesh.Axial = c.AxialMode
	f.Mesh.Poles = c.PolePolicy

	f.Forces.Stiffness = c.Stiffness
	f.Forces.ExternalWeight = c.ExternalWeight
	f.Forces.Mass = c.Mass
	f.Forces.SpringLaw = c.SpringLaw
	f.Forces.External = c.ExternalForce

	f.Solver.Integrator = c.Integrator
	f.Solver.Timestep = c.Timestep
	f.Solver.Damping = c.Damping
	f.Solver.Epsilon = c.ConvergenceEpsilon
	f.Solver.Metric = c.ConvergenceMetric
	f.Solver.MaxIterations = c.MaxIterations
	f.Solver.OutOfBoundsTolerance = c.OutOfBoundsTolerance
	f.Solver.Workers = c.Workers

	f.Gradient.Mode = c.Gradient.Mode
	f.Gradient.Sigma = c.Gradient.Sigma
	f.Gradient.Normalize = c.Gradient.Normalize
	f.Mapper.FlipY = c.Mapper.FlipY
	f.Mapper.FlipZ = c.Mapper.FlipZ

	p := c.PhantomParams()
	f.Phantom.Width, f.Phantom.Height, f.Phantom.Depth = p.Width, p.Height, p.Depth
	f.Phantom.CenterX, f.Phantom.CenterY, f.Phantom.CenterZ = p.Center.X, p.Center.Y, p.Center.Z
	f.Phantom.Radius = p.Radius
	f.Phantom.Foreground = p.Foreground
	f.Phantom.Background = p.Background
	f.Phantom.Noise = p.Noise
	f.Phantom.Seed = p.Seed
	return f
}

func fromINI(f *iniFile, c *Config) {
	c.Seed = []float64{f.Mesh.SeedX, f.Mesh.SeedY, f.Mesh.SeedZ}
	c.Radius = f.Mesh.Radius
	c.RingCount = f.Mesh.Rings
	c.PointsPerRing = f.Mesh.PerRing
	c.AxialMode = f.Mesh.Axial
	c.PolePolicy = f.Mesh.Poles

	c.Stiffness = f.Forces.Stiffness
	c.ExternalWeight = f.Forces.ExternalWeight
	c.Mass = f.Forces.Mass
	c.SpringLaw = f.Forces.SpringLaw
	c.ExternalForce = f.Forces.External

	c.Integrator = f.Solver.Integrator
	c.Timestep = f.Solver.Timestep
	c.Damping = f.Solver.Damping
	c.ConvergenceEpsilon = f.Solver.Epsilon
	c.ConvergenceMetric = f.Solver.Metric
	c.MaxIterations = f.Solver.MaxIterations
	c.OutOfBoundsTolerance = f.Solver.OutOfBoundsTolerance
	c.Workers = f.Solver.Workers

	c.Gradient = GradientConfig{Mode: f.Gradient.Mode, Sigma: f.Gradient.Sigma, Normalize: f.Gradient.Normalize}
	c.Mapper = MapperConfig{FlipY: f.Mapper.FlipY, FlipZ: f.Mapper.FlipZ}

	c.Phantom = PhantomConfig{
		Width:      f.Phantom.Width,
		Height:     f.Phantom.Height,
		Depth:      f.Phantom.Depth,
		Center:     []float64{f.Phantom.CenterX, f.Phantom.CenterY, f.Phantom.CenterZ},
		Radius:     f.Phantom.Radius,
		Foreground: f.Phantom.Foreground,
		Background: f.Phantom.Background,
		Noise:      f.Phantom.Noise,
		Seed:       f.Phantom.Seed,
	}
}
