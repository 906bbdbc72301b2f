package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/san-kum/msmseg/internal/coords"
	"github.com/san-kum/msmseg/internal/forces"
	"github.com/san-kum/msmseg/internal/gradient"
	"github.com/san-kum/msmseg/internal/integrators"
	"github.com/san-kum/msmseg/internal/mesh"
	"github.com/san-kum/msmseg/internal/relax"
	"github.com/san-kum/msmseg/internal/volume"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

const (
	DefaultRadius         = 17.0 // three voxels outside the default phantom, within the edge field's reach
	DefaultRingCount      = 16
	DefaultPointsPerRing  = 24
	DefaultStiffness      = 0.5
	DefaultExternalWeight = 2.0
	DefaultTimestep       = 0.1
	DefaultDamping        = 0.8
	DefaultEpsilon        = 1e-3
	DefaultMaxIterations  = 2000
	DefaultOOBTolerance   = 64
	DefaultSigma          = 1.5
)

type Config struct {
	Seed          []float64 `yaml:"seed,flow"`
	Radius        float64   `yaml:"radius"`
	RingCount     int       `yaml:"ring_count"`
	PointsPerRing int       `yaml:"points_per_ring"`
	AxialMode     string    `yaml:"axial_mode"`
	PolePolicy    string    `yaml:"pole_policy"`

	Stiffness      float64 `yaml:"stiffness"`
	ExternalWeight float64 `yaml:"external_weight"`
	Mass           float64 `yaml:"mass"`
	SpringLaw      string  `yaml:"spring_law"`
	ExternalForce  string  `yaml:"external_force"`

	Integrator           string  `yaml:"integrator"`
	Timestep             float64 `yaml:"timestep"`
	Damping              float64 `yaml:"damping"`
	ConvergenceEpsilon   float64 `yaml:"convergence_epsilon"`
	ConvergenceMetric    string  `yaml:"convergence_metric"`
	MaxIterations        int     `yaml:"max_iterations"`
	OutOfBoundsTolerance int     `yaml:"out_of_bounds_tolerance"`
	Workers              int     `yaml:"workers"`

	Gradient GradientConfig `yaml:"gradient"`
	Mapper   MapperConfig   `yaml:"mapper"`
	Phantom  PhantomConfig  `yaml:"phantom"`
}

type GradientConfig struct {
	Mode      string  `yaml:"mode"`
	Sigma     float64 `yaml:"sigma"`
	Normalize bool    `yaml:"normalize"`
}

type MapperConfig struct {
	FlipY bool `yaml:"flip_y"`
	FlipZ bool `yaml:"flip_z"`
}

// PhantomConfig describes the synthetic volume the CLI segments. Center
// is in world coordinates, like the seed.
type PhantomConfig struct {
	Width      int       `yaml:"width"`
	Height     int       `yaml:"height"`
	Depth      int       `yaml:"depth"`
	Center     []float64 `yaml:"center,flow"`
	Radius     float64   `yaml:"radius"`
	Foreground float64   `yaml:"foreground"`
	Background float64   `yaml:"background"`
	Noise      float64   `yaml:"noise"`
	Seed       int64     `yaml:"seed"`
}

func DefaultConfig() *Config {
	return &Config{
		Seed:                 []float64{48, 48, 48},
		Radius:               DefaultRadius,
		RingCount:            DefaultRingCount,
		PointsPerRing:        DefaultPointsPerRing,
		AxialMode:            "spherical",
		PolePolicy:           "open",
		Stiffness:            DefaultStiffness,
		ExternalWeight:       DefaultExternalWeight,
		Mass:                 1,
		SpringLaw:            "linear",
		ExternalForce:        "edge",
		Integrator:           "semi-implicit-euler",
		Timestep:             DefaultTimestep,
		Damping:              DefaultDamping,
		ConvergenceEpsilon:   DefaultEpsilon,
		ConvergenceMetric:    "max",
		MaxIterations:        DefaultMaxIterations,
		OutOfBoundsTolerance: DefaultOOBTolerance,
		Gradient: GradientConfig{
			Mode:      "volume",
			Sigma:     DefaultSigma,
			Normalize: true,
		},
		Mapper: MapperConfig{FlipY: true, FlipZ: true},
		Phantom: PhantomConfig{
			Width: 96, Height: 96, Depth: 96,
			Center:     []float64{48, 48, 48},
			Radius:     14,
			Foreground: 1,
			Noise:      0.02,
			Seed:       1,
		},
	}
}

// Load reads a YAML file, or an INI file when the extension is .ini or
// .gcfg. Unset keys keep their defaults.
func Load(path string) (*Config, error) {
	return LoadOnto(path, DefaultConfig())
}

// LoadOnto is Load with base, typically a preset, standing in for the
// defaults. base itself is not modified.
func LoadOnto(path string, base *Config) (*Config, error) {
	cfg := base.Clone()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ini", ".gcfg":
		return loadINI(path, cfg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Clone() *Config {
	cp := *c
	cp.Seed = append([]float64(nil), c.Seed...)
	cp.Phantom.Center = append([]float64(nil), c.Phantom.Center...)
	return &cp
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", relax.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks every option range and the names of the pluggable
// parts. A timestep at or above the stability bound of the chosen
// integrator at the configured damping is rejected when springs are
// active.
func (c *Config) Validate() error {
	if len(c.Seed) != 3 || !finite(c.Seed...) {
		return invalid("seed must be three finite coordinates, got %v", c.Seed)
	}
	if !(c.Radius > 0) || math.IsInf(c.Radius, 0) {
		return invalid("radius must be positive, got %g", c.Radius)
	}
	if c.RingCount < 2 {
		return invalid("ring_count must be at least 2, got %d", c.RingCount)
	}
	if c.PointsPerRing < 3 {
		return invalid("points_per_ring must be at least 3, got %d", c.PointsPerRing)
	}
	if !(c.Stiffness >= 0) {
		return invalid("stiffness must be non-negative, got %g", c.Stiffness)
	}
	if !(c.ExternalWeight >= 0) {
		return invalid("external_weight must be non-negative, got %g", c.ExternalWeight)
	}
	if _, err := c.MeshParams(); err != nil {
		return err
	}
	if _, err := c.GradientOptions(); err != nil {
		return err
	}
	rc, err := c.RelaxConfig()
	if err != nil {
		return err
	}
	if err := rc.Validate(); err != nil {
		return err
	}
	if _, err := forces.ParseSpringLaw(c.SpringLaw); err != nil {
		return invalid("%v", err)
	}
	switch c.ExternalForce {
	case "", "edge", "intensity":
	default:
		return invalid("unknown external_force %q", c.ExternalForce)
	}
	stepper, err := integrators.Parse(c.Integrator)
	if err != nil {
		return invalid("%v", err)
	}
	if c.Stiffness > 0 {
		if err := integrators.CheckStable(stepper, c.Timestep, c.Stiffness, c.Mass, c.Damping, c.MaxDegree()); err != nil {
			return invalid("%v", err)
		}
	}
	return c.validatePhantom()
}

func (c *Config) validatePhantom() error {
	p := c.Phantom
	if p.Width <= 0 || p.Height <= 0 || p.Depth <= 0 {
		return invalid("phantom dimensions must be positive, got %dx%dx%d", p.Width, p.Height, p.Depth)
	}
	if len(p.Center) != 3 || !finite(p.Center...) {
		return invalid("phantom center must be three finite coordinates, got %v", p.Center)
	}
	if !(p.Radius > 0) {
		return invalid("phantom radius must be positive, got %g", p.Radius)
	}
	return nil
}

// MaxDegree is the largest number of springs on one point for the
// configured grid and pole policy.
func (c *Config) MaxDegree() int {
	degree := 4
	if c.RingCount == 2 {
		degree = 3
	}
	if c.PolePolicy == "capped" {
		degree = 4
		if c.PointsPerRing > degree {
			degree = c.PointsPerRing
		}
	}
	return degree
}

func (c *Config) SeedVec() r3.Vec {
	if len(c.Seed) != 3 {
		return r3.Vec{}
	}
	return r3.Vec{X: c.Seed[0], Y: c.Seed[1], Z: c.Seed[2]}
}

func (c *Config) MeshParams() (mesh.Params, error) {
	axial, err := mesh.ParseAxialMode(c.AxialMode)
	if err != nil {
		return mesh.Params{}, invalid("%v", err)
	}
	poles, err := mesh.ParsePolePolicy(c.PolePolicy)
	if err != nil {
		return mesh.Params{}, invalid("%v", err)
	}
	return mesh.Params{
		Seed:    c.SeedVec(),
		Radius:  c.Radius,
		Rings:   c.RingCount,
		PerRing: c.PointsPerRing,
		Axial:   axial,
		Poles:   poles,
	}, nil
}

func (c *Config) RelaxConfig() (relax.Config, error) {
	metric, err := relax.ParseConvergenceMetric(c.ConvergenceMetric)
	if err != nil {
		return relax.Config{}, err
	}
	rc := relax.DefaultConfig()
	rc.Timestep = c.Timestep
	rc.Damping = c.Damping
	rc.Mass = c.Mass
	rc.ConvergenceEpsilon = c.ConvergenceEpsilon
	rc.Metric = metric
	rc.MaxIterations = c.MaxIterations
	rc.OutOfBoundsTolerance = c.OutOfBoundsTolerance
	rc.Workers = c.Workers
	return rc, nil
}

func (c *Config) GradientOptions() (gradient.Options, error) {
	mode, err := gradient.ParseMode(c.Gradient.Mode)
	if err != nil {
		return gradient.Options{}, invalid("%v", err)
	}
	if !(c.Gradient.Sigma >= 0) {
		return gradient.Options{}, invalid("gradient sigma must be non-negative, got %g", c.Gradient.Sigma)
	}
	return gradient.Options{
		Mode:      mode,
		Sigma:     c.Gradient.Sigma,
		Normalize: c.Gradient.Normalize,
		Workers:   c.Workers,
	}, nil
}

func (c *Config) MapperOptions() []coords.Option {
	return []coords.Option{coords.WithFlips(c.Mapper.FlipY, c.Mapper.FlipZ)}
}

func (c *Config) PhantomParams() volume.PhantomParams {
	p := c.Phantom
	var center r3.Vec
	if len(p.Center) == 3 {
		center = r3.Vec{X: p.Center[0], Y: p.Center[1], Z: p.Center[2]}
	}
	return volume.PhantomParams{
		Width:      p.Width,
		Height:     p.Height,
		Depth:      p.Depth,
		Center:     center,
		Radius:     p.Radius,
		Foreground: p.Foreground,
		Background: p.Background,
		Noise:      p.Noise,
		Seed:       p.Seed,
	}
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
