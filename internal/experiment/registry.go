package experiment

import (
	"context"
	"fmt"
	"sort"

	"github.com/san-kum/msmseg/internal/coords"
	"github.com/san-kum/msmseg/internal/forces"
	"github.com/san-kum/msmseg/internal/gradient"
	"github.com/san-kum/msmseg/internal/integrators"
	"github.com/san-kum/msmseg/internal/metrics"
	"github.com/san-kum/msmseg/internal/relax"
	"github.com/san-kum/msmseg/internal/volume"
)

// CouplingFactory builds an external force for a volume. The field it
// derives is computed once here and only read afterwards.
type CouplingFactory func(ctx context.Context, acc volume.Accessor, mapper *coords.Mapper, opts gradient.Options) (forces.External, error)

type Registry struct {
	integrators map[string]func() integrators.Stepper
	springLaws  map[string]func() forces.SpringLaw
	couplings   map[string]CouplingFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func() integrators.Stepper),
		springLaws:  make(map[string]func() forces.SpringLaw),
		couplings:   make(map[string]CouplingFactory),
	}

	r.integrators["semi-implicit-euler"] = func() integrators.Stepper { return integrators.NewSemiImplicitEuler() }
	r.integrators["euler"] = func() integrators.Stepper { return integrators.NewExplicitEuler() }
	r.integrators["verlet"] = func() integrators.Stepper { return integrators.NewVerlet() }

	r.springLaws["linear"] = func() forces.SpringLaw { return forces.Linear{} }
	r.springLaws["saturating"] = func() forces.SpringLaw { return forces.Saturating{} }

	r.couplings["edge"] = func(ctx context.Context, acc volume.Accessor, mapper *coords.Mapper, opts gradient.Options) (forces.External, error) {
		f, err := gradient.Build(ctx, acc, opts)
		if err != nil {
			return nil, err
		}
		return forces.NewEdgeCoupling(f, mapper), nil
	}
	r.couplings["intensity"] = func(ctx context.Context, acc volume.Accessor, mapper *coords.Mapper, opts gradient.Options) (forces.External, error) {
		f, err := gradient.Intensity(ctx, acc, opts.Sigma, opts.Workers)
		if err != nil {
			return nil, err
		}
		return forces.NewIntensityCoupling(f, mapper), nil
	}

	return r
}

func (r *Registry) GetIntegrator(name string) (integrators.Stepper, error) {
	if name == "" {
		name = "semi-implicit-euler"
	}
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetSpringLaw(name string) (forces.SpringLaw, error) {
	switch name {
	case "":
		name = "linear"
	case "hooke":
		name = "linear"
	case "tanh":
		name = "saturating"
	}
	fn, ok := r.springLaws[name]
	if !ok {
		return nil, fmt.Errorf("unknown spring law: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetCoupling(name string) (CouplingFactory, error) {
	if name == "" {
		name = "edge"
	}
	fn, ok := r.couplings[name]
	if !ok {
		return nil, fmt.Errorf("unknown external force: %s", name)
	}
	return fn, nil
}

func (r *Registry) ListIntegrators() []string { return sortedKeys(r.integrators) }
func (r *Registry) ListSpringLaws() []string  { return sortedKeys(r.springLaws) }
func (r *Registry) ListCouplings() []string   { return sortedKeys(r.couplings) }

func (r *Registry) DefaultMetrics() []relax.Metric {
	return metrics.Default()
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
