// Package metrics provides relax.Metric implementations summarising a run.
package metrics

import (
	"github.com/san-kum/msmseg/internal/mesh"
	"github.com/san-kum/msmseg/internal/relax"
)

// KineticEnergy reports the kinetic energy after the last iteration. It
// tends to zero as the mesh settles.
type KineticEnergy struct {
	name  string
	value float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (k *KineticEnergy) Name() string { return k.name }

func (k *KineticEnergy) Observe(stats relax.IterationStats, m *mesh.Mesh) {
	k.value = stats.KineticEnergy
}

func (k *KineticEnergy) Value() float64 { return k.value }

func (k *KineticEnergy) Reset() { k.value = 0 }

// PeakDisplacement is the largest single-point displacement seen in any
// iteration.
type PeakDisplacement struct {
	name string
	peak float64
}

func NewPeakDisplacement() *PeakDisplacement {
	return &PeakDisplacement{name: "peak_displacement"}
}

func (p *PeakDisplacement) Name() string { return p.name }

func (p *PeakDisplacement) Observe(stats relax.IterationStats, m *mesh.Mesh) {
	if stats.MaxDisplacement > p.peak {
		p.peak = stats.MaxDisplacement
	}
}

func (p *PeakDisplacement) Value() float64 { return p.peak }

func (p *PeakDisplacement) Reset() { p.peak = 0 }

// Default returns one of each metric, in report order.
func Default() []relax.Metric {
	return []relax.Metric{
		NewMeanRadius(),
		NewRadiusSpread(),
		NewKineticEnergy(),
		NewPeakDisplacement(),
		NewOutOfBoundsRate(),
	}
}
