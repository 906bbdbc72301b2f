package metrics

import (
	"github.com/san-kum/msmseg/internal/mesh"
	"github.com/san-kum/msmseg/internal/relax"
)

// OutOfBoundsRate is the fraction of point evaluations whose external
// sample fell outside the volume.
type OutOfBoundsRate struct {
	name    string
	hits    int
	samples int
}

func NewOutOfBoundsRate() *OutOfBoundsRate {
	return &OutOfBoundsRate{name: "out_of_bounds_rate"}
}

func (o *OutOfBoundsRate) Name() string {
	return o.name
}

func (o *OutOfBoundsRate) Observe(stats relax.IterationStats, m *mesh.Mesh) {
	o.hits += stats.OutOfBounds
	o.samples += m.Len()
}

func (o *OutOfBoundsRate) Value() float64 {
	if o.samples == 0 {
		return 0
	}
	return float64(o.hits) / float64(o.samples)
}

func (o *OutOfBoundsRate) Reset() {
	o.hits = 0
	o.samples = 0
}
