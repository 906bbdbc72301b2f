package metrics

import (
	"github.com/san-kum/msmseg/internal/mesh"
	"github.com/san-kum/msmseg/internal/relax"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

func radii(m *mesh.Mesh, buf []float64) []float64 {
	buf = buf[:0]
	for _, p := range m.Points {
		buf = append(buf, r3.Norm(r3.Sub(p.Pos, m.Seed)))
	}
	return buf
}

// MeanRadius is the mean distance of the points from the seed after the
// last iteration, the size estimate of the delineated object.
type MeanRadius struct {
	name  string
	buf   []float64
	value float64
}

func NewMeanRadius() *MeanRadius {
	return &MeanRadius{name: "mean_radius"}
}

func (r *MeanRadius) Name() string { return r.name }

func (r *MeanRadius) Observe(stats relax.IterationStats, m *mesh.Mesh) {
	r.buf = radii(m, r.buf)
	r.value = stat.Mean(r.buf, nil)
}

func (r *MeanRadius) Value() float64 { return r.value }

func (r *MeanRadius) Reset() { r.value = 0 }

// RadiusSpread is the standard deviation of the point distances from the
// seed; zero for a perfect sphere.
type RadiusSpread struct {
	name  string
	buf   []float64
	value float64
}

func NewRadiusSpread() *RadiusSpread {
	return &RadiusSpread{name: "radius_spread"}
}

func (r *RadiusSpread) Name() string { return r.name }

func (r *RadiusSpread) Observe(stats relax.IterationStats, m *mesh.Mesh) {
	r.buf = radii(m, r.buf)
	if len(r.buf) < 2 {
		r.value = 0
		return
	}
	r.value = stat.StdDev(r.buf, nil)
}

func (r *RadiusSpread) Value() float64 { return r.value }

func (r *RadiusSpread) Reset() { r.value = 0 }
