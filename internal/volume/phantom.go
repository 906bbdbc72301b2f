package volume

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"
)

// PhantomParams describes a synthetic spherical nodule on a flat background.
type PhantomParams struct {
	Width, Height, Depth int
	Center               r3.Vec
	Radius               float64
	Foreground           float64
	Background           float64
	Noise                float64
	Seed                 int64
}

// WorldFunc maps a voxel index to the world position of its center.
type WorldFunc func(i, j, k int) r3.Vec

func identityWorld(i, j, k int) r3.Vec {
	return r3.Vec{X: float64(i), Y: float64(j), Z: float64(k)}
}

// NewPhantom fills a volume with a sphere of Foreground intensity around
// Center. Distances are measured in world space through world, so the
// phantom follows the same axis conventions as the mesh. A nil world uses
// voxel indices directly.
func NewPhantom(p PhantomParams, world WorldFunc) (*Dense, error) {
	if p.Radius <= 0 {
		return nil, fmt.Errorf("phantom: radius must be positive, got %f", p.Radius)
	}
	v, err := New(p.Width, p.Height, p.Depth)
	if err != nil {
		return nil, err
	}
	if world == nil {
		world = identityWorld
	}

	var rng *rand.Rand
	if p.Noise > 0 {
		rng = rand.New(rand.NewSource(p.Seed))
	}

	for k := 0; k < p.Depth; k++ {
		for j := 0; j < p.Height; j++ {
			for i := 0; i < p.Width; i++ {
				val := p.Background
				if r3.Norm(r3.Sub(world(i, j, k), p.Center)) <= p.Radius {
					val = p.Foreground
				}
				if rng != nil {
					val += p.Noise * rng.NormFloat64()
				}
				if math.IsNaN(val) {
					val = 0
				}
				v.Set(i, j, k, val)
			}
		}
	}
	return v, nil
}
