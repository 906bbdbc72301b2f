package forces

import (
	"github.com/san-kum/msmseg/internal/coords"
	"github.com/san-kum/msmseg/internal/gradient"
	"gonum.org/v1/gonum/spatial/r3"
)

// External samples a world-space force at a world position. Positions
// whose voxel lies outside the volume return a *coords.OutOfBoundsError.
type External interface {
	Sample(p r3.Vec) (r3.Vec, error)
}

// Coupling is an External that differentiates a scalar field at the
// point's continuous voxel position.
type Coupling struct {
	name   string
	field  *gradient.Field
	mapper *coords.Mapper
}

// NewEdgeCoupling follows the ridges of a gradient-magnitude field: the
// force is the derivative of |grad I|, which points at the nearest edge.
func NewEdgeCoupling(magnitude *gradient.Field, mapper *coords.Mapper) *Coupling {
	return &Coupling{name: "edge", field: magnitude, mapper: mapper}
}

// NewIntensityCoupling pushes points up the intensity gradient of the
// (optionally smoothed) volume itself.
func NewIntensityCoupling(intensity *gradient.Field, mapper *coords.Mapper) *Coupling {
	return &Coupling{name: "intensity", field: intensity, mapper: mapper}
}

func (c *Coupling) Name() string { return c.name }

func (c *Coupling) Sample(p r3.Vec) (r3.Vec, error) {
	if _, err := c.mapper.ToVoxel(p); err != nil {
		return r3.Vec{}, err
	}
	g := c.field.Derivative(c.mapper.ContinuousIndex(p))
	return c.mapper.DirectionToWorld(g), nil
}
