// Package forces evaluates the net force on a mass point: spring pulls
// toward each neighbour's rest separation plus an external force sampled
// from a field co-registered with the volume.
package forces

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// SpringLaw returns the force per unit stiffness exerted on a point by a
// spring whose other end is at offset d. A stretched spring pulls toward
// the neighbour, a compressed one pushes away.
type SpringLaw interface {
	Force(d r3.Vec, rest float64) r3.Vec
}

// Linear is Hooke's law: (|d| - L) along d.
type Linear struct{}

func (Linear) Force(d r3.Vec, rest float64) r3.Vec {
	length := r3.Norm(d)
	if length == 0 {
		return r3.Vec{}
	}
	return r3.Scale((length-rest)/length, d)
}

// Saturating behaves like Linear for small strain but bounds the pull at
// L for large stretch: L*tanh((|d|-L)/L) along d.
type Saturating struct{}

func (Saturating) Force(d r3.Vec, rest float64) r3.Vec {
	length := r3.Norm(d)
	if length == 0 {
		return r3.Vec{}
	}
	if rest <= 0 {
		return Linear{}.Force(d, rest)
	}
	mag := rest * math.Tanh((length-rest)/rest)
	return r3.Scale(mag/length, d)
}

func ParseSpringLaw(s string) (SpringLaw, error) {
	switch s {
	case "", "linear", "hooke":
		return Linear{}, nil
	case "saturating", "tanh":
		return Saturating{}, nil
	}
	return nil, fmt.Errorf("forces: unknown spring law %q", s)
}
