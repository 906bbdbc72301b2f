package integrators

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Verlet is velocity Verlet with the force held constant across the step,
// which is what a synchronous update can offer without a second force
// evaluation. Damping is applied to the outgoing velocity.
type Verlet struct{}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) Step(pos, vel, force r3.Vec, dt, damping, mass float64) (r3.Vec, r3.Vec) {
	acc := r3.Scale(1/mass, force)
	x := r3.Add(pos, r3.Add(r3.Scale(dt, vel), r3.Scale(0.5*dt*dt, acc)))
	return x, r3.Scale(damping, r3.Add(vel, r3.Scale(dt, acc)))
}

// StableLimit: the step matrix has trace 1+c-s/2 and determinant
// c(1+s/2). Without damping the determinant exceeds 1 for any s > 0.
func (v *Verlet) StableLimit(damping float64) float64 {
	switch {
	case damping <= 0:
		return 4
	case damping >= 1:
		return 0
	}
	return math.Min(2*(1-damping)/damping, 4*(1+damping)/(1-damping))
}
