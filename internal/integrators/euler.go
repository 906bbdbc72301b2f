// Package integrators advances a single mass point by one timestep given
// the net force acting on it.
package integrators

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Stepper advances one point. damping is the velocity retention factor c
// in [0,1]: 1 keeps all momentum, 0 makes the scheme a gradient descent.
//
// StableLimit is the largest dt^2*lambda/m for which a linear mode of
// stiffness lambda decays under the given damping; 0 means no timestep is
// stable.
type Stepper interface {
	Step(pos, vel, force r3.Vec, dt, damping, mass float64) (r3.Vec, r3.Vec)
	StableLimit(damping float64) float64
}

// Parse returns the stepper registered under name; "" is semi-implicit
// Euler.
func Parse(name string) (Stepper, error) {
	switch name {
	case "", "semi-implicit-euler":
		return NewSemiImplicitEuler(), nil
	case "euler":
		return NewExplicitEuler(), nil
	case "verlet":
		return NewVerlet(), nil
	}
	return nil, fmt.Errorf("integrators: unknown integrator %q", name)
}

// SemiImplicitEuler updates velocity first and moves with the new
// velocity:
//
//	v' = c*v + dt*F/m
//	x' = x + dt*v'
type SemiImplicitEuler struct{}

func NewSemiImplicitEuler() *SemiImplicitEuler {
	return &SemiImplicitEuler{}
}

func (e *SemiImplicitEuler) Step(pos, vel, force r3.Vec, dt, damping, mass float64) (r3.Vec, r3.Vec) {
	v := r3.Add(r3.Scale(damping, vel), r3.Scale(dt/mass, force))
	return r3.Add(pos, r3.Scale(dt, v)), v
}

// ExplicitEuler moves with the old velocity, then updates it.
type ExplicitEuler struct{}

func NewExplicitEuler() *ExplicitEuler {
	return &ExplicitEuler{}
}

func (e *ExplicitEuler) Step(pos, vel, force r3.Vec, dt, damping, mass float64) (r3.Vec, r3.Vec) {
	x := r3.Add(pos, r3.Scale(dt, vel))
	return x, r3.Add(r3.Scale(damping, vel), r3.Scale(dt/mass, force))
}

// StableLimit: the step matrix has trace 1+c-s and determinant c, which
// keeps both roots inside the unit circle while s < 2(1+c).
func (e *SemiImplicitEuler) StableLimit(damping float64) float64 {
	return 2 * (1 + damping)
}

// StableLimit: determinant c+s must stay below 1, so undamped explicit
// Euler grows at any timestep.
func (e *ExplicitEuler) StableLimit(damping float64) float64 {
	return math.Max(0, 1-damping)
}

// StabilityBound is the largest timestep for which st keeps a linear
// spring network bounded. The stiffness matrix eigenvalues satisfy
// lambda <= 2*d*k (Gershgorin, d the maximum vertex degree), so the bound
// is sqrt(limit*m/(2*d*k)); for semi-implicit Euler that is
// sqrt((1+c)*m/(d*k)). Returns +Inf without springs and 0 when no
// timestep is stable.
func StabilityBound(st Stepper, stiffness, mass, damping float64, maxDegree int) float64 {
	if stiffness <= 0 || maxDegree <= 0 {
		return math.Inf(1)
	}
	limit := st.StableLimit(damping)
	if limit <= 0 {
		return 0
	}
	return math.Sqrt(limit * mass / (2 * float64(maxDegree) * stiffness))
}

// CheckStable returns an error when dt is at or above StabilityBound.
func CheckStable(st Stepper, dt, stiffness, mass, damping float64, maxDegree int) error {
	bound := StabilityBound(st, stiffness, mass, damping, maxDegree)
	if bound == 0 {
		return fmt.Errorf("integrators: %T has no stable timestep at damping %g", st, damping)
	}
	if dt >= bound {
		return fmt.Errorf("integrators: timestep %g at or above stability bound %g (k=%g, m=%g, c=%g, degree %d)",
			dt, bound, stiffness, mass, damping, maxDegree)
	}
	return nil
}
