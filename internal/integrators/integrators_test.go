package integrators

import (
	"fmt"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestSemiImplicitEulerStep(t *testing.T) {
	integ := NewSemiImplicitEuler()
	x, v := integ.Step(r3.Vec{X: 1}, r3.Vec{Y: 2}, r3.Vec{Z: 4}, 0.5, 0.8, 2)

	wantV := r3.Vec{Y: 1.6, Z: 1}
	wantX := r3.Vec{X: 1, Y: 0.8, Z: 0.5}
	if x != wantX || v != wantV {
		t.Errorf("got x=%v v=%v, expected x=%v v=%v", x, v, wantX, wantV)
	}
}

func TestExplicitEulerStep(t *testing.T) {
	integ := NewExplicitEuler()
	x, v := integ.Step(r3.Vec{X: 1}, r3.Vec{Y: 2}, r3.Vec{Z: 4}, 0.5, 0.8, 2)

	wantX := r3.Vec{X: 1, Y: 1}
	wantV := r3.Vec{Y: 1.6, Z: 1}
	if x != wantX || v != wantV {
		t.Errorf("got x=%v v=%v, expected x=%v v=%v", x, v, wantX, wantV)
	}
}

func TestVerletConstantForce(t *testing.T) {
	integ := NewVerlet()
	x, v := r3.Vec{}, r3.Vec{}
	dt := 0.1
	for i := 0; i < 10; i++ {
		x, v = integ.Step(x, v, r3.Vec{X: 2}, dt, 1, 1)
	}

	// exact under constant acceleration
	if math.Abs(x.X-1) > 1e-12 {
		t.Errorf("position error: got %.12f, expected 1", x.X)
	}
	if math.Abs(v.X-2) > 1e-12 {
		t.Errorf("velocity error: got %.12f, expected 2", v.X)
	}
}

func TestFreeParticle(t *testing.T) {
	for name, integ := range map[string]Stepper{
		"semi-implicit": NewSemiImplicitEuler(),
		"explicit":      NewExplicitEuler(),
		"verlet":        NewVerlet(),
	} {
		x, v := r3.Vec{}, r3.Vec{X: 1, Y: -1}
		for i := 0; i < 100; i++ {
			x, v = integ.Step(x, v, r3.Vec{}, 0.01, 1, 1)
		}
		if math.Abs(x.X-1) > 1e-9 || math.Abs(x.Y+1) > 1e-9 {
			t.Errorf("%s: got %v, expected (1,-1,0)", name, x)
		}
	}
}

func TestZeroDampingStops(t *testing.T) {
	integ := NewSemiImplicitEuler()
	_, v := integ.Step(r3.Vec{}, r3.Vec{X: 100}, r3.Vec{}, 0.1, 0, 1)
	if v != (r3.Vec{}) {
		t.Errorf("expected velocity to vanish, got %v", v)
	}
}

// oscillate runs a unit-mass point tied to the origin by a spring of
// stiffness lambda and returns the peak excursion over the last half of
// the run.
func oscillate(integ Stepper, lambda, dt, damping float64, steps int) float64 {
	x, v := r3.Vec{X: 1}, r3.Vec{}
	peak := 0.0
	for i := 0; i < steps; i++ {
		x, v = integ.Step(x, v, r3.Scale(-lambda, x), dt, damping, 1)
		if i >= steps/2 {
			peak = math.Max(peak, math.Abs(x.X))
		}
	}
	return peak
}

func TestStabilityBound(t *testing.T) {
	k := 4.0
	bound := StabilityBound(NewSemiImplicitEuler(), k, 1, 1, 1)
	if math.Abs(bound-math.Sqrt(0.5)) > 1e-12 {
		t.Fatalf("expected sqrt(0.5), got %f", bound)
	}

	if peak := oscillate(NewSemiImplicitEuler(), k, 0.95*bound, 1, 10000); peak > 2 {
		t.Errorf("below the bound the oscillator should stay bounded, peak %f", peak)
	}
	// dt*omega > 2 diverges
	if peak := oscillate(NewSemiImplicitEuler(), k, 1.1, 1, 60); peak < 1e6 {
		t.Errorf("far above the bound the oscillator should diverge, peak %f", peak)
	}
}

// A single spring of stiffness 2k on a degree-1 point attains the
// Gershgorin estimate, so the bound is sharp there.
func TestStabilityBoundSharpPerIntegrator(t *testing.T) {
	const k = 1.0
	lambda := 2 * k
	tests := []struct {
		name    string
		integ   Stepper
		damping float64
	}{
		{"semi-implicit undamped momentum", NewSemiImplicitEuler(), 0},
		{"semi-implicit", NewSemiImplicitEuler(), 0.5},
		{"semi-implicit default", NewSemiImplicitEuler(), 0.8},
		{"explicit", NewExplicitEuler(), 0},
		{"explicit damped", NewExplicitEuler(), 0.5},
		{"verlet", NewVerlet(), 0},
		{"verlet damped", NewVerlet(), 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bound := StabilityBound(tt.integ, k, 1, tt.damping, 1)
			if bound <= 0 || math.IsInf(bound, 0) {
				t.Fatalf("expected a finite bound, got %f", bound)
			}
			if peak := oscillate(tt.integ, lambda, 0.95*bound, tt.damping, 4000); peak > 1 {
				t.Errorf("dt=0.95*bound: peak %g, expected decay", peak)
			}
			if peak := oscillate(tt.integ, lambda, 1.1*bound, tt.damping, 4000); peak < 10 {
				t.Errorf("dt=1.1*bound: peak %g, expected growth", peak)
			}
			if err := CheckStable(tt.integ, 0.95*bound, k, 1, tt.damping, 1); err != nil {
				t.Errorf("unexpected error below the bound: %v", err)
			}
			if err := CheckStable(tt.integ, bound, k, 1, tt.damping, 1); err == nil {
				t.Error("expected error at the bound")
			}
		})
	}
}

func TestStabilityBoundZeroDampingIsTighter(t *testing.T) {
	integ := NewSemiImplicitEuler()
	loose := math.Sqrt(2.0 / 4)
	tight := StabilityBound(integ, 1, 1, 0, 4)
	if math.Abs(tight-math.Sqrt(1.0/4)) > 1e-12 {
		t.Fatalf("expected sqrt(m/(d*k)) = 0.5 at c=0, got %f", tight)
	}
	// a degree-4 point pulled by 2*d*k at a step the undamped-momentum
	// bound would accept
	if peak := oscillate(integ, 8, 0.98*loose, 0, 400); peak < 1e6 {
		t.Errorf("dt=%g without momentum should diverge, peak %g", 0.98*loose, peak)
	}
	if err := CheckStable(integ, 0.98*loose, 1, 1, 0, 4); err == nil {
		t.Error("expected CheckStable to reject the step at c=0")
	}
}

func TestStabilityBoundEdges(t *testing.T) {
	semi := NewSemiImplicitEuler()
	if !math.IsInf(StabilityBound(semi, 0, 1, 0.8, 4), 1) {
		t.Error("expected +Inf without stiffness")
	}
	if StabilityBound(semi, 1, 1, 0.8, 8) >= StabilityBound(semi, 1, 1, 0.8, 4) {
		t.Error("higher degree must tighten the bound")
	}
	if StabilityBound(semi, 1, 1, 0.2, 4) >= StabilityBound(semi, 1, 1, 0.8, 4) {
		t.Error("less damping must tighten the semi-implicit bound")
	}
	if err := CheckStable(semi, 0.1, 1, 1, 0.8, 4); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := CheckStable(semi, 1, 1, 1, 0.8, 4); err == nil {
		t.Error("expected error above the bound")
	}

	for _, integ := range []Stepper{NewExplicitEuler(), NewVerlet()} {
		if b := StabilityBound(integ, 1, 1, 1, 4); b != 0 {
			t.Errorf("%T: expected no stable step without damping, got %f", integ, b)
		}
		if err := CheckStable(integ, 1e-6, 1, 1, 1, 4); err == nil {
			t.Errorf("%T: expected error without damping", integ)
		}
	}
}

func TestParse(t *testing.T) {
	for name, want := range map[string]Stepper{
		"":                    NewSemiImplicitEuler(),
		"semi-implicit-euler": NewSemiImplicitEuler(),
		"euler":               NewExplicitEuler(),
		"verlet":              NewVerlet(),
	} {
		got, err := Parse(name)
		if err != nil {
			t.Fatalf("%q: %v", name, err)
		}
		if fmt.Sprintf("%T", got) != fmt.Sprintf("%T", want) {
			t.Errorf("%q: got %T, expected %T", name, got, want)
		}
	}
	if _, err := Parse("rk4"); err == nil {
		t.Error("expected error for unknown integrator")
	}
}
