package integrators

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func benchStepper(b *testing.B, integ Stepper) {
	x, v := r3.Vec{X: 1}, r3.Vec{}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x, v = integ.Step(x, v, r3.Scale(-1, x), 0.01, 0.9, 1)
	}
}

func BenchmarkSemiImplicitEuler(b *testing.B) { benchStepper(b, NewSemiImplicitEuler()) }
func BenchmarkExplicitEuler(b *testing.B)     { benchStepper(b, NewExplicitEuler()) }
func BenchmarkVerlet(b *testing.B)            { benchStepper(b, NewVerlet()) }
