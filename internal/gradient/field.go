// Package gradient builds the scalar gradient-magnitude field that acts as
// the external-force potential, and samples it at continuous positions.
package gradient

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Field is a dense scalar field co-registered with a volume. It is never
// mutated after construction, so concurrent readers need no locking.
type Field struct {
	width, height, depth int
	data                 []float64
	max                  float64
}

func newField(w, h, d int, data []float64) *Field {
	f := &Field{width: w, height: h, depth: d, data: data}
	for _, v := range data {
		if v > f.max {
			f.max = v
		}
	}
	return f
}

func (f *Field) Dims() (int, int, int) { return f.width, f.height, f.depth }

func (f *Field) Max() float64 { return f.max }

// At returns the value at a voxel, clamping the index into range.
func (f *Field) At(i, j, k int) float64 {
	i = clampInt(i, f.width-1)
	j = clampInt(j, f.height-1)
	k = clampInt(k, f.depth-1)
	return f.data[k*f.width*f.height+j*f.width+i]
}

// Sample interpolates trilinearly at a continuous index-space position.
// Positions outside the grid are clamped to the nearest border value.
func (f *Field) Sample(ci r3.Vec) float64 {
	x := clampFloat(ci.X, f.width-1)
	y := clampFloat(ci.Y, f.height-1)
	z := clampFloat(ci.Z, f.depth-1)

	i0, j0, k0 := int(x), int(y), int(z)
	i1, j1, k1 := minInt(i0+1, f.width-1), minInt(j0+1, f.height-1), minInt(k0+1, f.depth-1)
	tx, ty, tz := x-float64(i0), y-float64(j0), z-float64(k0)

	c00 := lerp(f.At(i0, j0, k0), f.At(i1, j0, k0), tx)
	c10 := lerp(f.At(i0, j1, k0), f.At(i1, j1, k0), tx)
	c01 := lerp(f.At(i0, j0, k1), f.At(i1, j0, k1), tx)
	c11 := lerp(f.At(i0, j1, k1), f.At(i1, j1, k1), tx)

	c0 := lerp(c00, c10, ty)
	c1 := lerp(c01, c11, ty)
	return lerp(c0, c1, tz)
}

// Derivative estimates the spatial gradient of the field at ci by central
// differences of the interpolated field, one voxel either side.
func (f *Field) Derivative(ci r3.Vec) r3.Vec {
	dx := f.Sample(r3.Vec{X: ci.X + 1, Y: ci.Y, Z: ci.Z}) - f.Sample(r3.Vec{X: ci.X - 1, Y: ci.Y, Z: ci.Z})
	dy := f.Sample(r3.Vec{X: ci.X, Y: ci.Y + 1, Z: ci.Z}) - f.Sample(r3.Vec{X: ci.X, Y: ci.Y - 1, Z: ci.Z})
	dz := f.Sample(r3.Vec{X: ci.X, Y: ci.Y, Z: ci.Z + 1}) - f.Sample(r3.Vec{X: ci.X, Y: ci.Y, Z: ci.Z - 1})
	return r3.Vec{X: dx / 2, Y: dy / 2, Z: dz / 2}
}

// Plane copies axial slice k out of the field, row-major.
func (f *Field) Plane(k int) []float64 {
	k = clampInt(k, f.depth-1)
	n := f.width * f.height
	out := make([]float64, n)
	copy(out, f.data[k*n:(k+1)*n])
	return out
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func clampInt(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v float64, hi int) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > float64(hi) {
		return float64(hi)
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
