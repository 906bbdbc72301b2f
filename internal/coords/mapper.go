// Package coords is the single place where mesh/world coordinates and voxel
// indices are converted into each other.
//
// The scans this tool was built around use two inverted axes relative to
// the voxel grid:
//
//   - world y is measured from the bottom edge of the image while rows are
//     indexed from the top, so row j = Height - y;
//   - world z counts slices in acquisition order while the series is stored
//     newest-first, so slice k = Depth - z.
//
// Both inversions are switchable so that volumes which already share the
// seed convention can use the identity mapping.
package coords

import (
	"fmt"
	"math"

	"github.com/san-kum/msmseg/internal/volume"
	"gonum.org/v1/gonum/spatial/r3"
)

// Index is an integer voxel position.
type Index struct {
	I, J, K int
}

// OutOfBoundsError is returned when a world position maps outside the
// volume extent.
type OutOfBoundsError struct {
	Pos   r3.Vec
	Index Index
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("coords: position (%.2f,%.2f,%.2f) maps to voxel (%d,%d,%d) outside volume",
		e.Pos.X, e.Pos.Y, e.Pos.Z, e.Index.I, e.Index.J, e.Index.K)
}

func (e *OutOfBoundsError) Unwrap() error { return volume.ErrOutOfBounds }

type Mapper struct {
	Width, Height, Depth int
	FlipY, FlipZ         bool
}

type Option func(*Mapper)

// WithFlips overrides the axis inversions. Both default to true.
func WithFlips(flipY, flipZ bool) Option {
	return func(m *Mapper) {
		m.FlipY = flipY
		m.FlipZ = flipZ
	}
}

func New(w, h, d int, opts ...Option) *Mapper {
	m := &Mapper{Width: w, Height: h, Depth: d, FlipY: true, FlipZ: true}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func FromAccessor(acc volume.Accessor, opts ...Option) *Mapper {
	w, h, d := acc.Dims()
	return New(w, h, d, opts...)
}

// ContinuousIndex maps a world position to unrounded index space.
func (m *Mapper) ContinuousIndex(p r3.Vec) r3.Vec {
	ci := p
	if m.FlipY {
		ci.Y = float64(m.Height) - p.Y
	}
	if m.FlipZ {
		ci.Z = float64(m.Depth) - p.Z
	}
	return ci
}

// IndexToWorld is the inverse of ContinuousIndex.
func (m *Mapper) IndexToWorld(ci r3.Vec) r3.Vec {
	// each flip is its own inverse
	return m.ContinuousIndex(ci)
}

// ToVoxel rounds p to the nearest voxel and bounds-checks it.
func (m *Mapper) ToVoxel(p r3.Vec) (Index, error) {
	ci := m.ContinuousIndex(p)
	if math.IsNaN(ci.X) || math.IsNaN(ci.Y) || math.IsNaN(ci.Z) {
		return Index{}, &OutOfBoundsError{Pos: p, Index: Index{-1, -1, -1}}
	}
	idx := Index{I: roundIndex(ci.X), J: roundIndex(ci.Y), K: roundIndex(ci.Z)}
	if !m.InBounds(idx) {
		return idx, &OutOfBoundsError{Pos: p, Index: idx}
	}
	return idx, nil
}

// ToWorld returns the world position of a voxel center.
func (m *Mapper) ToWorld(idx Index) r3.Vec {
	return m.IndexToWorld(r3.Vec{X: float64(idx.I), Y: float64(idx.J), Z: float64(idx.K)})
}

// VoxelWorld adapts ToWorld to volume.WorldFunc.
func (m *Mapper) VoxelWorld(i, j, k int) r3.Vec {
	return m.ToWorld(Index{I: i, J: j, K: k})
}

// DirectionToWorld converts an index-space vector (a gradient, a
// displacement) into world space.
func (m *Mapper) DirectionToWorld(v r3.Vec) r3.Vec {
	if m.FlipY {
		v.Y = -v.Y
	}
	if m.FlipZ {
		v.Z = -v.Z
	}
	return v
}

func (m *Mapper) InBounds(idx Index) bool {
	return idx.I >= 0 && idx.I < m.Width &&
		idx.J >= 0 && idx.J < m.Height &&
		idx.K >= 0 && idx.K < m.Depth
}

// SliceOf returns the slice index a world z coordinate falls on.
func (m *Mapper) SliceOf(z float64) int {
	return roundIndex(m.ContinuousIndex(r3.Vec{Z: z}).Z)
}

func roundIndex(v float64) int {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int(math.Round(v))
}
