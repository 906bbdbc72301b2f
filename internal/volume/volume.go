// Package volume provides the read-only voxel access the segmentation core
// depends on.
//
// Loading a scan from disk is not handled here; callers build a [Dense]
// volume from whatever slices they already decoded, or synthesize one with
// [NewPhantom]. Every accessor is bounds-checked and side-effect free, so a
// volume can be shared by concurrent readers once it is built.
package volume

import (
	"errors"
	"fmt"
)

// ErrOutOfBounds is returned for any index outside the volume extent.
var ErrOutOfBounds = errors.New("volume: index out of bounds")

// Accessor is the collaborator interface the core reads intensities through.
type Accessor interface {
	Voxel(i, j, k int) (float64, error)
	SliceCount() int
	Dims() (w, h, d int)
}

// IndexError reports the offending index of an out-of-bounds lookup.
type IndexError struct {
	I, J, K int
	W, H, D int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("volume: index (%d,%d,%d) outside %dx%dx%d", e.I, e.J, e.K, e.W, e.H, e.D)
}

func (e *IndexError) Unwrap() error { return ErrOutOfBounds }

// Dense is an in-memory volume stored slice-major: k*w*h + j*w + i.
type Dense struct {
	Width  int
	Height int
	Depth  int
	Data   []float64
}

func New(w, h, d int) (*Dense, error) {
	if w <= 0 || h <= 0 || d <= 0 {
		return nil, fmt.Errorf("volume: invalid dimensions %dx%dx%d", w, h, d)
	}
	return &Dense{Width: w, Height: h, Depth: d, Data: make([]float64, w*h*d)}, nil
}

// FromSlices stacks row-major 2D slices of size w*h into a volume.
func FromSlices(slices [][]float64, w, h int) (*Dense, error) {
	v, err := New(w, h, len(slices))
	if err != nil {
		return nil, err
	}
	for k, s := range slices {
		if len(s) != w*h {
			return nil, fmt.Errorf("volume: slice %d has %d values, want %d", k, len(s), w*h)
		}
		copy(v.Data[k*w*h:(k+1)*w*h], s)
	}
	return v, nil
}

func (v *Dense) Dims() (int, int, int) { return v.Width, v.Height, v.Depth }
func (v *Dense) SliceCount() int       { return v.Depth }

func (v *Dense) InBounds(i, j, k int) bool {
	return i >= 0 && i < v.Width && j >= 0 && j < v.Height && k >= 0 && k < v.Depth
}

func (v *Dense) Voxel(i, j, k int) (float64, error) {
	if !v.InBounds(i, j, k) {
		return 0, &IndexError{I: i, J: j, K: k, W: v.Width, H: v.Height, D: v.Depth}
	}
	return v.Data[v.offset(i, j, k)], nil
}

// At is the unchecked lookup used by builders that already clamp.
func (v *Dense) At(i, j, k int) float64 { return v.Data[v.offset(i, j, k)] }

func (v *Dense) Set(i, j, k int, val float64) { v.Data[v.offset(i, j, k)] = val }

func (v *Dense) offset(i, j, k int) int { return k*v.Width*v.Height + j*v.Width + i }

// Clone returns a deep copy.
func (v *Dense) Clone() *Dense {
	c := &Dense{Width: v.Width, Height: v.Height, Depth: v.Depth, Data: make([]float64, len(v.Data))}
	copy(c.Data, v.Data)
	return c
}

// Densify copies any accessor into a Dense volume.
func Densify(acc Accessor) (*Dense, error) {
	if d, ok := acc.(*Dense); ok {
		return d, nil
	}
	w, h, d := acc.Dims()
	out, err := New(w, h, d)
	if err != nil {
		return nil, err
	}
	for k := 0; k < d; k++ {
		for j := 0; j < h; j++ {
			for i := 0; i < w; i++ {
				val, err := acc.Voxel(i, j, k)
				if err != nil {
					return nil, err
				}
				out.Set(i, j, k, val)
			}
		}
	}
	return out, nil
}
