package volume

import "fmt"

// Plane is one axial slice of a volume, row-major.
type Plane struct {
	Width  int
	Height int
	Data   []float64
}

func (p *Plane) At(i, j int) float64 { return p.Data[j*p.Width+i] }

// Range returns the minimum and maximum value on the plane.
func (p *Plane) Range() (lo, hi float64) {
	if len(p.Data) == 0 {
		return 0, 0
	}
	lo, hi = p.Data[0], p.Data[0]
	for _, v := range p.Data {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Slice extracts axial slice k as a copy.
func Slice(acc Accessor, k int) (*Plane, error) {
	w, h, d := acc.Dims()
	if k < 0 || k >= d {
		return nil, fmt.Errorf("slice %d of %d: %w", k, d, ErrOutOfBounds)
	}
	p := &Plane{Width: w, Height: h, Data: make([]float64, w*h)}
	if dense, ok := acc.(*Dense); ok {
		copy(p.Data, dense.Data[k*w*h:(k+1)*w*h])
		return p, nil
	}
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			v, err := acc.Voxel(i, j, k)
			if err != nil {
				return nil, err
			}
			p.Data[j*w+i] = v
		}
	}
	return p, nil
}
