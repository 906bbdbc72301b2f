package gradient

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/msmseg/internal/parallel"
	"github.com/san-kum/msmseg/internal/volume"
	"gonum.org/v1/gonum/floats"
)

// Mode selects whether derivatives are taken in 3D or per axial slice.
type Mode int

const (
	ModeVolume Mode = iota
	ModeSlice
)

func (m Mode) String() string {
	switch m {
	case ModeSlice:
		return "slice"
	default:
		return "volume"
	}
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "volume":
		return ModeVolume, nil
	case "slice":
		return ModeSlice, nil
	}
	return ModeVolume, fmt.Errorf("gradient: unknown mode %q", s)
}

type Options struct {
	Mode Mode
	// Sigma is the Gaussian pre-smoothing width in voxels; 0 disables it.
	Sigma float64
	// Normalize rescales the result so that its maximum is 1.
	Normalize bool
	Workers   int
}

// Build computes the gradient-magnitude field of acc. The input is read
// only; all intermediate buffers are private to the call.
func Build(ctx context.Context, acc volume.Accessor, opts Options) (*Field, error) {
	src, err := volume.Densify(acc)
	if err != nil {
		return nil, err
	}
	if opts.Sigma < 0 {
		return nil, fmt.Errorf("gradient: sigma must be non-negative, got %f", opts.Sigma)
	}

	w, h, d := src.Dims()
	work := make([]float64, len(src.Data))
	copy(work, src.Data)

	if opts.Sigma > 0 {
		if err := smooth(ctx, work, w, h, d, opts.Sigma, opts.Mode == ModeVolume, opts.Workers); err != nil {
			return nil, err
		}
	}

	out := make([]float64, len(work))
	plane := w * h
	at := func(i, j, k int) float64 {
		return work[clampInt(k, d-1)*plane+clampInt(j, h-1)*w+clampInt(i, w-1)]
	}

	err = parallel.For(ctx, d, 1, opts.Workers, func(start, end int) error {
		for k := start; k < end; k++ {
			for j := 0; j < h; j++ {
				for i := 0; i < w; i++ {
					gx := (at(i+1, j, k) - at(i-1, j, k)) / 2
					gy := (at(i, j+1, k) - at(i, j-1, k)) / 2
					gz := 0.0
					if opts.Mode == ModeVolume {
						gz = (at(i, j, k+1) - at(i, j, k-1)) / 2
					}
					out[k*plane+j*w+i] = math.Sqrt(gx*gx + gy*gy + gz*gz)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	f := newField(w, h, d, out)
	if opts.Normalize && f.max > 0 {
		floats.Scale(1/f.max, f.data)
		f.max = 1
	}
	return f, nil
}

// Intensity wraps the raw volume, optionally smoothed, as a Field so the
// intensity coupling can reuse the sampling code.
func Intensity(ctx context.Context, acc volume.Accessor, sigma float64, workers int) (*Field, error) {
	src, err := volume.Densify(acc)
	if err != nil {
		return nil, err
	}
	w, h, d := src.Dims()
	data := make([]float64, len(src.Data))
	copy(data, src.Data)
	if sigma > 0 {
		if err := smooth(ctx, data, w, h, d, sigma, true, workers); err != nil {
			return nil, err
		}
	}
	return newField(w, h, d, data), nil
}

func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(3 * sigma))
	k := make([]float64, 2*radius+1)
	for i := range k {
		x := float64(i - radius)
		k[i] = math.Exp(-x * x / (2 * sigma * sigma))
	}
	floats.Scale(1/floats.Sum(k), k)
	return k
}

// smooth applies a separable Gaussian in place along x, y and optionally z.
func smooth(ctx context.Context, data []float64, w, h, d int, sigma float64, alongZ bool, workers int) error {
	kernel := gaussianKernel(sigma)
	plane := w * h

	// x and y passes are independent per slice
	err := parallel.For(ctx, d, 1, workers, func(start, end int) error {
		line := newLineBuffer(maxInt(w, h), len(kernel))
		for k := start; k < end; k++ {
			base := k * plane
			for j := 0; j < h; j++ {
				line.convolve(kernel, w, func(i int) *float64 { return &data[base+j*w+i] })
			}
			for i := 0; i < w; i++ {
				line.convolve(kernel, h, func(j int) *float64 { return &data[base+j*w+i] })
			}
		}
		return nil
	})
	if err != nil || !alongZ || d < 2 {
		return err
	}

	return parallel.For(ctx, h, 1, workers, func(start, end int) error {
		line := newLineBuffer(d, len(kernel))
		for j := start; j < end; j++ {
			for i := 0; i < w; i++ {
				line.convolve(kernel, d, func(k int) *float64 { return &data[k*plane+j*w+i] })
			}
		}
		return nil
	})
}

type lineBuffer struct {
	padded []float64
	result []float64
}

func newLineBuffer(n, kernelLen int) *lineBuffer {
	return &lineBuffer{
		padded: make([]float64, n+kernelLen-1),
		result: make([]float64, n),
	}
}

// convolve filters one line of n samples addressed through cell, padding
// the ends by clamping.
func (b *lineBuffer) convolve(kernel []float64, n int, cell func(int) *float64) {
	radius := len(kernel) / 2
	padded := b.padded[:n+2*radius]
	for p := range padded {
		padded[p] = *cell(clampInt(p-radius, n-1))
	}
	for x := 0; x < n; x++ {
		b.result[x] = floats.Dot(kernel, padded[x:x+len(kernel)])
	}
	for x := 0; x < n; x++ {
		*cell(x) = b.result[x]
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
