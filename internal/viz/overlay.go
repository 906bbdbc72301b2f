package viz

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/san-kum/msmseg/internal/coords"
	"github.com/san-kum/msmseg/internal/mesh"
	"github.com/san-kum/msmseg/internal/volume"
)

const (
	// slice intensities are scaled into [0, backgroundCeiling] so stamped
	// pixels at full white stay distinguishable
	backgroundCeiling = 0xBFFF
	stampValue        = 0xFFFF
)

// Overlay renders axial slice k of acc as a 16-bit grey image and stamps
// at full white the seed and every mesh point whose nearest voxel lies on
// that slice. Pixel (x, y) is voxel (i=x, j=y, k). Points off the slice or
// outside the volume are skipped.
func Overlay(acc volume.Accessor, mapper *coords.Mapper, m *mesh.Mesh, k int) (*image.Gray16, error) {
	plane, err := volume.Slice(acc, k)
	if err != nil {
		return nil, fmt.Errorf("viz: overlay: %w", err)
	}

	img := image.NewGray16(image.Rect(0, 0, plane.Width, plane.Height))
	lo, hi := plane.Range()
	span := hi - lo
	for j := 0; j < plane.Height; j++ {
		for i := 0; i < plane.Width; i++ {
			v := 0.0
			if span > 0 {
				v = (plane.At(i, j) - lo) / span
			}
			img.SetGray16(i, j, color.Gray16{Y: uint16(v * backgroundCeiling)})
		}
	}

	if m == nil {
		return img, nil
	}
	stamp := func(idx coords.Index) {
		if idx.K == k {
			img.SetGray16(idx.I, idx.J, color.Gray16{Y: stampValue})
		}
	}
	if idx, err := mapper.ToVoxel(m.Seed); err == nil {
		stamp(idx)
	}
	for _, p := range m.Points {
		idx, err := mapper.ToVoxel(p.Pos)
		if err != nil {
			continue
		}
		stamp(idx)
	}
	return img, nil
}

// Stamped counts the pixels of img at full white.
func Stamped(img *image.Gray16) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.Gray16At(x, y).Y == stampValue {
				n++
			}
		}
	}
	return n
}

func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
