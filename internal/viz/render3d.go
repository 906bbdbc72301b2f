package viz

import (
	"math"

	"github.com/san-kum/msmseg/internal/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Camera is an orthographic view of a mesh. The zero rotation looks down
// the z axis with world x to the right and world y up.
type Camera struct {
	RotX, RotY, RotZ float64
	Zoom             float64
}

func NewCamera() *Camera {
	return &Camera{Zoom: 1.0}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) RotateZ(a float64) { c.RotZ += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }
func (c *Camera) Reset()            { *c = Camera{Zoom: 1.0} }

// RotatePoint rotates p about the origin by the camera angles, x first.
func (c *Camera) RotatePoint(p r3.Vec) r3.Vec {
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	p.Y, p.Z = p.Y*cx-p.Z*sx, p.Y*sx+p.Z*cx
	cy, sy := math.Cos(c.RotY), math.Sin(c.RotY)
	p.X, p.Z = p.X*cy+p.Z*sy, -p.X*sy+p.Z*cy
	cz, sz := math.Cos(c.RotZ), math.Sin(c.RotZ)
	p.X, p.Y = p.X*cz-p.Y*sz, p.X*sz+p.Y*cz
	return p
}

// Project maps p, relative to the view center, onto a sw x sh sub-pixel
// screen where extent world units span half the shorter side.
func (c *Camera) Project(p r3.Vec, extent float64, sw, sh int) (int, int, bool) {
	if extent <= 0 {
		extent = 1
	}
	rot := c.RotatePoint(p)
	half := float64(min(sw, sh)) / 2 * 0.9
	scale := half / extent * c.Zoom
	sx := int(math.Round(rot.X*scale)) + sw/2
	sy := int(math.Round(-rot.Y*scale)) + sh/2
	return sx, sy, sx >= 0 && sx < sw && sy >= 0 && sy < sh
}

// Depth is the distance of p toward the viewer after rotation.
func (c *Camera) Depth(p r3.Vec) float64 { return c.RotatePoint(p).Z }

// backDash thins springs lying behind the centroid so the near side of the
// surface reads in front.
const backDash = 3

// RenderMesh draws every spring of m onto c as seen by cam, centered on
// the mesh centroid. Springs with both ends behind the centroid are
// dotted, and points listed in outOfBounds are marked with
// MarkOutOfBounds.
func RenderMesh(c *Canvas, m *mesh.Mesh, cam *Camera, outOfBounds map[int]int) {
	if c == nil || m == nil || cam == nil || len(m.Points) == 0 {
		return
	}
	center := m.Centroid()
	extent := 0.0
	for _, p := range m.Points {
		extent = math.Max(extent, r3.Norm(r3.Sub(p.Pos, center)))
	}

	sw, sh := c.Size()
	screen := make([][2]int, len(m.Points))
	behind := make([]bool, len(m.Points))
	for i, p := range m.Points {
		rel := r3.Sub(p.Pos, center)
		x, y, _ := cam.Project(rel, extent, sw, sh)
		screen[i] = [2]int{x, y}
		behind[i] = cam.Depth(rel) < 0
	}
	for _, e := range m.Edges() {
		a, b := screen[e.A], screen[e.B]
		dash := 1
		if behind[e.A] && behind[e.B] {
			dash = backDash
		}
		c.DrawLine(a[0], a[1], b[0], b[1], dash)
	}
	for i, s := range screen {
		c.Set(s[0], s[1])
		if outOfBounds[i] > 0 {
			c.Mark(s[0], s[1], MarkOutOfBounds)
		}
	}
}
