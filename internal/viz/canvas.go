package viz

import "strings"

const (
	brailleBlank = 0x2800

	// MarkOutOfBounds replaces the cell of a point whose force sample fell
	// outside the volume.
	MarkOutOfBounds = '×'
)

// dotBits maps a sub-pixel inside a 2x4 Braille cell to its dot bit:
//
//	1 4
//	2 5
//	3 6
//	7 8
var dotBits = [4][2]uint8{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// Canvas is a Width x Height grid of Braille cells addressed in sub-pixels
// (2 per cell across, 4 down). A cell may carry a mark glyph that is drawn
// instead of its dots.
type Canvas struct {
	Width, Height int
	dots          []uint8
	marks         []rune
}

func NewCanvas(w, h int) *Canvas {
	w, h = max(w, 0), max(h, 0)
	return &Canvas{
		Width:  w,
		Height: h,
		dots:   make([]uint8, w*h),
		marks:  make([]rune, w*h),
	}
}

// Size is the canvas extent in sub-pixels.
func (c *Canvas) Size() (int, int) { return c.Width * 2, c.Height * 4 }

// cell returns the cell index and dot bit of sub-pixel (x, y), or ok=false
// off the canvas.
func (c *Canvas) cell(x, y int) (idx int, bit uint8, ok bool) {
	if x < 0 || y < 0 {
		return 0, 0, false
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return 0, 0, false
	}
	return row*c.Width + col, dotBits[y%4][x%2], true
}

// Set lights sub-pixel (x, y); off-canvas coordinates are ignored.
func (c *Canvas) Set(x, y int) {
	if i, bit, ok := c.cell(x, y); ok {
		c.dots[i] |= bit
	}
}

// Lit reports whether sub-pixel (x, y) is set.
func (c *Canvas) Lit(x, y int) bool {
	i, bit, ok := c.cell(x, y)
	return ok && c.dots[i]&bit != 0
}

// Mark draws glyph in place of the cell holding sub-pixel (x, y).
func (c *Canvas) Mark(x, y int, glyph rune) {
	if i, _, ok := c.cell(x, y); ok {
		c.marks[i] = glyph
	}
}

// Marked counts the cells carrying glyph.
func (c *Canvas) Marked(glyph rune) int {
	n := 0
	for _, g := range c.marks {
		if g == glyph {
			n++
		}
	}
	return n
}

func (c *Canvas) Clear() {
	clear(c.dots)
	clear(c.marks)
}

// DrawLine walks the Bresenham line from (x0, y0) to (x1, y1) and lights
// every dash-th sub-pixel, both ends included; dash <= 1 draws it solid.
func (c *Canvas) DrawLine(x0, y0, x1, y1, dash int) {
	dx, dy := absInt(x1-x0), -absInt(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy

	for step := 0; ; step++ {
		last := x0 == x1 && y0 == y1
		if dash <= 1 || step%dash == 0 || last {
			c.Set(x0, y0)
		}
		if last {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	b.Grow(c.Height * (c.Width*3 + 1))
	for row := 0; row < c.Height; row++ {
		for col := 0; col < c.Width; col++ {
			i := row*c.Width + col
			if g := c.marks[i]; g != 0 {
				b.WriteRune(g)
				continue
			}
			b.WriteRune(rune(brailleBlank) + rune(c.dots[i]))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
