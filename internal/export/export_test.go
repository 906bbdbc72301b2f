package export

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/san-kum/msmseg/internal/mesh"
	"github.com/san-kum/msmseg/internal/relax"
	"gonum.org/v1/gonum/spatial/r3"
)

func testMesh(t *testing.T) *mesh.Mesh {
	t.Helper()
	m, err := mesh.Generate(mesh.Params{Seed: r3.Vec{X: 10, Y: 10, Z: 10}, Radius: 4, Rings: 4, PerRing: 5, Poles: mesh.PoleCapped})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestFromMesh(t *testing.T) {
	m := testMesh(t)
	doc := FromMesh(m)

	if len(doc.Points) != m.Len() {
		t.Fatalf("expected %d points, got %d", m.Len(), len(doc.Points))
	}
	if len(doc.Edges) != len(m.Edges()) {
		t.Errorf("expected %d edges, got %d", len(m.Edges()), len(doc.Edges))
	}
	if doc.Poles != "capped" || doc.Axial != "spherical" {
		t.Errorf("unexpected layout %q %q", doc.Poles, doc.Axial)
	}
	if doc.Points[3].Pos[0] != m.Points[3].Pos.X {
		t.Error("position not copied")
	}
}

func TestFromResultRoundTrip(t *testing.T) {
	m := testMesh(t)
	res := &relax.Result{
		Mesh:         m,
		State:        relax.StateFailed,
		Iterations:   7,
		Displacement: make([]float64, m.Len()),
		OutOfBounds:  map[int]int{2: 3},
		Err:          errors.New("boom"),
		Metrics:      map[string]float64{"mean_radius": 4},
	}
	res.Displacement[1] = 0.5

	var buf bytes.Buffer
	if err := WriteJSON(&buf, FromResult(res)); err != nil {
		t.Fatal(err)
	}
	doc, err := ReadJSON(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if doc.State != "failed" || doc.Iterations != 7 || doc.Error != "boom" {
		t.Errorf("unexpected run fields %+v", doc)
	}
	if doc.Points[1].Displacement != 0.5 {
		t.Errorf("expected displacement 0.5, got %f", doc.Points[1].Displacement)
	}
	if doc.Points[2].OutOfBounds != 3 || doc.Points[0].OutOfBounds != 0 {
		t.Error("out-of-bounds counts not carried")
	}
	if doc.Metrics["mean_radius"] != 4 {
		t.Error("metrics not carried")
	}
}

func TestMeshSVG(t *testing.T) {
	m := testMesh(t)
	svg := MeshSVG(m, map[int]int{0: 1}, 200, 200)

	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatal("not an svg document")
	}
	if got := strings.Count(svg, "<line"); got != len(m.Edges()) {
		t.Errorf("expected %d lines, got %d", len(m.Edges()), got)
	}
	// one circle per point plus the seed
	if got := strings.Count(svg, "<circle"); got != m.Len()+1 {
		t.Errorf("expected %d circles, got %d", m.Len()+1, got)
	}
	if strings.Count(svg, "#ff4444") != 1 {
		t.Error("expected one out-of-bounds point")
	}

	if MeshSVG(nil, nil, 10, 10) != "" {
		t.Error("expected empty output for nil mesh")
	}
}

func TestConvergenceSVG(t *testing.T) {
	history := []relax.IterationStats{
		{Iteration: 1, MaxDisplacement: 2},
		{Iteration: 2, MaxDisplacement: 1},
		{Iteration: 3, MaxDisplacement: 0.5},
	}
	svg := ConvergenceSVG(history, 300, 100)
	if !strings.Contains(svg, "<path") {
		t.Fatal("expected a path")
	}
	if strings.Count(svg, " L") != 2 {
		t.Errorf("expected 2 line segments in %s", svg)
	}

	if ConvergenceSVG(history[:1], 300, 100) != "" {
		t.Error("a single iteration has no curve")
	}
}

func TestCurveSVGFlat(t *testing.T) {
	svg := CurveSVG([]XY{{0, 1}, {1, 1}}, 100, 50, "#fff")
	if !strings.Contains(svg, `stroke="#fff"`) {
		t.Error("stroke colour not applied")
	}
}
