// Package export serializes a relaxed mesh for consumers outside the CLI:
// a JSON document with points and springs, and SVG drawings of the mesh
// and of the convergence history.
package export

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/msmseg/internal/mesh"
	"github.com/san-kum/msmseg/internal/relax"
)

type Point struct {
	ID           int        `json:"id"`
	Ring         int        `json:"ring"`
	Lon          int        `json:"lon"`
	Pos          [3]float64 `json:"pos"`
	Displacement float64    `json:"displacement"`
	OutOfBounds  int        `json:"out_of_bounds,omitempty"`
}

type Edge struct {
	A    int     `json:"a"`
	B    int     `json:"b"`
	Rest float64 `json:"rest"`
}

type Document struct {
	State      string             `json:"state,omitempty"`
	Iterations int                `json:"iterations"`
	Error      string             `json:"error,omitempty"`
	Rings      int                `json:"rings"`
	PerRing    int                `json:"per_ring"`
	Poles      string             `json:"poles"`
	Axial      string             `json:"axial"`
	Seed       [3]float64         `json:"seed"`
	Radius     float64            `json:"radius"`
	Points     []Point            `json:"points"`
	Edges      []Edge             `json:"edges"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

// FromMesh describes m with no run information attached.
func FromMesh(m *mesh.Mesh) *Document {
	doc := &Document{
		Rings:   m.Rings,
		PerRing: m.PerRing,
		Poles:   m.Poles.String(),
		Axial:   m.Axial.String(),
		Seed:    [3]float64{m.Seed.X, m.Seed.Y, m.Seed.Z},
		Radius:  m.Radius,
		Points:  make([]Point, len(m.Points)),
	}
	for i, p := range m.Points {
		doc.Points[i] = Point{
			ID:   p.ID,
			Ring: p.Ring,
			Lon:  p.Lon,
			Pos:  [3]float64{p.Pos.X, p.Pos.Y, p.Pos.Z},
		}
	}
	for _, e := range m.Edges() {
		doc.Edges = append(doc.Edges, Edge{A: e.A, B: e.B, Rest: e.Rest})
	}
	return doc
}

// FromResult describes the final mesh of a run along with its state,
// per-point displacement and out-of-bounds counts.
func FromResult(res *relax.Result) *Document {
	doc := FromMesh(res.Mesh)
	doc.State = res.State.String()
	doc.Iterations = res.Iterations
	doc.Metrics = res.Metrics
	if res.Err != nil {
		doc.Error = res.Err.Error()
	}
	for i := range doc.Points {
		if i < len(res.Displacement) {
			doc.Points[i].Displacement = res.Displacement[i]
		}
		doc.Points[i].OutOfBounds = res.OutOfBounds[i]
	}
	return doc
}

func WriteJSON(w io.Writer, doc *Document) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}

// MeshJSON writes the result document to path, or to stdout when path is
// empty or "-".
func MeshJSON(path string, res *relax.Result) error {
	doc := FromResult(res)
	if path == "" || path == "-" {
		return WriteJSON(os.Stdout, doc)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, doc)
}

func ReadJSON(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
