package forces

import (
	"errors"
	"fmt"

	"github.com/san-kum/msmseg/internal/mesh"
	"github.com/san-kum/msmseg/internal/volume"
	"gonum.org/v1/gonum/spatial/r3"
)

// Sample is the force breakdown for one point. External already carries
// the external weight.
type Sample struct {
	Internal    r3.Vec
	External    r3.Vec
	Net         r3.Vec
	OutOfBounds bool
}

// Evaluator is safe for concurrent use as long as the External it holds
// is; the provided couplings only read immutable fields.
type Evaluator struct {
	Stiffness      float64
	ExternalWeight float64
	Law            SpringLaw
	// External may be nil, in which case only springs act.
	External External
}

func NewEvaluator(stiffness, externalWeight float64, law SpringLaw, ext External) *Evaluator {
	if law == nil {
		law = Linear{}
	}
	return &Evaluator{
		Stiffness:      stiffness,
		ExternalWeight: externalWeight,
		Law:            law,
		External:       ext,
	}
}

// Evaluate computes the force on point id of m using positions from pos,
// which must be indexed by point id. Neither the mesh nor pos is modified.
//
// An out-of-bounds external sample is not fatal to the evaluation: the
// returned Sample has a zero external component, OutOfBounds set, and the
// error is returned alongside so the caller can count it.
func (e *Evaluator) Evaluate(m *mesh.Mesh, pos []r3.Vec, id int) (Sample, error) {
	if id < 0 || id >= len(m.Points) || len(pos) != len(m.Points) {
		return Sample{}, fmt.Errorf("forces: point %d with %d positions for %d points", id, len(pos), len(m.Points))
	}

	p := &m.Points[id]
	var s Sample
	if e.Stiffness != 0 {
		for n, q := range p.Neighbors {
			d := r3.Sub(pos[q], pos[id])
			s.Internal = r3.Add(s.Internal, e.Law.Force(d, p.RestLengths[n]))
		}
		s.Internal = r3.Scale(e.Stiffness, s.Internal)
	}

	var err error
	if e.External != nil {
		var ext r3.Vec
		ext, err = e.External.Sample(pos[id])
		switch {
		case err == nil:
			s.External = r3.Scale(e.ExternalWeight, ext)
		case errors.Is(err, volume.ErrOutOfBounds):
			s.OutOfBounds = true
		default:
			return Sample{}, err
		}
	}

	s.Net = r3.Add(s.Internal, s.External)
	return s, err
}
