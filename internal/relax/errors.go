package relax

import (
	"errors"
	"fmt"

	"github.com/san-kum/msmseg/internal/mesh"
	"github.com/san-kum/msmseg/internal/volume"
)

// Failure kinds. Construction errors come from the mesh package and are
// re-exported so callers only need to import relax.
var (
	ErrInvalidTopology = mesh.ErrInvalidTopology
	ErrInvalidGeometry = mesh.ErrInvalidGeometry
	ErrOutOfBounds     = volume.ErrOutOfBounds

	// ErrNumericalInstability indicates a non-finite position, velocity or
	// force.
	ErrNumericalInstability = errors.New("relax: numerical instability (NaN or Inf detected)")

	// ErrCancelled indicates the run was stopped through its context.
	ErrCancelled = errors.New("relax: run cancelled")

	// ErrInvalidConfig indicates a parameter outside its valid range.
	ErrInvalidConfig = errors.New("relax: invalid configuration")
)

// RunError describes why a run ended in StateFailed. errors.Is matches both
// Kind and the underlying cause.
type RunError struct {
	Kind      error
	Iteration int
	PointIDs  []int
	Err       error
}

func (e *RunError) Error() string {
	msg := fmt.Sprintf("%v at iteration %d", e.Kind, e.Iteration)
	if n := len(e.PointIDs); n > 0 {
		if n > 8 {
			msg += fmt.Sprintf(" (points %v and %d more)", e.PointIDs[:8], n-8)
		} else {
			msg += fmt.Sprintf(" (points %v)", e.PointIDs)
		}
	}
	if e.Err != nil && e.Err != e.Kind {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RunError) Is(target error) bool { return target == e.Kind }

func (e *RunError) Unwrap() error { return e.Err }
