// Package mesh holds the deformable surface: mass points laid out on a
// latitude/longitude grid around a seed and the immutable spring topology
// between them.
//
// # Layout
//
// Points are numbered densely from 0 in ring-major order, so the point on
// ring m (1..M) and longitude n (1..N) has id (m-1)*N + (n-1). With
// [PoleCapped] two extra points follow the rings: the north pole (id M*N)
// and the south pole (id M*N+1).
//
// # Degenerate rings
//
// Ring m has radius r*sin(pi*m/M) about the axis, so ring M has radius 0 in
// either axial mode: its N points start coincident and the springs around it
// have zero rest length. They stay in the topology; a zero-length spring
// exerts no force until its ends separate, after which it pulls them back
// together. In the default [AxialSpherical] mode the collapsed ring sits on
// the south pole, where a [PoleCapped] pole point also starts.
//
// # Ownership
//
// A Mesh owns its points. Positions and velocities are the only mutable
// state; neighbour lists and rest lengths are fixed by [Generate].
package mesh

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrInvalidTopology indicates a ring or longitude count the grid cannot
	// be built from.
	ErrInvalidTopology = errors.New("mesh: invalid topology")

	// ErrInvalidGeometry indicates a non-positive radius or non-finite seed.
	ErrInvalidGeometry = errors.New("mesh: invalid geometry")
)

type MassPoint struct {
	ID int
	// Ring and Lon are the 1-based parametric indices. Pole points use
	// ring 0 (north) or M+1 (south) and longitude 0.
	Ring, Lon   int
	Pos         r3.Vec
	Vel         r3.Vec
	Neighbors   []int
	RestLengths []float64
	Label       float64
}

type Mesh struct {
	Points  []MassPoint
	Rings   int
	PerRing int
	Poles   PolePolicy
	Axial   AxialMode
	Seed    r3.Vec
	Radius  float64
}

func (m *Mesh) Len() int { return len(m.Points) }

// Point returns the point with the given id.
func (m *Mesh) Point(id int) (*MassPoint, error) {
	if id < 0 || id >= len(m.Points) {
		return nil, fmt.Errorf("mesh: point %d not in [0,%d)", id, len(m.Points))
	}
	return &m.Points[id], nil
}

// RingID returns the id of the ring point (ring, lon), both 1-based.
func (m *Mesh) RingID(ring, lon int) int {
	return (ring-1)*m.PerRing + (lon - 1)
}

func (m *Mesh) Positions() []r3.Vec {
	out := make([]r3.Vec, len(m.Points))
	for i := range m.Points {
		out[i] = m.Points[i].Pos
	}
	return out
}

func (m *Mesh) Velocities() []r3.Vec {
	out := make([]r3.Vec, len(m.Points))
	for i := range m.Points {
		out[i] = m.Points[i].Vel
	}
	return out
}

// SetState overwrites positions and velocities from parallel slices.
func (m *Mesh) SetState(pos, vel []r3.Vec) error {
	if len(pos) != len(m.Points) || len(vel) != len(m.Points) {
		return fmt.Errorf("mesh: state has %d/%d entries, mesh has %d points", len(pos), len(vel), len(m.Points))
	}
	for i := range m.Points {
		m.Points[i].Pos = pos[i]
		m.Points[i].Vel = vel[i]
	}
	return nil
}

// Clone deep-copies the mesh. Topology slices are copied too so the clone
// can never alias the original.
func (m *Mesh) Clone() *Mesh {
	c := *m
	c.Points = make([]MassPoint, len(m.Points))
	for i, p := range m.Points {
		p.Neighbors = append([]int(nil), p.Neighbors...)
		p.RestLengths = append([]float64(nil), p.RestLengths...)
		c.Points[i] = p
	}
	return &c
}

func (m *Mesh) Centroid() r3.Vec {
	var sum r3.Vec
	if len(m.Points) == 0 {
		return sum
	}
	for _, p := range m.Points {
		sum = r3.Add(sum, p.Pos)
	}
	return r3.Scale(1/float64(len(m.Points)), sum)
}

func (m *Mesh) MaxDegree() int {
	max := 0
	for _, p := range m.Points {
		if len(p.Neighbors) > max {
			max = len(p.Neighbors)
		}
	}
	return max
}

// Edge is an undirected spring with A < B.
type Edge struct {
	A, B int
	Rest float64
}

// Edges lists every spring once.
func (m *Mesh) Edges() []Edge {
	edges := make([]Edge, 0, len(m.Points)*2)
	for _, p := range m.Points {
		for n, q := range p.Neighbors {
			if p.ID < q {
				edges = append(edges, Edge{A: p.ID, B: q, Rest: p.RestLengths[n]})
			}
		}
	}
	return edges
}

// Validate checks the topology invariants: ids match positions, no
// self-loops or duplicates, symmetric neighbour relation with equal rest
// lengths on both ends.
func (m *Mesh) Validate() error {
	for i, p := range m.Points {
		if p.ID != i {
			return fmt.Errorf("%w: point at %d has id %d", ErrInvalidTopology, i, p.ID)
		}
		if len(p.Neighbors) != len(p.RestLengths) {
			return fmt.Errorf("%w: point %d has %d neighbours and %d rest lengths", ErrInvalidTopology, i, len(p.Neighbors), len(p.RestLengths))
		}
		seen := make(map[int]bool, len(p.Neighbors))
		for n, q := range p.Neighbors {
			if q == i {
				return fmt.Errorf("%w: point %d links to itself", ErrInvalidTopology, i)
			}
			if seen[q] {
				return fmt.Errorf("%w: point %d links to %d twice", ErrInvalidTopology, i, q)
			}
			seen[q] = true
			if q < 0 || q >= len(m.Points) {
				return fmt.Errorf("%w: point %d links to missing %d", ErrInvalidTopology, i, q)
			}
			back := m.Points[q].neighborIndex(i)
			if back < 0 {
				return fmt.Errorf("%w: %d -> %d is not symmetric", ErrInvalidTopology, i, q)
			}
			if math.Abs(m.Points[q].RestLengths[back]-p.RestLengths[n]) > 1e-9 {
				return fmt.Errorf("%w: rest length %d <-> %d differs", ErrInvalidTopology, i, q)
			}
		}
	}
	return nil
}

func (p *MassPoint) neighborIndex(id int) int {
	for i, q := range p.Neighbors {
		if q == id {
			return i
		}
	}
	return -1
}
