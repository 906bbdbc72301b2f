package mesh

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// AxialMode selects how a ring's z coordinate is derived from its index.
type AxialMode int

const (
	// AxialSpherical places ring m at z = S.z + r*cos(pi*m/M), so every
	// point starts exactly r away from the seed.
	AxialSpherical AxialMode = iota
	// AxialSliceStack places ring m at z = S.z + (m - M/2), one axial slice
	// per ring with integer M/2. The result is a stack of circles whose
	// radii follow the sphere, not a sphere.
	AxialSliceStack
)

func (a AxialMode) String() string {
	if a == AxialSliceStack {
		return "slice-stack"
	}
	return "spherical"
}

func ParseAxialMode(s string) (AxialMode, error) {
	switch s {
	case "", "spherical":
		return AxialSpherical, nil
	case "slice-stack", "stack":
		return AxialSliceStack, nil
	}
	return AxialSpherical, fmt.Errorf("mesh: unknown axial mode %q", s)
}

// PolePolicy decides how the first and last rings are closed.
type PolePolicy int

const (
	// PoleOpen leaves the end rings with three neighbours each.
	PoleOpen PolePolicy = iota
	// PoleCapped adds a pole point above ring 1 and below ring M, each
	// linked to every point of its ring.
	PoleCapped
)

func (p PolePolicy) String() string {
	if p == PoleCapped {
		return "capped"
	}
	return "open"
}

func ParsePolePolicy(s string) (PolePolicy, error) {
	switch s {
	case "", "open":
		return PoleOpen, nil
	case "capped":
		return PoleCapped, nil
	}
	return PoleOpen, fmt.Errorf("mesh: unknown pole policy %q", s)
}

type Params struct {
	Seed    r3.Vec
	Radius  float64
	Rings   int
	PerRing int
	Axial   AxialMode
	Poles   PolePolicy
	Label   float64
}

// Generate builds the initial sphere mesh and its spring topology.
func Generate(p Params) (*Mesh, error) {
	if p.Rings < 2 {
		return nil, fmt.Errorf("%w: ring count %d < 2", ErrInvalidTopology, p.Rings)
	}
	if p.PerRing < 3 {
		return nil, fmt.Errorf("%w: points per ring %d < 3", ErrInvalidTopology, p.PerRing)
	}
	if !(p.Radius > 0) || math.IsInf(p.Radius, 0) {
		return nil, fmt.Errorf("%w: radius %v must be positive", ErrInvalidGeometry, p.Radius)
	}
	if !finite(p.Seed) {
		return nil, fmt.Errorf("%w: seed %v is not finite", ErrInvalidGeometry, p.Seed)
	}

	M, N := p.Rings, p.PerRing
	count := M * N
	if p.Poles == PoleCapped {
		count += 2
	}

	m := &Mesh{
		Points:  make([]MassPoint, 0, count),
		Rings:   M,
		PerRing: N,
		Poles:   p.Poles,
		Axial:   p.Axial,
		Seed:    p.Seed,
		Radius:  p.Radius,
	}

	for ring := 1; ring <= M; ring++ {
		polar := math.Pi * float64(ring) / float64(M)
		z := axialZ(p, ring)
		for lon := 1; lon <= N; lon++ {
			azimuth := 2 * math.Pi * float64(lon) / float64(N)
			m.Points = append(m.Points, MassPoint{
				ID:   len(m.Points),
				Ring: ring,
				Lon:  lon,
				Pos: r3.Vec{
					X: p.Seed.X + p.Radius*math.Sin(polar)*math.Cos(azimuth),
					Y: p.Seed.Y + p.Radius*math.Sin(polar)*math.Sin(azimuth),
					Z: z,
				},
				Label: p.Label,
			})
		}
	}

	if p.Poles == PoleCapped {
		north, south := poleZ(p)
		m.Points = append(m.Points,
			MassPoint{ID: M * N, Ring: 0, Pos: r3.Vec{X: p.Seed.X, Y: p.Seed.Y, Z: north}, Label: p.Label},
			MassPoint{ID: M*N + 1, Ring: M + 1, Pos: r3.Vec{X: p.Seed.X, Y: p.Seed.Y, Z: south}, Label: p.Label},
		)
	}

	connect(m)
	return m, nil
}

func axialZ(p Params, ring int) float64 {
	if p.Axial == AxialSliceStack {
		return p.Seed.Z + float64(ring-p.Rings/2)
	}
	return p.Seed.Z + p.Radius*math.Cos(math.Pi*float64(ring)/float64(p.Rings))
}

// poleZ extends the axial law one ring beyond each end. In spherical mode
// that is the seed +/- r; ring M already sits on the south pole there, so
// the south pole point coincides with it.
func poleZ(p Params) (north, south float64) {
	if p.Axial == AxialSliceStack {
		return axialZ(p, 0), axialZ(p, p.Rings+1)
	}
	return p.Seed.Z + p.Radius, p.Seed.Z - p.Radius
}

// connect wires the springs and records rest lengths from the initial
// positions.
func connect(m *Mesh) {
	M, N := m.Rings, m.PerRing
	link := func(a, b int) {
		pa, pb := &m.Points[a], &m.Points[b]
		if pa.neighborIndex(b) >= 0 {
			return
		}
		rest := r3.Norm(r3.Sub(pb.Pos, pa.Pos))
		pa.Neighbors = append(pa.Neighbors, b)
		pa.RestLengths = append(pa.RestLengths, rest)
		pb.Neighbors = append(pb.Neighbors, a)
		pb.RestLengths = append(pb.RestLengths, rest)
	}

	for ring := 1; ring <= M; ring++ {
		for lon := 1; lon <= N; lon++ {
			id := m.RingID(ring, lon)
			next := lon%N + 1
			link(id, m.RingID(ring, next))
			if ring < M {
				link(id, m.RingID(ring+1, lon))
			}
		}
	}

	if m.Poles == PoleCapped {
		north, south := M*N, M*N+1
		for lon := 1; lon <= N; lon++ {
			link(north, m.RingID(1, lon))
			link(south, m.RingID(M, lon))
		}
	}
}

func finite(v r3.Vec) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
