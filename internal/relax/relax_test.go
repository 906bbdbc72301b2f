package relax_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/msmseg/internal/coords"
	"github.com/san-kum/msmseg/internal/forces"
	"github.com/san-kum/msmseg/internal/gradient"
	"github.com/san-kum/msmseg/internal/integrators"
	"github.com/san-kum/msmseg/internal/mesh"
	"github.com/san-kum/msmseg/internal/relax"
	"github.com/san-kum/msmseg/internal/volume"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	size    = 41
	nodule  = 10.0
	epsilon = 1e-4
)

// center sits on voxel (20,20,20) once both axes are flipped.
var center = r3.Vec{X: 20, Y: 21, Z: 21}

func stepField() (*coords.Mapper, *gradient.Field) {
	mapper := coords.New(size, size, size)
	v, err := volume.NewPhantom(volume.PhantomParams{
		Width: size, Height: size, Depth: size,
		Center: center, Radius: nodule, Foreground: 1,
	}, mapper.VoxelWorld)
	Expect(err).NotTo(HaveOccurred())
	f, err := gradient.Build(context.Background(), v, gradient.Options{Sigma: 1.5, Normalize: true})
	Expect(err).NotTo(HaveOccurred())
	return mapper, f
}

func sphere(seed r3.Vec, radius float64) *mesh.Mesh {
	m, err := mesh.Generate(mesh.Params{Seed: seed, Radius: radius, Rings: 8, PerRing: 10})
	Expect(err).NotTo(HaveOccurred())
	return m
}

func baseConfig() relax.Config {
	cfg := relax.DefaultConfig()
	cfg.ConvergenceEpsilon = epsilon
	cfg.MaxIterations = 5000
	return cfg
}

type nanField struct{}

func (nanField) Sample(r3.Vec) (r3.Vec, error) { return r3.Vec{X: math.NaN()}, nil }

var errSampler = errors.New("sampler offline")

// brokenField fails for every point whose x lies beyond cut.
type brokenField struct{ cut float64 }

func (b brokenField) Sample(p r3.Vec) (r3.Vec, error) {
	if p.X > b.cut {
		return r3.Vec{}, errSampler
	}
	return r3.Vec{}, nil
}

var _ = Describe("Simulator", func() {
	var (
		mapper *coords.Mapper
		field  *gradient.Field
		ctx    context.Context
	)

	BeforeEach(func() {
		mapper, field = stepField()
		ctx = context.Background()
	})

	Context("with the external weight at zero", func() {
		It("keeps the initial sphere and converges almost immediately", func() {
			m := sphere(center, 6)
			eval := forces.NewEvaluator(1, 0, forces.Linear{}, forces.NewEdgeCoupling(field, mapper))
			res, err := relax.New(eval, nil).Run(ctx, m, baseConfig())

			Expect(err).NotTo(HaveOccurred())
			Expect(res.State).To(Equal(relax.StateConverged))
			Expect(res.Iterations).To(BeNumerically("<=", 2))
			for _, d := range res.Displacement {
				Expect(d).To(BeNumerically("<", epsilon))
			}
			for _, p := range res.Mesh.Points {
				Expect(r3.Norm(r3.Sub(p.Pos, center))).To(BeNumerically("~", 6, 1e-9))
			}
		})

		It("pulls a perturbed point back toward its rest position", func() {
			m := sphere(center, 6)
			id := m.RingID(4, 3)
			rest := m.Points[id].Pos
			m.Points[id].Pos = r3.Add(rest, r3.Vec{X: 0.5})

			eval := forces.NewEvaluator(1, 0, forces.Linear{}, nil)
			res, err := relax.New(eval, nil).Run(ctx, m, baseConfig())

			Expect(err).NotTo(HaveOccurred())
			Expect(res.State).To(Equal(relax.StateConverged))
			Expect(r3.Norm(r3.Sub(res.Mesh.Points[id].Pos, rest))).To(BeNumerically("<", 0.5))
		})
	})

	Context("with the stiffness at zero and a step edge", func() {
		// the edge ridge sits between the last foreground voxel and the
		// first background voxel
		ridge := nodule + 0.5

		DescribeTable("points settle on the edge radius",
			func(start float64) {
				eval := forces.NewEvaluator(0, 1, forces.Linear{}, forces.NewEdgeCoupling(field, mapper))
				res, err := relax.New(eval, nil).Run(ctx, sphere(center, start), baseConfig())

				Expect(err).NotTo(HaveOccurred())
				Expect(res.State).To(Equal(relax.StateConverged))

				lo, hi := math.Inf(1), math.Inf(-1)
				for _, p := range res.Mesh.Points {
					r := r3.Norm(r3.Sub(p.Pos, center))
					Expect(r).To(BeNumerically("~", ridge, 1), "point %d ring %d lon %d", p.ID, p.Ring, p.Lon)
					lo, hi = math.Min(lo, r), math.Max(hi, r)
				}
				Expect(hi - lo).To(BeNumerically("<", 1))
			},
			Entry("from outside", nodule+2),
			Entry("from inside", nodule-2),
		)

		It("is idempotent once converged", func() {
			eval := forces.NewEvaluator(0, 1, forces.Linear{}, forces.NewEdgeCoupling(field, mapper))
			sim := relax.New(eval, nil)
			first, err := sim.Run(ctx, sphere(center, nodule+2), baseConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(first.State).To(Equal(relax.StateConverged))

			second, err := sim.Run(ctx, first.Mesh, baseConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(second.State).To(Equal(relax.StateConverged))
			for _, d := range second.Displacement {
				Expect(d).To(BeNumerically("<", epsilon))
			}
		})
	})

	Context("when the mesh leaves the volume", func() {
		It("fails with counted out-of-bounds samples once the tolerance is exceeded", func() {
			m := sphere(r3.Vec{X: 500, Y: 500, Z: 500}, 5)
			cfg := baseConfig()
			cfg.OutOfBoundsTolerance = 10

			eval := forces.NewEvaluator(1, 1, forces.Linear{}, forces.NewEdgeCoupling(field, mapper))
			res, err := relax.New(eval, nil).Run(ctx, m, cfg)

			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, relax.ErrOutOfBounds)).To(BeTrue())
			var runErr *relax.RunError
			Expect(errors.As(err, &runErr)).To(BeTrue())
			Expect(runErr.Iteration).To(Equal(1))
			Expect(runErr.PointIDs).To(HaveLen(m.Len()))

			Expect(res.State).To(Equal(relax.StateFailed))
			Expect(res.OutOfBounds).To(HaveLen(m.Len()))
			for id := range m.Points {
				Expect(res.OutOfBounds[id]).To(Equal(1))
			}
			Expect(res.Mesh.Positions()).To(Equal(m.Positions()), "last good state is the initial mesh")
		})

		It("zeroes the external force and continues within the tolerance", func() {
			// near the x=0 face some points map outside
			m := sphere(r3.Vec{X: 2, Y: 21, Z: 21}, 4)
			cfg := baseConfig()
			cfg.MaxIterations = 20
			cfg.OutOfBoundsTolerance = math.MaxInt32

			eval := forces.NewEvaluator(1, 1, forces.Linear{}, forces.NewEdgeCoupling(field, mapper))
			res, err := relax.New(eval, nil).Run(ctx, m, cfg)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.State).NotTo(Equal(relax.StateFailed))
			Expect(res.OutOfBounds).NotTo(BeEmpty())
			Expect(len(res.OutOfBounds)).To(BeNumerically("<", m.Len()))
		})
	})

	It("fails on non-finite values and keeps the last good mesh", func() {
		m := sphere(center, 5)
		eval := forces.NewEvaluator(1, 1, forces.Linear{}, nanField{})
		res, err := relax.New(eval, nil).Run(ctx, m, baseConfig())

		Expect(errors.Is(err, relax.ErrNumericalInstability)).To(BeTrue())
		Expect(res.State).To(Equal(relax.StateFailed))
		Expect(res.Iterations).To(Equal(0))
		Expect(res.Mesh.Positions()).To(Equal(m.Positions()))
	})

	It("names the point whose force evaluation failed", func() {
		m := sphere(center, 5)
		// only the +x extreme of the equator lies past the cut
		var far int
		for _, p := range m.Points {
			if p.Pos.X > m.Points[far].Pos.X {
				far = p.ID
			}
		}
		cut := m.Points[far].Pos.X - 1e-6
		for _, p := range m.Points {
			if p.ID != far && p.Pos.X > cut {
				Skip("mesh has several points at the +x extreme")
			}
		}

		cfg := baseConfig()
		cfg.Workers = 1
		eval := forces.NewEvaluator(1, 1, forces.Linear{}, brokenField{cut: cut})
		res, err := relax.New(eval, nil).Run(ctx, m, cfg)

		Expect(errors.Is(err, errSampler)).To(BeTrue())
		var runErr *relax.RunError
		Expect(errors.As(err, &runErr)).To(BeTrue())
		Expect(runErr.Iteration).To(Equal(1))
		Expect(runErr.PointIDs).To(Equal([]int{far}))
		Expect(res.State).To(Equal(relax.StateFailed))
		Expect(res.Mesh.Positions()).To(Equal(m.Positions()))
	})

	Context("with springs only and no momentum carried over", func() {
		// damping 0 is the tightest case for semi-implicit Euler
		It("stays bounded just below the stability bound", func() {
			m, err := mesh.Generate(mesh.Params{Seed: center, Radius: 8, Rings: 12, PerRing: 16})
			Expect(err).NotTo(HaveOccurred())
			for i := range m.Points {
				m.Points[i].Pos = r3.Add(m.Points[i].Pos, r3.Vec{X: 0.01 * math.Sin(float64(7*i)), Y: 0.01 * math.Cos(float64(3*i))})
			}

			stepper := integrators.NewSemiImplicitEuler()
			cfg := baseConfig()
			cfg.Damping = 0
			cfg.MaxIterations = 2000
			cfg.Timestep = 0.98 * integrators.StabilityBound(stepper, 1, cfg.Mass, cfg.Damping, m.MaxDegree())
			Expect(cfg.Timestep).To(BeNumerically("<", 0.5))

			res, err := relax.New(forces.NewEvaluator(1, 0, forces.Linear{}, nil), stepper).Run(ctx, m, cfg)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.State).NotTo(Equal(relax.StateFailed))
			for _, s := range res.History {
				Expect(s.MaxDisplacement).To(BeNumerically("<", 0.1), "iteration %d", s.Iteration)
			}
		})
	})

	It("reports cancellation as a failure", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		eval := forces.NewEvaluator(1, 0, forces.Linear{}, nil)
		res, err := relax.New(eval, nil).Run(cctx, sphere(center, 5), baseConfig())

		Expect(errors.Is(err, relax.ErrCancelled)).To(BeTrue())
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(res.State).To(Equal(relax.StateFailed))
		Expect(res.Iterations).To(Equal(0))
	})

	It("stops at the iteration limit", func() {
		cfg := baseConfig()
		cfg.MaxIterations = 3
		eval := forces.NewEvaluator(0, 1, forces.Linear{}, forces.NewEdgeCoupling(field, mapper))
		res, err := relax.New(eval, nil).Run(ctx, sphere(center, nodule+2), cfg)

		Expect(err).NotTo(HaveOccurred())
		Expect(res.State).To(Equal(relax.StateIterationLimitReached))
		Expect(res.Iterations).To(Equal(3))
		Expect(res.History).To(HaveLen(3))
	})

	It("produces the same result regardless of worker count", func() {
		m, err := mesh.Generate(mesh.Params{Seed: center, Radius: nodule + 2, Rings: 16, PerRing: 24, Poles: mesh.PoleCapped})
		Expect(err).NotTo(HaveOccurred())
		for i := range m.Points {
			m.Points[i].Pos = r3.Add(m.Points[i].Pos, r3.Vec{Z: 0.01 * float64(i%7)})
		}
		eval := forces.NewEvaluator(0.5, 1, forces.Saturating{}, forces.NewEdgeCoupling(field, mapper))
		cfg := baseConfig()
		cfg.MaxIterations = 50

		cfg.Workers = 1
		serial, err := relax.New(eval, nil).Run(ctx, m, cfg)
		Expect(err).NotTo(HaveOccurred())
		cfg.Workers = 4
		par, err := relax.New(eval, nil).Run(ctx, m, cfg)
		Expect(err).NotTo(HaveOccurred())

		Expect(par.Mesh.Positions()).To(Equal(serial.Mesh.Positions()))
		Expect(par.History).To(Equal(serial.History))
	})

	It("never modifies the input mesh", func() {
		m := sphere(center, nodule+2)
		before := m.Clone()
		eval := forces.NewEvaluator(1, 1, forces.Linear{}, forces.NewEdgeCoupling(field, mapper))
		_, err := relax.New(eval, integrators.NewVerlet()).Run(ctx, m, baseConfig())
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Points).To(Equal(before.Points))
	})

	It("notifies observers and metrics once per iteration", func() {
		var seen []int
		sim := relax.New(forces.NewEvaluator(0, 1, forces.Linear{}, forces.NewEdgeCoupling(field, mapper)), nil)
		sim.AddObserver(relax.ObserverFunc(func(s relax.IterationStats) { seen = append(seen, s.Iteration) }))
		counter := &countMetric{}
		sim.AddMetric(counter)

		cfg := baseConfig()
		cfg.MaxIterations = 5
		res, err := sim.Run(ctx, sphere(center, nodule+2), cfg)

		Expect(err).NotTo(HaveOccurred())
		Expect(seen).To(Equal([]int{1, 2, 3, 4, 5}))
		Expect(res.Metrics).To(HaveKeyWithValue("count", 5.0))
	})

	It("converges on the mean displacement when asked", func() {
		cfg := baseConfig()
		cfg.Metric = relax.ConvergeOnMean
		cfg.ConvergenceEpsilon = 1e-2
		eval := forces.NewEvaluator(0, 1, forces.Linear{}, forces.NewEdgeCoupling(field, mapper))
		res, err := relax.New(eval, nil).Run(ctx, sphere(center, nodule+2), cfg)

		Expect(err).NotTo(HaveOccurred())
		Expect(res.State).To(Equal(relax.StateConverged))
		last := res.History[len(res.History)-1]
		Expect(last.MeanDisplacement).To(BeNumerically("<", 1e-2))
	})

	Describe("input validation", func() {
		It("rejects an invalid configuration before starting", func() {
			cfg := baseConfig()
			cfg.Damping = 1.5
			res, err := relax.New(forces.NewEvaluator(1, 0, nil, nil), nil).Run(ctx, sphere(center, 5), cfg)
			Expect(errors.Is(err, relax.ErrInvalidConfig)).To(BeTrue())
			Expect(res).To(BeNil())
		})

		It("rejects an empty mesh", func() {
			_, err := relax.New(forces.NewEvaluator(1, 0, nil, nil), nil).Run(ctx, &mesh.Mesh{}, baseConfig())
			Expect(errors.Is(err, relax.ErrInvalidTopology)).To(BeTrue())
		})
	})
})

type countMetric struct{ n int }

func (c *countMetric) Name() string                              { return "count" }
func (c *countMetric) Observe(relax.IterationStats, *mesh.Mesh) { c.n++ }
func (c *countMetric) Value() float64                            { return float64(c.n) }
func (c *countMetric) Reset()                                    { c.n = 0 }

var _ = Describe("State", func() {
	It("names every state", func() {
		Expect(relax.StateConverged.String()).To(Equal("converged"))
		Expect(relax.StateIterationLimitReached.String()).To(Equal("iteration-limit-reached"))
		Expect(relax.StateRunning.Terminal()).To(BeFalse())
		Expect(relax.StateFailed.Terminal()).To(BeTrue())
	})
})

var _ = Describe("RunError", func() {
	It("matches both its kind and its cause", func() {
		cause := errors.New("boom")
		err := error(&relax.RunError{Kind: relax.ErrOutOfBounds, Iteration: 3, PointIDs: []int{1, 2}, Err: cause})
		Expect(errors.Is(err, relax.ErrOutOfBounds)).To(BeTrue())
		Expect(errors.Is(err, cause)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("iteration 3"))
		Expect(err.Error()).To(ContainSubstring("[1 2]"))
	})
})
