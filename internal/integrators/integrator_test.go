package integrators_test

import (
	"errors"
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/blobsim/internal/dynamo"
	"github.com/san-kum/blobsim/internal/integrators"
	"github.com/san-kum/blobsim/internal/mobility"
	"github.com/san-kum/blobsim/internal/surface"
)

type countingSource struct {
	draws int
	r     *rand.Rand
}

func (c *countingSource) NormFloat64() float64 {
	c.draws++
	return c.r.NormFloat64()
}

var unitCircle = surface.Sphere{Center: []float64{0, 0}, Radius: 1}

func newCircle(scheme integrators.Scheme, cfg integrators.Config) *integrators.Constrained {
	integ, err := integrators.New(unitCircle, mobility.LinearField(2, 1.0, 0.5, 0), nil, scheme, dynamo.State{1, 0}, cfg)
	Expect(err).NotTo(HaveOccurred())
	return integ
}

var _ = Describe("Constrained", func() {
	var cfg integrators.Config

	BeforeEach(func() {
		cfg = integrators.DefaultConfig()
		cfg.Seed = 7
	})

	Describe("construction", func() {
		It("rejects a non-square mobility", func() {
			mob := mobility.Constant([][]float64{{1, 0, 0}, {0, 1, 0}})
			_, err := integrators.New(unitCircle, mob, nil, integrators.Euler, dynamo.State{1, 0}, cfg)
			Expect(err).To(MatchError(dynamo.ErrConfiguration))
		})

		It("rejects an unknown scheme name", func() {
			_, err := integrators.ParseScheme("FOO")
			Expect(err).To(MatchError(dynamo.ErrConfiguration))
		})

		It("rejects an out-of-range scheme value", func() {
			_, err := integrators.New(unitCircle, mobility.Isotropic(2, 1), nil, integrators.Scheme(42), dynamo.State{1, 0}, cfg)
			Expect(err).To(MatchError(dynamo.ErrConfiguration))
		})

		It("rejects a configuration that does not match the mobility", func() {
			_, err := integrators.New(unitCircle, mobility.Isotropic(3, 1), nil, integrators.RFD, dynamo.State{1, 0}, cfg)
			Expect(err).To(MatchError(dynamo.ErrConfiguration))
		})

		DescribeTable("rejects invalid parameters",
			func(mutate func(*integrators.Config)) {
				mutate(&cfg)
				_, err := integrators.New(unitCircle, mobility.Isotropic(2, 1), nil, integrators.RFD, dynamo.State{1, 0}, cfg)
				Expect(err).To(MatchError(dynamo.ErrConfiguration))
			},
			Entry("negative kT", func(c *integrators.Config) { c.KT = -1 }),
			Entry("zero delta", func(c *integrators.Config) { c.Delta = 0 }),
			Entry("zero tolerance", func(c *integrators.Config) { c.Tolerance = 0 }),
			Entry("zero iteration budget", func(c *integrators.Config) { c.MaxIters = 0 }),
		)

		It("parses scheme names case-insensitively", func() {
			s, err := integrators.ParseScheme("rfd")
			Expect(err).NotTo(HaveOccurred())
			Expect(s).To(Equal(integrators.RFD))
			Expect(integrators.Euler.String()).To(Equal("EULER"))
		})

		It("projects the initial configuration onto the surface", func() {
			integ, err := integrators.New(unitCircle, mobility.Isotropic(2, 1), nil, integrators.Euler, dynamo.State{2, 2}, cfg)
			Expect(err).NotTo(HaveOccurred())

			x := integ.State()
			Expect(math.Hypot(x[0], x[1])).To(BeNumerically("~", 1, 1e-9))
			Expect(x[0]).To(BeNumerically("~", x[1], 1e-12))
			Expect(integ.Time()).To(Equal(0.0))
		})

		It("fails when the initial configuration cannot be projected", func() {
			_, err := integrators.New(unitCircle, mobility.Isotropic(2, 1), nil, integrators.Euler, dynamo.State{0, 0}, cfg)
			Expect(err).To(MatchError(dynamo.ErrConfiguration))
			Expect(err).To(MatchError(dynamo.ErrProjection))
		})
	})

	Describe("ApplyMobility", func() {
		var integ *integrators.Constrained

		BeforeEach(func() {
			mob := mobility.Constant([][]float64{{2, 0.5, 0}, {0.5, 1, 0.2}, {0, 0.2, 3}})
			sphere := surface.Sphere{Radius: 1}
			var err error
			integ, err = integrators.New(sphere, mob, nil, integrators.Euler, dynamo.State{0, 0, 1}, cfg)
			Expect(err).NotTo(HaveOccurred())
		})

		It("computes M·F", func() {
			v, err := integ.ApplyMobility(dynamo.State{1, 2, 3})
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(HaveLen(3))
			Expect(v[0]).To(BeNumerically("~", 3.0, 1e-12))
			Expect(v[1]).To(BeNumerically("~", 3.1, 1e-12))
			Expect(v[2]).To(BeNumerically("~", 9.4, 1e-12))
		})

		It("is linear", func() {
			rng := rand.New(rand.NewSource(3))
			for trial := 0; trial < 20; trial++ {
				f1 := dynamo.State{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
				f2 := dynamo.State{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
				a, b := rng.NormFloat64(), rng.NormFloat64()

				lhs, err := integ.ApplyMobility(f1.Scale(a).Add(f2.Scale(b)))
				Expect(err).NotTo(HaveOccurred())
				v1, _ := integ.ApplyMobility(f1)
				v2, _ := integ.ApplyMobility(f2)
				rhs := v1.Scale(a).Add(v2.Scale(b))
				for i := range lhs {
					Expect(lhs[i]).To(BeNumerically("~", rhs[i], 1e-12))
				}
			}
		})

		It("rejects a force of the wrong length", func() {
			_, err := integ.ApplyMobility(dynamo.State{1, 2})
			Expect(err).To(MatchError(dynamo.ErrDimension))
			_, err = integ.ApplyMobility(dynamo.State{1, 2, 3, 4})
			Expect(err).To(MatchError(dynamo.ErrDimension))
		})

		It("returns a copy of the mobility", func() {
			m := integ.Mobility()
			m.Set(0, 0, 100)
			Expect(integ.Mobility().At(0, 0)).To(Equal(2.0))
		})
	})

	Describe("TimeStep", func() {
		DescribeTable("keeps the configuration on the surface",
			func(scheme integrators.Scheme, variant integrators.RFDVariant) {
				cfg.Variant = variant
				integ := newCircle(scheme, cfg)
				for i := 0; i < 200; i++ {
					Expect(integ.TimeStep(0.01)).To(Succeed())
					Expect(dynamo.MaxAbs(integ.Residual())).To(BeNumerically("<", cfg.Tolerance))
				}
			},
			Entry("euler", integrators.Euler, integrators.Central),
			Entry("rfd central", integrators.RFD, integrators.Central),
			Entry("rfd forward", integrators.RFD, integrators.Forward),
		)

		It("keeps several blobs on their own spheres under the wall mobility", func() {
			wall := mobility.SingleWall{Eta: 1, Radius: 0.5}
			shells := surface.PerBlob{Inner: surface.Sphere{Center: []float64{0, 0, 5}, Radius: 2}, Stride: 3}
			x0 := dynamo.State{2, 0, 5, -2, 0, 5}
			integ, err := integrators.New(shells, wall, nil, integrators.RFD, x0, cfg)
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 50; i++ {
				Expect(integ.TimeStep(0.01)).To(Succeed())
			}
			Expect(integ.Residual()).To(HaveLen(2))
			Expect(dynamo.MaxAbs(integ.Residual())).To(BeNumerically("<", cfg.Tolerance))
		})

		It("projects with finite-difference gradients when none is supplied", func() {
			ellipse := dynamo.ScalarSurface(func(x dynamo.State) float64 {
				return x[0]*x[0]/4 + x[1]*x[1] - 1
			})
			integ, err := integrators.New(ellipse, mobility.Isotropic(2, 1), nil, integrators.Euler, dynamo.State{2, 0}, cfg)
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < 100; i++ {
				Expect(integ.TimeStep(0.01)).To(Succeed())
			}
			Expect(dynamo.MaxAbs(integ.Residual())).To(BeNumerically("<", cfg.Tolerance))
		})

		It("advances the clock by N·dt", func() {
			integ := newCircle(integrators.RFD, cfg)
			const n, dt = 250, 0.004
			for i := 0; i < n; i++ {
				Expect(integ.TimeStep(dt)).To(Succeed())
			}
			Expect(integ.Steps()).To(Equal(n))
			Expect(integ.Time()).To(BeNumerically("~", n*dt, 1e-12))
		})

		It("rejects non-positive dt without touching the state", func() {
			integ := newCircle(integrators.Euler, cfg)
			before := integ.State()
			for _, dt := range []float64{0, -0.1, math.NaN(), math.Inf(1)} {
				err := integ.TimeStep(dt)
				Expect(err).To(MatchError(dynamo.ErrInvalidArgument))
			}
			Expect(integ.State()).To(Equal(before))
			Expect(integ.Time()).To(Equal(0.0))
		})

		It("follows the deterministic drift when kT is zero", func() {
			cfg.KT = 0
			push := dynamo.ForceFunc(func(x dynamo.State) (dynamo.State, error) {
				return dynamo.State{-x[1], x[0]}, nil
			})
			integ, err := integrators.New(unitCircle, mobility.Isotropic(2, 1), push, integrators.Euler, dynamo.State{1, 0}, cfg)
			Expect(err).NotTo(HaveOccurred())

			const dt = 0.001
			for i := 0; i < 1000; i++ {
				Expect(integ.TimeStep(dt)).To(Succeed())
			}
			x := integ.State()
			Expect(math.Atan2(x[1], x[0])).To(BeNumerically("~", 1.0, 1e-3))
		})

		DescribeTable("is reproducible and draws no random numbers when kT is zero",
			func(scheme integrators.Scheme) {
				cfg.KT = 0
				push := dynamo.ForceFunc(func(x dynamo.State) (dynamo.State, error) {
					return dynamo.State{-x[1] + 0.3, x[0]}, nil
				})
				run := func() ([]dynamo.State, int) {
					integ, err := integrators.New(unitCircle, mobility.LinearField(2, 1, 0.5, 0), push, scheme, dynamo.State{1, 0}, cfg)
					Expect(err).NotTo(HaveOccurred())
					src := &countingSource{r: rand.New(rand.NewSource(11))}
					integ.SetRandomSource(src)

					var traj []dynamo.State
					for i := 0; i < 100; i++ {
						Expect(integ.TimeStep(0.01)).To(Succeed())
						traj = append(traj, integ.State())
					}
					return traj, src.draws
				}

				a, drawsA := run()
				b, drawsB := run()
				Expect(drawsA).To(BeZero())
				Expect(drawsB).To(BeZero())
				Expect(a).To(Equal(b))
			},
			Entry("euler", integrators.Euler),
			Entry("rfd", integrators.RFD),
		)

		It("reproduces a stochastic trajectory from the same seed", func() {
			a := newCircle(integrators.RFD, cfg)
			b := newCircle(integrators.RFD, cfg)
			for i := 0; i < 50; i++ {
				Expect(a.TimeStep(0.01)).To(Succeed())
				Expect(b.TimeStep(0.01)).To(Succeed())
			}
			Expect(a.State()).To(Equal(b.State()))
		})

		It("leaves state and clock unchanged when projection fails", func() {
			cfg.KT = 0
			cfg.MaxIters = 1
			kick := dynamo.ForceFunc(func(x dynamo.State) (dynamo.State, error) {
				return dynamo.State{100, 0}, nil
			})
			integ, err := integrators.New(unitCircle, mobility.Isotropic(2, 1), kick, integrators.Euler, dynamo.State{0, 1}, cfg)
			Expect(err).NotTo(HaveOccurred())

			before := integ.State()
			err = integ.TimeStep(1.0)
			Expect(err).To(MatchError(dynamo.ErrProjection))

			var stepErr *dynamo.StepError
			Expect(errors.As(err, &stepErr)).To(BeTrue())
			Expect(stepErr.Step).To(Equal(0))
			Expect(stepErr.Scheme).To(Equal("EULER"))

			Expect(integ.State()).To(Equal(before))
			Expect(integ.Time()).To(Equal(0.0))
			Expect(integ.Steps()).To(Equal(0))
		})

		It("leaves state and clock unchanged when the force calculator fails", func() {
			boom := errors.New("force field exploded")
			calls := 0
			flaky := dynamo.ForceFunc(func(x dynamo.State) (dynamo.State, error) {
				calls++
				if calls > 3 {
					return nil, boom
				}
				return dynamo.State{0, 0}, nil
			})
			integ, err := integrators.New(unitCircle, mobility.Isotropic(2, 1), flaky, integrators.RFD, dynamo.State{1, 0}, cfg)
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 3; i++ {
				Expect(integ.TimeStep(0.01)).To(Succeed())
			}
			before, t := integ.State(), integ.Time()

			Expect(integ.TimeStep(0.01)).To(MatchError(boom))
			Expect(integ.State()).To(Equal(before))
			Expect(integ.Time()).To(Equal(t))
		})

		It("rejects a force of the wrong length", func() {
			short := dynamo.ForceFunc(func(x dynamo.State) (dynamo.State, error) { return dynamo.State{1}, nil })
			integ, err := integrators.New(unitCircle, mobility.Isotropic(2, 1), short, integrators.Euler, dynamo.State{1, 0}, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(integ.TimeStep(0.01)).To(MatchError(dynamo.ErrDimension))
		})

		It("reports an underflowing RFD perturbation", func() {
			cfg.Delta = 1e-30
			far := surface.Sphere{Center: []float64{1e12, 1e12}, Radius: 1}
			integ, err := integrators.New(far, mobility.Isotropic(2, 1), nil, integrators.RFD, dynamo.State{1e12 + 1, 1e12}, cfg)
			Expect(err).NotTo(HaveOccurred())

			before := integ.State()
			Expect(integ.TimeStep(0.01)).To(MatchError(dynamo.ErrNumericalInstability))
			Expect(integ.State()).To(Equal(before))
		})

		It("reports a non-finite RFD drift", func() {
			calls := 0
			spiky := dynamo.MobilityFunc(func(x dynamo.State) (mat.Matrix, error) {
				calls++
				if calls > 1 {
					return mat.NewDiagDense(2, []float64{math.Inf(1), 1}), nil
				}
				return mat.NewDiagDense(2, []float64{1, 1}), nil
			})
			integ, err := integrators.New(unitCircle, spiky, nil, integrators.RFD, dynamo.State{1, 0}, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(integ.TimeStep(0.01)).To(MatchError(dynamo.ErrNumericalInstability))
		})

		It("samples noise from a semi-definite mobility", func() {
			singular := mobility.Constant([][]float64{{1, 1}, {1, 1}})
			integ, err := integrators.New(unitCircle, singular, nil, integrators.Euler, dynamo.State{1, 0}, cfg)
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < 20; i++ {
				Expect(integ.TimeStep(0.01)).To(Succeed())
			}
		})

		It("rejects an indefinite mobility when sampling noise", func() {
			indefinite := mobility.Constant([][]float64{{1, 0}, {0, -1}})
			integ, err := integrators.New(unitCircle, indefinite, nil, integrators.Euler, dynamo.State{1, 0}, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(integ.TimeStep(0.01)).To(MatchError(dynamo.ErrNumericalInstability))
		})
	})
})
