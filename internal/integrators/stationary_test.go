package integrators_test

import (
	"math"
	"math/rand"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/blobsim/internal/dynamo"
	"github.com/san-kum/blobsim/internal/integrators"
	"github.com/san-kum/blobsim/internal/mobility"
)

// With m(x) = 1 + x/2 on the unit circle the equilibrium is uniform in angle,
// so ⟨cos θ⟩ = 0. Projected Euler ignores ∇·M and relaxes to a density
// proportional to 1/m, for which ⟨cos θ⟩ = 2(sqrt(3)/2 - 1) ≈ -0.268.
var _ = Describe("stationary distribution on the circle", Label("statistical"), func() {
	const (
		replicas    = 600
		dt          = 0.01
		steps       = 500
		sampleEvery = 100
		firstSample = 200
	)

	meanCos := func(scheme integrators.Scheme) float64 {
		init := rand.New(rand.NewSource(2024))
		sum, n := 0.0, 0

		for r := 0; r < replicas; r++ {
			theta := 2 * math.Pi * init.Float64()
			cfg := integrators.DefaultConfig()
			cfg.Seed = int64(1000 + r)

			integ, err := integrators.New(unitCircle, mobility.LinearField(2, 1.0, 0.5, 0), nil, scheme,
				dynamo.State{math.Cos(theta), math.Sin(theta)}, cfg)
			Expect(err).NotTo(HaveOccurred())

			for i := 1; i <= steps; i++ {
				Expect(integ.TimeStep(dt)).To(Succeed())
				if i >= firstSample && i%sampleEvery == 0 {
					x := integ.State()
					sum += x[0] / math.Hypot(x[0], x[1])
					n++
				}
			}
		}
		return sum / float64(n)
	}

	BeforeEach(func() {
		if testing.Short() {
			Skip("statistical test skipped in short mode")
		}
	})

	It("is uniform in angle under RFD", func() {
		Expect(math.Abs(meanCos(integrators.RFD))).To(BeNumerically("<", 0.08))
	})

	It("is biased toward low mobility under projected Euler", func() {
		Expect(meanCos(integrators.Euler)).To(BeNumerically("<", -0.15))
	})
})
