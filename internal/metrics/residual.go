package metrics

import (
	"math"

	"github.com/san-kum/blobsim/internal/dynamo"
)

// MaxResidual records the worst constraint violation max|g(x)| seen over a
// run. A NaN residual sticks.
type MaxResidual struct {
	name    string
	surface dynamo.SurfaceFunction
	worst   float64
}

func NewMaxResidual(surface dynamo.SurfaceFunction) *MaxResidual {
	return &MaxResidual{
		name:    "max_residual",
		surface: surface,
	}
}

func (m *MaxResidual) Name() string { return m.name }

func (m *MaxResidual) Observe(x dynamo.State, t float64) {
	r := dynamo.MaxAbs(m.surface.Residual(x))
	if math.IsNaN(r) || r > m.worst {
		if !math.IsNaN(m.worst) {
			m.worst = r
		}
	}
}

func (m *MaxResidual) Value() float64 { return m.worst }

func (m *MaxResidual) Reset() { m.worst = 0 }
