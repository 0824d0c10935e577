package metrics

import (
	"math"

	"github.com/san-kum/blobsim/internal/dynamo"
)

// MeanCosine averages cos θ of the planar angle θ = atan2(x[j], x[i]).
// Samples at the origin carry no angle and are skipped.
type MeanCosine struct {
	name    string
	i, j    int
	sum     float64
	samples int
}

func NewMeanCosine(i, j int) *MeanCosine {
	return &MeanCosine{
		name: "mean_cos",
		i:    i,
		j:    j,
	}
}

func (m *MeanCosine) Name() string { return m.name }

func (m *MeanCosine) Observe(x dynamo.State, t float64) {
	if m.i >= len(x) || m.j >= len(x) {
		return
	}
	r := math.Hypot(x[m.i], x[m.j])
	if r == 0 {
		return
	}
	m.sum += x[m.i] / r
	m.samples++
}

func (m *MeanCosine) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanCosine) Reset() {
	m.sum = 0
	m.samples = 0
}
