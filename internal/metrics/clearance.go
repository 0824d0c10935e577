package metrics

import (
	"math"

	"github.com/san-kum/blobsim/internal/dynamo"
)

// WallContact is the fraction of observed steps in which every blob center
// stays above threshold. Configurations are flattened 3-D blob positions.
type WallContact struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewWallContact(threshold float64) *WallContact {
	return &WallContact{
		name:      "wall_clearance",
		threshold: threshold,
	}
}

func (w *WallContact) Name() string { return w.name }

func (w *WallContact) Observe(x dynamo.State, t float64) {
	w.samples++
	for k := 2; k < len(x); k += 3 {
		if x[k] <= w.threshold {
			w.violations++
			return
		}
	}
}

func (w *WallContact) Value() float64 {
	if w.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(w.violations)/float64(w.samples)
}

func (w *WallContact) Reset() {
	w.violations = 0
	w.samples = 0
}

// MinHeight is the smallest blob height observed; +Inf before any sample.
type MinHeight struct {
	lowest float64
}

func NewMinHeight() *MinHeight { return &MinHeight{lowest: math.Inf(1)} }

func (m *MinHeight) Name() string { return "min_height" }

func (m *MinHeight) Observe(x dynamo.State, t float64) {
	for k := 2; k < len(x); k += 3 {
		m.lowest = math.Min(m.lowest, x[k])
	}
}

func (m *MinHeight) Value() float64 { return m.lowest }

func (m *MinHeight) Reset() { m.lowest = math.Inf(1) }
