package experiment

import (
	"fmt"
	"math"

	"github.com/san-kum/blobsim/internal/analysis"
	"github.com/san-kum/blobsim/internal/dynamo"
	"github.com/san-kum/blobsim/internal/sim"
)

// BiasReport summarizes the angular distribution sampled by an ensemble on
// a circle. Without drift bias MeanCos is zero within its error and the
// histogram is uniform.
type BiasReport struct {
	Samples    int
	MeanCos    analysis.CosineEstimate
	Counts     []float64
	Uniformity analysis.UniformityTest
}

// Bias pools the recorded states at or after burnIn from every result and
// measures the angle atan2(x[1], x[0]).
func Bias(results []*sim.Result, burnIn float64, bins int) (*BiasReport, error) {
	var states []dynamo.State
	for _, r := range results {
		if r == nil {
			continue
		}
		for k, x := range r.States {
			if r.Times[k] >= burnIn {
				states = append(states, x)
			}
		}
	}

	angles := analysis.Angles(states, 0, 1)
	if len(angles) < 2 {
		return nil, fmt.Errorf("bias needs at least two samples after t=%g, got %d: %w", burnIn, len(angles), dynamo.ErrInvalidArgument)
	}

	counts, err := analysis.Histogram(angles, -math.Pi, math.Pi, bins)
	if err != nil {
		return nil, err
	}
	uniformity, err := analysis.ChiSquareUniform(counts)
	if err != nil {
		return nil, err
	}

	return &BiasReport{
		Samples:    len(angles),
		MeanCos:    analysis.MeanCos(angles),
		Counts:     counts,
		Uniformity: uniformity,
	}, nil
}
