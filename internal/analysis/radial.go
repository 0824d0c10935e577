package analysis

import (
	"fmt"
	"math"

	"github.com/san-kum/blobsim/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

// RadialDist is a pair correlation function sampled at bin centers.
type RadialDist struct {
	R      []float64
	G      []float64
	Counts []float64
	Frames int
}

// RadialDistribution computes g(r) for blobs stored as consecutive (x, y, z)
// triples. Separations are 3-D with minimum images in x and y over a box
// lx × ly; the ideal-gas reference is 2-D, which suits blobs sedimented on
// a wall. Bins cover [0, min(lx, ly)/2].
func RadialDistribution(states []dynamo.State, lx, ly float64, bins int) (*RadialDist, error) {
	if !(lx > 0) || !(ly > 0) || math.IsInf(lx, 0) || math.IsInf(ly, 0) {
		return nil, fmt.Errorf("box %g x %g must be positive: %w", lx, ly, dynamo.ErrInvalidArgument)
	}
	if bins < 1 {
		return nil, fmt.Errorf("radial distribution needs at least one bin, got %d: %w", bins, dynamo.ErrInvalidArgument)
	}
	if len(states) == 0 {
		return nil, fmt.Errorf("no states: %w", dynamo.ErrInvalidArgument)
	}
	n := len(states[0]) / 3
	if n < 2 || len(states[0])%3 != 0 {
		return nil, fmt.Errorf("state of length %d is not two or more blobs: %w", len(states[0]), dynamo.ErrDimension)
	}

	rMax := math.Min(lx, ly) / 2
	dists := make([]float64, 0, len(states)*n*(n-1)/2)
	for _, x := range states {
		if len(x) != 3*n {
			return nil, fmt.Errorf("state of length %d, want %d: %w", len(x), 3*n, dynamo.ErrDimension)
		}
		for i := 0; i < n-1; i++ {
			for j := i + 1; j < n; j++ {
				dx := minImage(x[3*i]-x[3*j], lx)
				dy := minImage(x[3*i+1]-x[3*j+1], ly)
				dz := x[3*i+2] - x[3*j+2]
				if r := math.Sqrt(dx*dx + dy*dy + dz*dz); r < rMax {
					dists = append(dists, r)
				}
			}
		}
	}

	counts, err := Histogram(dists, 0, rMax, bins)
	if err != nil {
		return nil, err
	}
	// each pair is seen from both blobs
	floats.Scale(2, counts)

	edges := make([]float64, bins+1)
	floats.Span(edges, 0, rMax)
	density := float64(n) / (lx * ly)
	out := &RadialDist{
		R:      make([]float64, bins),
		G:      make([]float64, bins),
		Counts: counts,
		Frames: len(states),
	}
	for b := 0; b < bins; b++ {
		lo, hi := edges[b], edges[b+1]
		out.R[b] = (lo + hi) / 2
		ideal := math.Pi * density * (hi*hi - lo*lo)
		out.G[b] = counts[b] / (float64(len(states)*n) * ideal)
	}
	return out, nil
}

func minImage(d, l float64) float64 {
	return d - l*math.Round(d/l)
}
