package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/blobsim/internal/dynamo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Angles returns atan2(x[j], x[i]) for every state, in (-π, π].
// States too short to hold both indices are skipped.
func Angles(states []dynamo.State, i, j int) []float64 {
	out := make([]float64, 0, len(states))
	for _, x := range states {
		if i >= len(x) || j >= len(x) {
			continue
		}
		out = append(out, math.Atan2(x[j], x[i]))
	}
	return out
}

// CosineEstimate is a sample mean of cos θ with its standard error.
type CosineEstimate struct {
	Mean   float64
	StdErr float64
	N      int
}

// MeanCos estimates ⟨cos θ⟩. StdErr is NaN with fewer than two samples.
func MeanCos(angles []float64) CosineEstimate {
	if len(angles) == 0 {
		return CosineEstimate{Mean: math.NaN(), StdErr: math.NaN()}
	}
	cos := make([]float64, len(angles))
	for k, a := range angles {
		cos[k] = math.Cos(a)
	}
	mean, std := stat.MeanStdDev(cos, nil)
	return CosineEstimate{
		Mean:   mean,
		StdErr: std / math.Sqrt(float64(len(cos))),
		N:      len(cos),
	}
}

// Histogram counts values into bins equal-width bins over [lo, hi]. Values
// outside the range or NaN are dropped; hi itself lands in the last bin.
func Histogram(values []float64, lo, hi float64, bins int) ([]float64, error) {
	if bins < 1 {
		return nil, fmt.Errorf("histogram needs at least one bin, got %d: %w", bins, dynamo.ErrInvalidArgument)
	}
	if !(hi > lo) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return nil, fmt.Errorf("histogram range [%g, %g] is empty: %w", lo, hi, dynamo.ErrInvalidArgument)
	}

	kept := make([]float64, 0, len(values))
	for _, v := range values {
		if v >= lo && v <= hi {
			kept = append(kept, v)
		}
	}
	sort.Float64s(kept)

	dividers := make([]float64, bins+1)
	floats.Span(dividers, lo, hi)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	return stat.Histogram(nil, dividers, kept, nil), nil
}

// UniformityTest is Pearson's chi-square test against equal bin counts.
type UniformityTest struct {
	Statistic float64
	DF        int
	PValue    float64
}

// ChiSquareUniform tests whether counts are consistent with a uniform
// distribution over the bins.
func ChiSquareUniform(counts []float64) (UniformityTest, error) {
	if len(counts) < 2 {
		return UniformityTest{}, fmt.Errorf("chi-square needs at least two bins, got %d: %w", len(counts), dynamo.ErrInvalidArgument)
	}
	total := floats.Sum(counts)
	if !(total > 0) {
		return UniformityTest{}, fmt.Errorf("chi-square needs samples: %w", dynamo.ErrInvalidArgument)
	}

	expected := make([]float64, len(counts))
	for k := range expected {
		expected[k] = total / float64(len(counts))
	}
	chi2 := stat.ChiSquare(counts, expected)
	df := len(counts) - 1

	return UniformityTest{
		Statistic: chi2,
		DF:        df,
		PValue:    distuv.ChiSquared{K: float64(df)}.Survival(chi2),
	}, nil
}
