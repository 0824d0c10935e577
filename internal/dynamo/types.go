package dynamo

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// State is a configuration: the ordered coordinates of all degrees of freedom.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Dot(other State) float64 {
	sum := 0.0
	for i := range s {
		if i < len(other) {
			sum += s[i] * other[i]
		}
	}
	return sum
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// MobilityOperator returns the mobility matrix at a configuration. The result
// must be dim x dim, symmetric and positive semi-definite.
type MobilityOperator interface {
	Mobility(x State) (mat.Matrix, error)
}

// ForceCalculator returns the generalized force (forces and torques) acting
// at a configuration. The result has the same length as x.
type ForceCalculator interface {
	Force(x State) (State, error)
}

// SurfaceFunction returns the constraint residuals at x. A configuration is
// on the manifold when every residual is zero.
type SurfaceFunction interface {
	Residual(x State) []float64
}

// SurfaceGradient is implemented by surfaces with an analytic Jacobian. Row k
// is the gradient of residual k.
type SurfaceGradient interface {
	Gradient(x State) [][]float64
}

// RandomSource supplies independent standard-normal samples. *rand.Rand
// satisfies it.
type RandomSource interface {
	NormFloat64() float64
}

type MobilityFunc func(x State) (mat.Matrix, error)

func (f MobilityFunc) Mobility(x State) (mat.Matrix, error) { return f(x) }

type ForceFunc func(x State) (State, error)

func (f ForceFunc) Force(x State) (State, error) { return f(x) }

type SurfaceFunc func(x State) []float64

func (f SurfaceFunc) Residual(x State) []float64 { return f(x) }

// ScalarSurface adapts a single scalar constraint g(x) = 0.
type ScalarSurface func(x State) float64

func (f ScalarSurface) Residual(x State) []float64 { return []float64{f(x)} }

// MaxAbs returns the largest absolute residual.
func MaxAbs(r []float64) float64 {
	m := 0.0
	for _, v := range r {
		if a := math.Abs(v); a > m || math.IsNaN(a) {
			m = a
		}
	}
	return m
}
