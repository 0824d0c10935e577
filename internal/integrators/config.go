package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/blobsim/internal/dynamo"
)

const (
	DefaultKT        = 1.0
	DefaultDelta     = 1e-6
	DefaultTolerance = 1e-10
	DefaultMaxIters  = 50
	DefaultFDStep    = 1e-7
)

// Config holds the numerical parameters of a Constrained integrator.
type Config struct {
	// KT is the thermal energy scale. Zero disables all stochastic terms.
	KT float64
	// Delta is the RFD perturbation size.
	Delta   float64
	Variant RFDVariant
	// Tolerance bounds max|g(x)| for an accepted projection.
	Tolerance float64
	// MaxIters caps the Gauss-Newton corrections per projection.
	MaxIters int
	// FDStep is the relative step of finite-difference constraint gradients.
	FDStep float64
	// Seed initializes the per-instance random stream.
	Seed int64
}

func DefaultConfig() Config {
	return Config{
		KT:        DefaultKT,
		Delta:     DefaultDelta,
		Variant:   Central,
		Tolerance: DefaultTolerance,
		MaxIters:  DefaultMaxIters,
		FDStep:    DefaultFDStep,
	}
}

func (c Config) validate() error {
	if c.KT < 0 || math.IsNaN(c.KT) || math.IsInf(c.KT, 0) {
		return fmt.Errorf("kT must be finite and non-negative, got %g: %w", c.KT, dynamo.ErrConfiguration)
	}
	if !(c.Delta > 0) || math.IsInf(c.Delta, 0) {
		return fmt.Errorf("rfd delta must be positive, got %g: %w", c.Delta, dynamo.ErrConfiguration)
	}
	if c.Variant != Central && c.Variant != Forward {
		return fmt.Errorf("unknown rfd variant %d: %w", int(c.Variant), dynamo.ErrConfiguration)
	}
	if !(c.Tolerance > 0) {
		return fmt.Errorf("projection tolerance must be positive, got %g: %w", c.Tolerance, dynamo.ErrConfiguration)
	}
	if c.MaxIters <= 0 {
		return fmt.Errorf("projection max iterations must be positive, got %d: %w", c.MaxIters, dynamo.ErrConfiguration)
	}
	if !(c.FDStep > 0) {
		return fmt.Errorf("finite-difference step must be positive, got %g: %w", c.FDStep, dynamo.ErrConfiguration)
	}
	return nil
}
