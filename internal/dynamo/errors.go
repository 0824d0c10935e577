package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for constrained integration.
var (
	// ErrConfiguration indicates malformed construction input (non-square
	// mobility, unknown scheme or backend, invalid parameters).
	ErrConfiguration = errors.New("dynamo: invalid configuration")

	// ErrDimension indicates mismatched vector/matrix lengths at call time.
	ErrDimension = errors.New("dynamo: dimension mismatch")

	// ErrInvalidArgument indicates an out-of-range call argument such as dt <= 0.
	ErrInvalidArgument = errors.New("dynamo: invalid argument")

	// ErrProjection indicates the projection onto the constraint surface did not
	// converge within the iteration budget.
	ErrProjection = errors.New("dynamo: projection onto constraint surface failed")

	// ErrNumericalInstability indicates an ill-conditioned finite-difference
	// estimate or a non-finite intermediate result.
	ErrNumericalInstability = errors.New("dynamo: numerical instability")

	// ErrInvalidState indicates a state vector with NaN or Inf entries.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrContextCanceled indicates the simulation was interrupted.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")
)

// StepError wraps a failed time step with the clock it was attempted at.
// State and time of the integrator are unchanged when a StepError is returned.
type StepError struct {
	Step    int
	Time    float64
	Dt      float64
	Scheme  string
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step %d (t=%.6g, dt=%.3g): %v", e.Scheme, e.Step, e.Time, e.Dt, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
