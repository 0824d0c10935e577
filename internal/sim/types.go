package sim

import "github.com/san-kum/blobsim/internal/dynamo"

// Stepper advances a constrained configuration in time. A failed TimeStep
// must leave State and Time unchanged.
type Stepper interface {
	TimeStep(dt float64) error
	Time() float64
	State() dynamo.State
}

type Metric interface {
	Name() string
	Observe(x dynamo.State, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x dynamo.State, t float64)
}

type Config struct {
	Dt       float64
	Duration float64
	// RecordEvery keeps every n-th state in the result; 0 records only the
	// initial and final states.
	RecordEvery int
	// MaxHalvings bounds how many times a step failing projection is split
	// into two half steps before the error is returned.
	MaxHalvings int
}

type Result struct {
	States     []dynamo.State
	Times      []float64
	StepsTaken int
	Retries    int
	Metrics    map[string]float64
}

// Final returns the last recorded state, or nil for an empty result.
func (r *Result) Final() dynamo.State {
	if r == nil || len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}
