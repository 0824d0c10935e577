package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/san-kum/blobsim/internal/dynamo"
	"github.com/san-kum/blobsim/internal/integrators"
	"github.com/san-kum/blobsim/internal/mobility"
	"github.com/san-kum/blobsim/internal/surface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// driftStepper moves x[0] by dt per step and fails steps for which fail
// returns an error.
type driftStepper struct {
	x    dynamo.State
	t    float64
	seed int64
	fail func(dt float64) error
}

func newDriftStepper() *driftStepper { return &driftStepper{x: dynamo.State{0}} }

func (d *driftStepper) TimeStep(dt float64) error {
	if d.fail != nil {
		if err := d.fail(dt); err != nil {
			return err
		}
	}
	d.x[0] += dt
	d.t += dt
	return nil
}

func (d *driftStepper) Time() float64       { return d.t }
func (d *driftStepper) State() dynamo.State { return d.x.Clone() }

func TestSimulatorRun(t *testing.T) {
	sim := New(newDriftStepper())

	result, err := sim.Run(context.Background(), Config{Dt: 0.1, Duration: 1.0, RecordEvery: 1})
	require.NoError(t, err)

	assert.Len(t, result.States, 11)
	assert.Len(t, result.Times, 11)
	assert.Equal(t, 10, result.StepsTaken)
	assert.InDelta(t, 1.0, result.Final()[0], 1e-12)
	assert.InDelta(t, 1.0, result.Times[10], 1e-12)
}

func TestSimulatorRecordEvery(t *testing.T) {
	tests := []struct {
		name        string
		recordEvery int
		want        int
	}{
		{"every step", 1, 11},
		{"every fifth", 5, 3},
		{"every third", 3, 5}, // 0, 3, 6, 9 and the final state
		{"endpoints only", 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := New(newDriftStepper())
			result, err := sim.Run(context.Background(), Config{Dt: 0.1, Duration: 1.0, RecordEvery: tt.recordEvery})
			require.NoError(t, err)
			assert.Len(t, result.States, tt.want)
			assert.InDelta(t, 1.0, result.Final()[0], 1e-12)
		})
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	sim := New(newDriftStepper())

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero dt", Config{Dt: 0, Duration: 1.0}},
		{"negative dt", Config{Dt: -0.1, Duration: 1.0}},
		{"NaN dt", Config{Dt: math.NaN(), Duration: 1.0}},
		{"zero duration", Config{Dt: 0.1, Duration: 0}},
		{"negative duration", Config{Dt: 0.1, Duration: -1.0}},
		{"negative halvings", Config{Dt: 0.1, Duration: 1.0, MaxHalvings: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sim.Run(context.Background(), tt.cfg)
			assert.True(t, errors.Is(err, dynamo.ErrConfiguration), "got %v", err)
		})
	}
}

func TestSimulatorHalvesStepOnProjectionFailure(t *testing.T) {
	stepper := newDriftStepper()
	stepper.fail = func(dt float64) error {
		if dt > 0.03 {
			return fmt.Errorf("dt=%g: %w", dt, dynamo.ErrProjection)
		}
		return nil
	}

	sim := New(stepper)
	result, err := sim.Run(context.Background(), Config{Dt: 0.1, Duration: 0.1, RecordEvery: 1, MaxHalvings: 4})
	require.NoError(t, err)

	// 0.1 fails once, each of its two 0.05 halves fails once.
	assert.Equal(t, 3, result.Retries)
	assert.Equal(t, 1, result.StepsTaken)
	assert.InDelta(t, 0.1, stepper.Time(), 1e-12)
}

func TestSimulatorGivesUpAfterMaxHalvings(t *testing.T) {
	stepper := newDriftStepper()
	stepper.fail = func(dt float64) error {
		if dt > 0.03 {
			return dynamo.ErrProjection
		}
		return nil
	}

	sim := New(stepper)
	result, err := sim.Run(context.Background(), Config{Dt: 0.1, Duration: 0.5, RecordEvery: 1, MaxHalvings: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, dynamo.ErrProjection))
	assert.Equal(t, 0, result.StepsTaken)
	assert.Equal(t, 1, result.Retries)
	// the stepper never moved, so the initial state is also the final one
	assert.Len(t, result.States, 1)
	assert.InDelta(t, 0.0, stepper.Time(), 1e-12)
}

func TestSimulatorRecordsPartiallyCommittedStep(t *testing.T) {
	stepper := newDriftStepper()
	calls := 0
	stepper.fail = func(dt float64) error {
		calls++
		// full step fails, first half commits, second half fails
		if calls == 1 || calls == 3 {
			return fmt.Errorf("call %d: %w", calls, dynamo.ErrProjection)
		}
		return nil
	}

	sim := New(stepper)
	metric := &testMetric{}
	obs := &countingObserver{}
	sim.AddMetric(metric)
	sim.AddObserver(obs)

	result, err := sim.Run(context.Background(), Config{Dt: 0.1, Duration: 0.5, RecordEvery: 1, MaxHalvings: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, dynamo.ErrProjection))
	assert.Equal(t, 0, result.StepsTaken)
	assert.Equal(t, 1, result.Retries)

	require.Len(t, result.States, 2)
	assert.InDelta(t, 0.05, stepper.Time(), 1e-12)
	assert.InDelta(t, 0.05, result.Times[1], 1e-12)
	assert.Equal(t, stepper.State(), result.Final())

	assert.Equal(t, 1, metric.count)
	assert.Equal(t, 1, obs.steps)
	assert.InDelta(t, 0.05, result.Metrics["test"], 1e-12)
}

func TestSimulatorEndpointsAfterError(t *testing.T) {
	stepper := newDriftStepper()
	calls := 0
	stepper.fail = func(dt float64) error {
		calls++
		if calls > 4 {
			return dynamo.ErrNumericalInstability
		}
		return nil
	}

	sim := New(stepper)
	result, err := sim.Run(context.Background(), Config{Dt: 0.1, Duration: 1.0, RecordEvery: 3})
	require.Error(t, err)
	// initial, step 3 and the state after step 4
	require.Len(t, result.States, 3)
	assert.InDelta(t, 0.4, result.Times[2], 1e-12)
	assert.InDelta(t, 0.4, result.Final()[0], 1e-12)
}

func TestSimulatorDoesNotRetryOtherErrors(t *testing.T) {
	stepper := newDriftStepper()
	calls := 0
	stepper.fail = func(dt float64) error {
		calls++
		if calls > 3 {
			return dynamo.ErrNumericalInstability
		}
		return nil
	}

	sim := New(stepper)
	result, err := sim.Run(context.Background(), Config{Dt: 0.1, Duration: 1.0, RecordEvery: 1, MaxHalvings: 4})
	assert.True(t, errors.Is(err, dynamo.ErrNumericalInstability))
	assert.Equal(t, 3, result.StepsTaken)
	assert.Equal(t, 0, result.Retries)
	assert.Equal(t, 4, calls)
}

func TestSimulatorContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sim := New(newDriftStepper())
	result, err := sim.Run(ctx, Config{Dt: 0.1, Duration: 1.0, RecordEvery: 1})
	assert.True(t, errors.Is(err, dynamo.ErrContextCanceled))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, result.StepsTaken)
}

type testMetric struct {
	count int
	sum   float64
}

func (t *testMetric) Name() string { return "test" }
func (t *testMetric) Observe(x dynamo.State, time float64) {
	t.count++
	t.sum += x[0]
}
func (t *testMetric) Value() float64 {
	if t.count == 0 {
		return 0
	}
	return t.sum / float64(t.count)
}
func (t *testMetric) Reset() {
	t.count = 0
	t.sum = 0
}

type countingObserver struct{ steps int }

func (c *countingObserver) OnStep(dynamo.State, float64) { c.steps++ }

func TestSimulatorMetrics(t *testing.T) {
	sim := New(newDriftStepper())

	metric := &testMetric{}
	obs := &countingObserver{}
	sim.AddMetric(metric)
	sim.AddObserver(obs)

	result, err := sim.Run(context.Background(), Config{Dt: 0.1, Duration: 1.0, RecordEvery: 1})
	require.NoError(t, err)

	require.Contains(t, result.Metrics, "test")
	assert.Equal(t, 10, metric.count)
	assert.Equal(t, 10, obs.steps)
	assert.InDelta(t, 0.55, result.Metrics["test"], 1e-12)
}

func TestSimulatorDrivesConstrainedIntegrator(t *testing.T) {
	circle := surface.Sphere{Center: []float64{0, 0}, Radius: 1}
	cfg := integrators.DefaultConfig()
	cfg.Seed = 3

	integ, err := integrators.New(circle, mobility.LinearField(2, 1, 0.5, 0), nil,
		integrators.RFD, dynamo.State{1, 0}, cfg)
	require.NoError(t, err)

	sim := New(integ)
	result, err := sim.Run(context.Background(), Config{Dt: 0.01, Duration: 0.5, RecordEvery: 10, MaxHalvings: 4})
	require.NoError(t, err)

	assert.Equal(t, 50, result.StepsTaken)
	assert.Len(t, result.States, 6)
	for _, x := range result.States {
		assert.Less(t, dynamo.MaxAbs(circle.Residual(x)), 1e-9)
	}
	assert.InDelta(t, 0.5, integ.Time(), 1e-9)
}
