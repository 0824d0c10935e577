package experiment

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/blobsim/internal/config"
	"github.com/san-kum/blobsim/internal/dynamo"
	"github.com/san-kum/blobsim/internal/integrators"
	"github.com/san-kum/blobsim/internal/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, []string{"cluster", "plane", "sphere"}, r.ListSurfaces())
	assert.Equal(t, []string{"constant", "field", "wall"}, r.ListMobilities())
	assert.Contains(t, r.ListForces(), "none")

	_, err := r.GetSurface(config.SurfaceConfig{Kind: "torus"}, nil)
	assert.True(t, errors.Is(err, dynamo.ErrConfiguration))
	_, err = r.GetSurface(config.SurfaceConfig{Kind: "sphere"}, nil)
	assert.True(t, errors.Is(err, dynamo.ErrConfiguration))
	_, err = r.GetMobility(config.MobilityConfig{Kind: "stokes"}, 2)
	assert.True(t, errors.Is(err, dynamo.ErrConfiguration))
	_, err = r.GetMobility(config.MobilityConfig{Kind: "field", M0: 1, Axis: 2}, 2)
	assert.True(t, errors.Is(err, dynamo.ErrConfiguration))

	s, err := r.GetSurface(config.SurfaceConfig{Kind: "Sphere", Radius: 1, Stride: 3}, nil)
	require.NoError(t, err)
	assert.Len(t, s.Residual(dynamo.State{1, 0, 0, 0, 1, 0}), 2)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scheme = "FOO"
	_, err := New(cfg)
	assert.True(t, errors.Is(err, dynamo.ErrConfiguration))
}

func TestNewIntegratorIsIndependentPerSeed(t *testing.T) {
	e, err := New(config.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, integrators.RFD, e.Scheme())

	a, err := e.NewIntegrator(1)
	require.NoError(t, err)
	b, err := e.NewIntegrator(1)
	require.NoError(t, err)
	c, err := e.NewIntegrator(2)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		require.NoError(t, a.TimeStep(0.01))
		require.NoError(t, b.TimeStep(0.01))
		require.NoError(t, c.TimeStep(0.01))
	}
	assert.Equal(t, a.State(), b.State())
	assert.NotEqual(t, a.State(), c.State())
}

func TestRunCircle(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Duration = 0.5
	cfg.RecordEvery = 5

	e, err := New(cfg)
	require.NoError(t, err)

	result, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 50, result.StepsTaken)
	assert.Len(t, result.States, 11)
	assert.Less(t, result.Metrics["max_residual"], 1e-9)
	assert.Contains(t, result.Metrics, "mean_cos")
}

func TestRunWallCluster(t *testing.T) {
	cfg := config.WallConfig()
	cfg.Duration = 0.1

	e, err := New(cfg)
	require.NoError(t, err)

	result, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, result.StepsTaken)
	assert.Less(t, result.Metrics["max_residual"], 1e-9)
	assert.Equal(t, 1.0, result.Metrics["wall_clearance"])
	require.Contains(t, result.Metrics, "min_height")
	assert.Greater(t, result.Metrics["min_height"], cfg.Mobility.Radius)

	x := result.Final()
	require.Len(t, x, 9)
	for k := 2; k < 9; k += 3 {
		assert.Greater(t, x[k], cfg.Mobility.Radius)
	}
}

func TestRunEnsemble(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := config.DefaultConfig()
	cfg.Duration = 0.2
	cfg.Replicas = 6
	cfg.RecordEvery = 10

	e, err := New(cfg)
	require.NoError(t, err)

	results, err := e.RunEnsemble(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 6)
	for _, r := range results {
		assert.Equal(t, 20, r.StepsTaken)
	}
	assert.NotEqual(t, results[0].Final(), results[1].Final())
}

func TestBias(t *testing.T) {
	results := []*sim.Result{
		{
			States: []dynamo.State{{1, 0}, {0, 1}, {-1, 0}},
			Times:  []float64{0, 1, 2},
		},
		{
			States: []dynamo.State{{1, 0}, {0, -1}, {1, 0}},
			Times:  []float64{0, 1, 2},
		},
		nil,
	}

	report, err := Bias(results, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Samples)
	assert.InDelta(t, 0, report.MeanCos.Mean, 1e-12)
	assert.InDelta(t, 4, sum(report.Counts), 1e-12)

	_, err = Bias(results, 5, 4)
	assert.True(t, errors.Is(err, dynamo.ErrInvalidArgument))
}

func TestBiasDistinguishesSchemes(t *testing.T) {
	if testing.Short() {
		t.Skip("statistical ensemble")
	}

	measure := func(scheme string) float64 {
		cfg := config.DefaultConfig()
		cfg.Scheme = scheme
		cfg.Replicas = 300
		cfg.Duration = 5
		cfg.RecordEvery = 100

		e, err := New(cfg)
		require.NoError(t, err)
		results, err := e.RunEnsemble(context.Background())
		require.NoError(t, err)

		report, err := Bias(results, 2, 12)
		require.NoError(t, err)
		return report.MeanCos.Mean
	}

	rfd := measure("RFD")
	euler := measure("EULER")
	assert.Less(t, math.Abs(rfd), 0.08, "RFD samples the uniform distribution")
	assert.Less(t, euler, -0.15, "Euler drifts toward low mobility")
}

func sum(v []float64) float64 {
	total := 0.0
	for _, x := range v {
		total += x
	}
	return total
}

func TestTetherForce(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Forces.Tether = 2

	e, err := New(cfg)
	require.NoError(t, err)

	f, err := e.Force().Force(dynamo.State{0, 1})
	require.NoError(t, err)
	// init_state is (1, 0)
	assert.InDeltaSlice(t, []float64{2, -2}, f, 1e-12)

	cfg.Forces.Tether = -1
	_, err = New(cfg)
	assert.True(t, errors.Is(err, dynamo.ErrConfiguration))
}

func TestProgressLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p := newProgressLogger(zap.New(core), 1.0, 10)

	for _, tm := range []float64{0.05, 0.25, 0.5, 0.75, 1.0, 1.0} {
		p.OnStep(nil, tm)
	}

	entries := logs.FilterMessage("progress").All()
	require.Len(t, entries, 4)
	percents := make([]int64, len(entries))
	for i, e := range entries {
		percents[i] = e.ContextMap()["percent"].(int64)
	}
	assert.Equal(t, []int64{20, 50, 70, 100}, percents)
}

func TestRunLogsProgress(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	cfg := config.DefaultConfig()
	cfg.Duration = 0.5
	e, err := New(cfg)
	require.NoError(t, err)
	e.SetLogger(zap.New(core))

	_, err = e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, progressMarks, logs.FilterMessage("progress").Len())
	assert.Equal(t, 1, logs.FilterMessage("run complete").Len())
}
