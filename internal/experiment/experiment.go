package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/blobsim/internal/config"
	"github.com/san-kum/blobsim/internal/dynamo"
	"github.com/san-kum/blobsim/internal/forces"
	"github.com/san-kum/blobsim/internal/integrators"
	"github.com/san-kum/blobsim/internal/sim"
	"go.uber.org/zap"
)

// Experiment binds a validated configuration to its surface, mobility and
// force collaborators. The collaborators are stateless and shared by every
// integrator the experiment builds.
type Experiment struct {
	cfg      *config.Config
	registry *Registry
	scheme   integrators.Scheme
	intCfg   integrators.Config
	surface  dynamo.SurfaceFunction
	mobility dynamo.MobilityOperator
	force    dynamo.ForceCalculator
	logger   *zap.Logger
}

func New(cfg *config.Config) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	scheme, err := integrators.ParseScheme(cfg.Scheme)
	if err != nil {
		return nil, err
	}
	variant, err := integrators.ParseVariant(cfg.RFDVariant)
	if err != nil {
		return nil, err
	}

	e := &Experiment{
		cfg:      cfg,
		registry: NewRegistry(),
		scheme:   scheme,
		logger:   zap.NewNop(),
	}

	e.intCfg = integrators.DefaultConfig()
	e.intCfg.KT = cfg.KT
	e.intCfg.Delta = cfg.Delta
	e.intCfg.Variant = variant
	e.intCfg.Tolerance = cfg.Tolerance
	e.intCfg.MaxIters = cfg.MaxIters
	e.intCfg.Seed = cfg.Seed

	x0 := dynamo.State(cfg.InitState)
	if e.surface, err = e.registry.GetSurface(cfg.Surface, x0); err != nil {
		return nil, fmt.Errorf("surface: %w", err)
	}
	if e.mobility, err = e.registry.GetMobility(cfg.Mobility, len(x0)); err != nil {
		return nil, fmt.Errorf("mobility: %w", err)
	}
	if e.force, err = e.registry.GetForce(cfg.Forces); err != nil {
		return nil, fmt.Errorf("forces: %w", err)
	}
	if k := cfg.Forces.Tether; k > 0 {
		e.force = forces.Sum{e.force, forces.Harmonic{K: k, Anchor: x0.Clone()}}
	}
	return e, nil
}

func (e *Experiment) SetLogger(l *zap.Logger) {
	if l != nil {
		e.logger = l
	}
}

// NewIntegrator builds an independent integrator starting from the
// configured initial state with the given seed.
func (e *Experiment) NewIntegrator(seed int64) (*integrators.Constrained, error) {
	cfg := e.intCfg
	cfg.Seed = seed
	return integrators.New(e.surface, e.mobility, e.force, e.scheme, dynamo.State(e.cfg.InitState).Clone(), cfg)
}

func (e *Experiment) SimConfig() sim.Config {
	return sim.Config{
		Dt:          e.cfg.Dt,
		Duration:    e.cfg.Duration,
		RecordEvery: e.cfg.RecordEvery,
		MaxHalvings: e.cfg.MaxHalvings,
	}
}

// Run simulates a single replica seeded with the configured seed.
func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	integ, err := e.NewIntegrator(e.cfg.Seed)
	if err != nil {
		return nil, err
	}

	s := sim.New(integ)
	s.SetLogger(e.logger.With(zap.String("scheme", e.scheme.String()), zap.Int64("seed", e.cfg.Seed)))
	for _, m := range e.registry.DefaultMetrics(e.cfg, e.surface) {
		s.AddMetric(m)
	}
	s.AddObserver(newProgressLogger(e.logger, e.cfg.Duration, progressMarks))
	return s.Run(ctx, e.SimConfig())
}

// RunEnsemble simulates cfg.Replicas replicas seeded Seed, Seed+1, ...
func (e *Experiment) RunEnsemble(ctx context.Context) ([]*sim.Result, error) {
	factory := func(seed int64) (sim.Stepper, error) {
		return e.NewIntegrator(seed)
	}
	ens := sim.NewEnsemble(factory, e.cfg.Replicas, e.cfg.Seed)
	ens.SetLogger(e.logger)
	ens.SetMetrics(func() []sim.Metric {
		return e.registry.DefaultMetrics(e.cfg, e.surface)
	})

	e.logger.Info("ensemble starting",
		zap.Int("replicas", e.cfg.Replicas),
		zap.String("scheme", e.scheme.String()),
		zap.Float64("dt", e.cfg.Dt))
	return ens.Run(ctx, e.SimConfig())
}

func (e *Experiment) Config() *config.Config            { return e.cfg }
func (e *Experiment) Scheme() integrators.Scheme        { return e.scheme }
func (e *Experiment) Surface() dynamo.SurfaceFunction   { return e.surface }
func (e *Experiment) Mobility() dynamo.MobilityOperator { return e.mobility }
func (e *Experiment) Force() dynamo.ForceCalculator     { return e.force }
