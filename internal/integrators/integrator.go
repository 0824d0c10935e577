package integrators

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/blobsim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// stepper produces the next on-surface configuration without committing it.
type stepper interface {
	step(c *Constrained, dt float64) (dynamo.State, error)
}

// Constrained advances a configuration under Brownian dynamics while keeping
// it on the zero set of a surface function.
//
// A Constrained is not safe for concurrent use. Parallel replicas must each
// own an instance (and therefore a random stream).
type Constrained struct {
	surface   dynamo.SurfaceFunction
	mobility  dynamo.MobilityOperator
	force     dynamo.ForceCalculator
	scheme    Scheme
	stepper   stepper
	projector *Projector
	cfg       Config
	rng       dynamo.RandomSource

	dim   int
	x     dynamo.State
	mob   *mat.Dense
	t     float64
	steps int
}

// New builds an integrator for the given surface and mobility. x0 is projected
// onto the surface; the mobility must be square with one row per coordinate.
// A nil force calculator means zero deterministic force.
func New(surface dynamo.SurfaceFunction, mobility dynamo.MobilityOperator, force dynamo.ForceCalculator,
	scheme Scheme, x0 dynamo.State, cfg Config) (*Constrained, error) {
	if surface == nil {
		return nil, fmt.Errorf("surface function is nil: %w", dynamo.ErrConfiguration)
	}
	if mobility == nil {
		return nil, fmt.Errorf("mobility operator is nil: %w", dynamo.ErrConfiguration)
	}
	if !scheme.Valid() {
		return nil, fmt.Errorf("unrecognized scheme %v (only RFD and EULER are implemented): %w", scheme, dynamo.ErrConfiguration)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(x0) == 0 {
		return nil, fmt.Errorf("empty initial configuration: %w", dynamo.ErrConfiguration)
	}
	if !x0.IsValid() {
		return nil, fmt.Errorf("initial configuration: %w", errors.Join(dynamo.ErrConfiguration, dynamo.ErrInvalidState))
	}

	m, err := mobility.Mobility(x0)
	if err != nil {
		return nil, fmt.Errorf("initial mobility: %w", errors.Join(dynamo.ErrConfiguration, err))
	}
	rows, cols := m.Dims()
	if rows != cols {
		return nil, fmt.Errorf("mobility matrix must be square, got %dx%d: %w", rows, cols, dynamo.ErrConfiguration)
	}
	if rows != len(x0) {
		return nil, fmt.Errorf("mobility is %dx%d but configuration has %d coordinates: %w", rows, cols, len(x0), dynamo.ErrConfiguration)
	}

	c := &Constrained{
		surface:   surface,
		mobility:  mobility,
		force:     force,
		scheme:    scheme,
		projector: NewProjector(surface, cfg),
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		dim:       rows,
	}

	switch scheme {
	case Euler:
		c.stepper = eulerStep{}
	case RFD:
		c.stepper = rfdStep{variant: cfg.Variant}
	}

	x, iters, err := c.projector.Project(x0)
	if err != nil {
		return nil, fmt.Errorf("initial configuration: %w", errors.Join(dynamo.ErrConfiguration, err))
	}
	c.x = x
	if iters == 0 {
		c.mob = mat.DenseCopyOf(m)
	} else if c.mob, err = c.mobilityAt(x); err != nil {
		return nil, fmt.Errorf("projected initial mobility: %w", errors.Join(dynamo.ErrConfiguration, err))
	}

	return c, nil
}

// SetRandomSource replaces the per-instance random stream. A nil source
// restores a stream seeded from Config.Seed.
func (c *Constrained) SetRandomSource(rng dynamo.RandomSource) {
	if rng == nil {
		rng = rand.New(rand.NewSource(c.cfg.Seed))
	}
	c.rng = rng
}

// TimeStep advances the configuration by dt. On error the configuration,
// mobility and clock are left exactly as they were.
func (c *Constrained) TimeStep(dt float64) error {
	if !(dt > 0) || math.IsInf(dt, 1) {
		return c.stepError(dt, fmt.Errorf("time step must be positive and finite, got %g: %w", dt, dynamo.ErrInvalidArgument))
	}

	xNew, err := c.stepper.step(c, dt)
	if err != nil {
		return c.stepError(dt, err)
	}

	mNew, err := c.mobilityAt(xNew)
	if err != nil {
		return c.stepError(dt, err)
	}

	c.x = xNew
	c.mob = mNew
	c.t += dt
	c.steps++
	return nil
}

// ApplyMobility returns M(x)·force for the current configuration.
func (c *Constrained) ApplyMobility(force dynamo.State) (dynamo.State, error) {
	if len(force) != c.dim {
		return nil, fmt.Errorf("force has %d entries, mobility is %dx%d: %w", len(force), c.dim, c.dim, dynamo.ErrDimension)
	}
	return mulVec(c.mob, force), nil
}

func (c *Constrained) State() dynamo.State { return c.x.Clone() }
func (c *Constrained) Time() float64       { return c.t }
func (c *Constrained) Steps() int          { return c.steps }
func (c *Constrained) Dim() int            { return c.dim }
func (c *Constrained) Scheme() Scheme      { return c.scheme }
func (c *Constrained) Config() Config      { return c.cfg }

// Mobility returns a copy of the mobility at the current configuration.
func (c *Constrained) Mobility() *mat.Dense { return mat.DenseCopyOf(c.mob) }

// Residual evaluates the surface function at the current configuration.
func (c *Constrained) Residual() []float64 { return c.surface.Residual(c.x) }

func (c *Constrained) stepError(dt float64, err error) error {
	return &dynamo.StepError{Step: c.steps, Time: c.t, Dt: dt, Scheme: c.scheme.String(), Wrapped: err}
}

func (c *Constrained) mobilityAt(x dynamo.State) (*mat.Dense, error) {
	m, err := c.mobility.Mobility(x)
	if err != nil {
		return nil, fmt.Errorf("mobility: %w", err)
	}
	rows, cols := m.Dims()
	if rows != c.dim || cols != c.dim {
		return nil, fmt.Errorf("mobility is %dx%d, want %dx%d: %w", rows, cols, c.dim, c.dim, dynamo.ErrDimension)
	}
	return mat.DenseCopyOf(m), nil
}

// velocity returns M·F(x).
func (c *Constrained) velocity(x dynamo.State, m mat.Matrix) (dynamo.State, error) {
	if c.force == nil {
		return make(dynamo.State, c.dim), nil
	}
	f, err := c.force.Force(x)
	if err != nil {
		return nil, fmt.Errorf("force: %w", err)
	}
	if len(f) != c.dim {
		return nil, fmt.Errorf("force has %d entries, want %d: %w", len(f), c.dim, dynamo.ErrDimension)
	}
	if !f.IsValid() {
		return nil, fmt.Errorf("force: %w", errors.Join(dynamo.ErrNumericalInstability, dynamo.ErrInvalidState))
	}
	return mulVec(m, f), nil
}

// addNoise adds sqrt(2·kT·dt)·B·ξ with B·Bᵀ = m to x in place. No random
// numbers are drawn when kT is zero.
func (c *Constrained) addNoise(x dynamo.State, m mat.Matrix, dt float64) error {
	if c.cfg.KT == 0 {
		return nil
	}
	b, err := sqrtFactor(m)
	if err != nil {
		return err
	}
	noise := mulVec(b, normals(c.rng, c.dim))
	scale := math.Sqrt(2 * c.cfg.KT * dt)
	for i := range x {
		x[i] += scale * noise[i]
	}
	return nil
}

func (c *Constrained) project(trial dynamo.State) (dynamo.State, error) {
	if !trial.IsValid() {
		return nil, fmt.Errorf("trial configuration: %w", errors.Join(dynamo.ErrNumericalInstability, dynamo.ErrInvalidState))
	}
	x, _, err := c.projector.Project(trial)
	return x, err
}
