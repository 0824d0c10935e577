package integrators

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/blobsim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// maxPerturbationError is the largest relative deviation between the realized
// perturbation x₊ − x₋ and δ·W before the difference quotient is rejected.
const maxPerturbationError = 0.5

// rfdStep is the projected Euler-Maruyama scheme with the stochastic drift
// kT·∇·M estimated by a random finite difference:
//
//	D  = (kT/δ)·(M(x₊) − M(x₋))·W,  W ~ N(0, I)
//	x* = x + (M·F + D)·dt + sqrt(2·kT·dt)·B·ξ,  x' = P(x*)
//
// E[D] = kT·∇·M, which restores the Gibbs-Boltzmann distribution on the
// surface when the mobility depends on position.
type rfdStep struct {
	variant RFDVariant
}

func (s rfdStep) step(c *Constrained, dt float64) (dynamo.State, error) {
	x := c.x

	v, err := c.velocity(x, c.mob)
	if err != nil {
		return nil, err
	}

	if c.cfg.KT > 0 {
		d, err := s.drift(c, x)
		if err != nil {
			return nil, err
		}
		for i := range v {
			v[i] += d[i]
		}
	}

	trial := make(dynamo.State, len(x))
	for i := range x {
		trial[i] = x[i] + dt*v[i]
	}
	if err := c.addNoise(trial, c.mob, dt); err != nil {
		return nil, err
	}

	return c.project(trial)
}

func (s rfdStep) drift(c *Constrained, x dynamo.State) (dynamo.State, error) {
	n := len(x)
	delta := c.cfg.Delta
	w := normals(c.rng, n)

	plus := make(dynamo.State, n)
	minus := make(dynamo.State, n)
	switch s.variant {
	case Forward:
		for i := range x {
			plus[i] = x[i] + delta*w[i]
			minus[i] = x[i]
		}
	default:
		for i := range x {
			plus[i] = x[i] + 0.5*delta*w[i]
			minus[i] = x[i] - 0.5*delta*w[i]
		}
	}

	if err := checkPerturbation(plus, minus, w, delta); err != nil {
		return nil, err
	}

	mPlus, err := c.mobilityAt(plus)
	if err != nil {
		return nil, fmt.Errorf("rfd mobility at x+: %w", err)
	}
	var mMinus mat.Matrix = c.mob
	if s.variant != Forward {
		if mMinus, err = c.mobilityAt(minus); err != nil {
			return nil, fmt.Errorf("rfd mobility at x-: %w", err)
		}
	}

	up := mulVec(mPlus, w)
	down := mulVec(mMinus, w)
	scale := c.cfg.KT / delta
	d := make(dynamo.State, n)
	for i := range d {
		d[i] = scale * (up[i] - down[i])
	}

	if !d.IsValid() {
		return nil, fmt.Errorf("rfd drift: %w", errors.Join(dynamo.ErrNumericalInstability, dynamo.ErrInvalidState))
	}
	return d, nil
}

// checkPerturbation rejects a stencil whose realized width lost precision
// against the magnitude of x, which happens when δ underflows.
func checkPerturbation(plus, minus, w dynamo.State, delta float64) error {
	var wantSq, errSq float64
	for i := range w {
		want := delta * w[i]
		got := plus[i] - minus[i]
		wantSq += want * want
		errSq += (got - want) * (got - want)
	}
	if wantSq == 0 || math.IsInf(wantSq, 0) || math.IsNaN(wantSq) {
		return fmt.Errorf("rfd perturbation δ=%g vanished: %w", delta, dynamo.ErrNumericalInstability)
	}
	if rel := math.Sqrt(errSq / wantSq); rel > maxPerturbationError {
		return fmt.Errorf("rfd perturbation δ=%g lost precision (relative error %.2g): %w", delta, rel, dynamo.ErrNumericalInstability)
	}
	return nil
}
