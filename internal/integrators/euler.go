package integrators

import "github.com/san-kum/blobsim/internal/dynamo"

// eulerStep is the projected Euler-Maruyama scheme:
//
//	x* = x + M·F·dt + sqrt(2·kT·dt)·B·ξ,  x' = P(x*)
type eulerStep struct{}

func (eulerStep) step(c *Constrained, dt float64) (dynamo.State, error) {
	x := c.x

	v, err := c.velocity(x, c.mob)
	if err != nil {
		return nil, err
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
