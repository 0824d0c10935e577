// Package dynamo provides the core primitives shared by the constrained
// Brownian dynamics packages.
//
// The package defines the collaborator interfaces that the integrators
// consume and the sentinel errors they report:
//
//   - [State]: configuration vector (blob coordinates, possibly orientations)
//   - [MobilityOperator]: configuration -> dense mobility matrix
//   - [ForceCalculator]: configuration -> generalized force vector
//   - [SurfaceFunction]: configuration -> constraint residuals, zero on the manifold
//   - [RandomSource]: standard-normal samples
//
// # Example
//
//	circle := surface.Sphere{Center: []float64{0, 0}, Radius: 1}
//	mob := mobility.LinearField(2, 1.0, 0.5, 0)
//	integ, _ := integrators.New(circle, mob, nil, integrators.RFD, x0, integrators.DefaultConfig())
//	_ = integ.TimeStep(0.01)
//
// # Trust boundary
//
// Mobility matrices are expected to be symmetric positive semi-definite. This is
// not validated on every evaluation; providers are responsible for it.
package dynamo
