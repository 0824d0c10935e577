// Package compute provides interchangeable backends for pairwise blob
// interactions.
//
// Backends are chosen by name once at startup:
//
//   - serial: single goroutine, each pair visited once
//   - parallel: rows of the interaction matrix fanned out over all CPUs
//
// # Example
//
//	backend, _ := compute.ByName("parallel")
//	forces := backend.PairForces(positions, func(r [3]float64) [3]float64 { ... })
//
// Pair functions must be odd, f(-r) = -f(r), which holds for central forces.
// The parallel backend relies on it to avoid write sharing between workers.
package compute
