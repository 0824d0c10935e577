package compute

import (
	"runtime"

	"github.com/san-kum/blobsim/internal/dynamo"
)

// minParallelBlobs is the size below which the parallel backend falls back
// to the serial loop.
const minParallelBlobs = 16

type CPUBackend struct {
	name    string
	workers int
}

func NewCPUBackend() *CPUBackend {
	return &CPUBackend{
		name:    "parallel",
		workers: runtime.NumCPU(),
	}
}

func NewSerialBackend() *CPUBackend {
	return &CPUBackend{name: "serial", workers: 1}
}

func (c *CPUBackend) Name() string { return c.name }

func (c *CPUBackend) Available() bool { return true }
func (c *CPUBackend) Cleanup()        {}

func (c *CPUBackend) PairForces(positions []float64, fn PairFunc) []float64 {
	n := len(positions) / 3
	forces := make([]float64, 3*n)

	if c.workers <= 1 || n < minParallelBlobs {
		c.pairSerial(positions, fn, forces)
		return forces
	}

	c.pairParallel(positions, fn, forces)
	return forces
}

func (c *CPUBackend) pairSerial(pos []float64, fn PairFunc, forces []float64) {
	n := len(forces) / 3

	for i := 0; i < n-1; i++ {
		for j := i + 1; j < n; j++ {
			r := [3]float64{pos[3*j] - pos[3*i], pos[3*j+1] - pos[3*i+1], pos[3*j+2] - pos[3*i+2]}
			f := fn(r)
			for k := 0; k < 3; k++ {
				forces[3*i+k] += f[k]
				forces[3*j+k] -= f[k]
			}
		}
	}
}

// pairParallel gives each worker whole rows, so every worker only writes the
// forces of its own blobs.
func (c *CPUBackend) pairParallel(pos []float64, fn PairFunc, forces []float64) {
	n := len(forces) / 3
	minChunk := (n + c.workers - 1) / c.workers

	dynamo.ParallelFor(n, minChunk, func(start, end int) {
		for i := start; i < end; i++ {
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				r := [3]float64{pos[3*j] - pos[3*i], pos[3*j+1] - pos[3*i+1], pos[3*j+2] - pos[3*i+2]}
				f := fn(r)
				for k := 0; k < 3; k++ {
					forces[3*i+k] += f[k]
				}
			}
		}
	})
}
