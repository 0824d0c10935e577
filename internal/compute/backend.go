package compute

import (
	"fmt"
	"sort"

	"github.com/san-kum/blobsim/internal/dynamo"
)

// PairFunc returns the force on blob i given r = r_j - r_i.
type PairFunc func(r [3]float64) [3]float64

type Backend interface {
	Name() string
	Available() bool
	// PairForces sums fn over all blob pairs of flattened 3-D positions and
	// returns the flattened per-blob forces.
	PairForces(positions []float64, fn PairFunc) []float64
	Cleanup()
}

var backends = map[string]func() Backend{
	"serial":   func() Backend { return NewSerialBackend() },
	"parallel": func() Backend { return NewCPUBackend() },
}

var activeBackend Backend = NewCPUBackend()

func SetBackend(b Backend) {
	if activeBackend != nil {
		activeBackend.Cleanup()
	}
	activeBackend = b
}

func GetBackend() Backend {
	return activeBackend
}

// ByName returns a fresh backend registered under name.
func ByName(name string) (Backend, error) {
	fn, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown compute backend %q (available: %v): %w", name, Names(), dynamo.ErrConfiguration)
	}
	b := fn()
	if !b.Available() {
		return nil, fmt.Errorf("compute backend %q not available on this machine: %w", name, dynamo.ErrConfiguration)
	}
	return b, nil
}

func Names() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
