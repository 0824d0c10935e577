// Package forces provides ForceCalculator implementations. Blob force fields
// are selected by backend name once at startup.
package forces

import (
	"fmt"
	"sort"

	"github.com/san-kum/blobsim/internal/compute"
	"github.com/san-kum/blobsim/internal/dynamo"
)

// Params configures the blob force field.
type Params struct {
	BlobMass   float64 `yaml:"blob_mass"`
	BlobRadius float64 `yaml:"blob_radius"`
	G          float64 `yaml:"g"`
	// Wall repulsion: eps_w·((h-a)/b_w + 1)·exp(-(h-a)/b_w)/(h-a)².
	RepulsionStrengthWall float64 `yaml:"repulsion_strength_wall"`
	DebyeLengthWall       float64 `yaml:"debye_length_wall"`
	// Blob-blob Yukawa repulsion with potential eps·exp(-r/b)/r.
	RepulsionStrength float64 `yaml:"repulsion_strength"`
	DebyeLength       float64 `yaml:"debye_length"`
}

func DefaultParams() Params {
	return Params{
		BlobMass:              1.0,
		BlobRadius:            0.5,
		G:                     1.0,
		RepulsionStrengthWall: 1.0,
		DebyeLengthWall:       0.5,
		RepulsionStrength:     1.0,
		DebyeLength:           0.5,
	}
}

// New returns the force calculator registered under name: "none" for zero
// force, or a compute backend name ("serial", "parallel") for the blob force
// field evaluated on that backend.
func New(name string, p Params) (dynamo.ForceCalculator, error) {
	if name == "" || name == "none" {
		return Zero{}, nil
	}
	backend, err := compute.ByName(name)
	if err != nil {
		return nil, fmt.Errorf("force backend: %w", err)
	}
	return NewBlobField(p, backend)
}

// Names lists the accepted backend names.
func Names() []string {
	names := append([]string{"none"}, compute.Names()...)
	sort.Strings(names)
	return names
}

// Zero is the force-free calculator.
type Zero struct{}

func (Zero) Force(x dynamo.State) (dynamo.State, error) {
	return make(dynamo.State, len(x)), nil
}

// Harmonic tethers every coordinate to Anchor with stiffness K.
type Harmonic struct {
	K      float64
	Anchor dynamo.State
}

func (h Harmonic) Force(x dynamo.State) (dynamo.State, error) {
	if len(h.Anchor) != len(x) {
		return nil, fmt.Errorf("harmonic anchor has %d coordinates, configuration %d: %w", len(h.Anchor), len(x), dynamo.ErrDimension)
	}
	f := make(dynamo.State, len(x))
	for i := range x {
		f[i] = -h.K * (x[i] - h.Anchor[i])
	}
	return f, nil
}

// Sum adds the forces of several calculators.
type Sum []dynamo.ForceCalculator

func (s Sum) Force(x dynamo.State) (dynamo.State, error) {
	total := make(dynamo.State, len(x))
	for _, fc := range s {
		f, err := fc.Force(x)
		if err != nil {
			return nil, err
		}
		if len(f) != len(x) {
			return nil, fmt.Errorf("force term has %d entries, want %d: %w", len(f), len(x), dynamo.ErrDimension)
		}
		for i := range total {
			total[i] += f[i]
		}
	}
	return total, nil
}
