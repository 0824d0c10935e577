package integrators

import (
	"fmt"
	"strings"

	"github.com/san-kum/blobsim/internal/dynamo"
)

// Scheme selects the stepping algorithm of a Constrained integrator.
type Scheme int

const (
	// Euler takes an unconstrained Euler-Maruyama step and projects it back
	// onto the surface. It carries an O(dt) bias for position-dependent
	// mobilities.
	Euler Scheme = iota + 1
	// RFD adds the kT·∇·M drift estimated by a random finite difference of
	// the mobility before projecting.
	RFD
)

func (s Scheme) String() string {
	switch s {
	case Euler:
		return "EULER"
	case RFD:
		return "RFD"
	default:
		return fmt.Sprintf("Scheme(%d)", int(s))
	}
}

func (s Scheme) Valid() bool {
	return s == Euler || s == RFD
}

// ParseScheme accepts "EULER" or "RFD" in any case.
func ParseScheme(name string) (Scheme, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "EULER":
		return Euler, nil
	case "RFD":
		return RFD, nil
	}
	return 0, fmt.Errorf("unknown scheme %q (only RFD and EULER are implemented): %w", name, dynamo.ErrConfiguration)
}

// RFDVariant chooses the finite-difference stencil of the RFD drift.
type RFDVariant int

const (
	// Central evaluates M at x ± δW/2.
	Central RFDVariant = iota
	// Forward evaluates M at x + δW and reuses M(x).
	Forward
)

func (v RFDVariant) String() string {
	if v == Forward {
		return "forward"
	}
	return "central"
}

func ParseVariant(name string) (RFDVariant, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "central":
		return Central, nil
	case "forward":
		return Forward, nil
	}
	return 0, fmt.Errorf("unknown rfd variant %q: %w", name, dynamo.ErrConfiguration)
}
