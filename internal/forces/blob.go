package forces

import (
	"fmt"
	"math"

	"github.com/san-kum/blobsim/internal/compute"
	"github.com/san-kum/blobsim/internal/dynamo"
)

// BlobField is gravity plus wall repulsion on every blob and Yukawa
// repulsion between blob pairs. Configurations are flattened 3-D blob
// positions with the wall at z = 0.
type BlobField struct {
	params  Params
	backend compute.Backend
}

func NewBlobField(p Params, backend compute.Backend) (*BlobField, error) {
	if !(p.BlobRadius > 0) {
		return nil, fmt.Errorf("blob radius must be positive, got %g: %w", p.BlobRadius, dynamo.ErrConfiguration)
	}
	if p.RepulsionStrengthWall != 0 && !(p.DebyeLengthWall > 0) {
		return nil, fmt.Errorf("wall debye length must be positive, got %g: %w", p.DebyeLengthWall, dynamo.ErrConfiguration)
	}
	if p.RepulsionStrength != 0 && !(p.DebyeLength > 0) {
		return nil, fmt.Errorf("debye length must be positive, got %g: %w", p.DebyeLength, dynamo.ErrConfiguration)
	}
	if backend == nil {
		backend = compute.GetBackend()
	}
	return &BlobField{params: p, backend: backend}, nil
}

func (b *BlobField) Backend() string { return b.backend.Name() }

func (b *BlobField) Force(x dynamo.State) (dynamo.State, error) {
	if len(x)%3 != 0 {
		return nil, fmt.Errorf("blob force field needs 3 coordinates per blob, got %d: %w", len(x), dynamo.ErrDimension)
	}

	f := make(dynamo.State, len(x))
	for i := 0; i < len(x)/3; i++ {
		fz, err := b.externalZ(x[3*i+2])
		if err != nil {
			return nil, fmt.Errorf("blob %d: %w", i, err)
		}
		f[3*i+2] = fz
	}

	if b.params.RepulsionStrength != 0 && len(x) > 3 {
		pair := b.backend.PairForces(x, b.yukawa)
		for i := range f {
			f[i] += pair[i]
		}
	}

	if !f.IsValid() {
		return nil, fmt.Errorf("blob forces: %w", dynamo.ErrNumericalInstability)
	}
	return f, nil
}

// externalZ is the vertical one-blob force: gravity and wall repulsion.
func (b *BlobField) externalZ(h float64) (float64, error) {
	p := b.params
	fz := -p.G * p.BlobMass

	if p.RepulsionStrengthWall != 0 {
		gap := h - p.BlobRadius
		if gap <= 0 {
			return 0, fmt.Errorf("blob overlaps the wall (h=%g, a=%g): %w", h, p.BlobRadius, dynamo.ErrNumericalInstability)
		}
		fz += p.RepulsionStrengthWall * (gap/p.DebyeLengthWall + 1.0) * math.Exp(-gap/p.DebyeLengthWall) / (gap * gap)
	}
	return fz, nil
}

func (b *BlobField) yukawa(r [3]float64) [3]float64 {
	eps, debye := b.params.RepulsionStrength, b.params.DebyeLength
	norm := math.Sqrt(r[0]*r[0] + r[1]*r[1] + r[2]*r[2])
	s := -((eps / debye) + (eps / norm)) * math.Exp(-norm/debye) / (norm * norm)
	return [3]float64{s * r[0], s * r[1], s * r[2]}
}
