// Package mobility provides MobilityOperator implementations: constant
// matrices, isotropic scalar fields and the single-wall Rotne-Prager-Yamakawa
// mobility of blobs above a no-slip wall.
package mobility

import (
	"fmt"

	"github.com/san-kum/blobsim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// ConstantMobility returns the same matrix for every configuration.
type ConstantMobility struct {
	m   mat.Matrix
	err error
}

// Constant wraps a row-major matrix. Ragged rows are reported on every
// evaluation; a rectangular matrix is returned as is so the integrator can
// reject it.
func Constant(rows [][]float64) *ConstantMobility {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return &ConstantMobility{err: fmt.Errorf("empty mobility matrix: %w", dynamo.ErrConfiguration)}
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return &ConstantMobility{err: fmt.Errorf("mobility row %d has %d columns, row 0 has %d: %w", i, len(row), cols, dynamo.ErrConfiguration)}
		}
		data = append(data, row...)
	}
	return FromMatrix(mat.NewDense(len(rows), cols, data))
}

// FromMatrix wraps an existing gonum matrix. The matrix is not copied.
func FromMatrix(m mat.Matrix) *ConstantMobility {
	return &ConstantMobility{m: m}
}

// Isotropic returns m0 times the dim x dim identity.
func Isotropic(dim int, m0 float64) *ConstantMobility {
	d := mat.NewDiagDense(dim, nil)
	for i := 0; i < dim; i++ {
		d.SetDiag(i, m0)
	}
	return FromMatrix(d)
}

func (c *ConstantMobility) Mobility(dynamo.State) (mat.Matrix, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.m, nil
}

// ScalarField is the isotropic, position-dependent mobility m(x)·I.
type ScalarField struct {
	Dim int
	Fn  func(x dynamo.State) float64
}

// LinearField returns m(x) = m0 + slope·x[axis]. On the unit circle with
// |slope| < m0 it stays positive and produces a spurious drift for schemes
// that ignore ∇·M.
func LinearField(dim int, m0, slope float64, axis int) ScalarField {
	return ScalarField{
		Dim: dim,
		Fn: func(x dynamo.State) float64 {
			return m0 + slope*x[axis]
		},
	}
}

func (f ScalarField) Mobility(x dynamo.State) (mat.Matrix, error) {
	if len(x) != f.Dim {
		return nil, fmt.Errorf("scalar field of dim %d evaluated at %d coordinates: %w", f.Dim, len(x), dynamo.ErrDimension)
	}
	m := f.Fn(x)
	if m < 0 {
		return nil, fmt.Errorf("scalar mobility %g is negative at %v: %w", m, x, dynamo.ErrNumericalInstability)
	}
	d := mat.NewDiagDense(f.Dim, nil)
	for i := 0; i < f.Dim; i++ {
		d.SetDiag(i, m)
	}
	return d, nil
}
