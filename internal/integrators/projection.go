package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/blobsim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Projector maps off-manifold points back onto the zero set of a surface by
// Gauss-Newton corrections along the constraint gradient:
//
//	(J Jᵀ) λ = g(x),  x ← x − Jᵀ λ
//
// J comes from the surface when it implements dynamo.SurfaceGradient and
// from central finite differences otherwise.
type Projector struct {
	Surface   dynamo.SurfaceFunction
	Tolerance float64
	MaxIters  int
	FDStep    float64
}

func NewProjector(surface dynamo.SurfaceFunction, cfg Config) *Projector {
	return &Projector{
		Surface:   surface,
		Tolerance: cfg.Tolerance,
		MaxIters:  cfg.MaxIters,
		FDStep:    cfg.FDStep,
	}
}

// Project returns the corrected point and the number of corrections applied.
// x is not modified.
func (p *Projector) Project(x dynamo.State) (dynamo.State, int, error) {
	y := x.Clone()
	n := len(y)

	for iter := 0; ; iter++ {
		g := p.Surface.Residual(y)
		res := dynamo.MaxAbs(g)
		if res < p.Tolerance {
			return y, iter, nil
		}
		if math.IsNaN(res) || math.IsInf(res, 0) {
			return nil, iter, fmt.Errorf("non-finite residual after %d corrections: %w", iter, dynamo.ErrProjection)
		}
		if iter >= p.MaxIters {
			return nil, iter, fmt.Errorf("residual %.3g above tolerance %.3g after %d corrections: %w",
				res, p.Tolerance, iter, dynamo.ErrProjection)
		}

		k := len(g)
		jac, err := p.jacobian(y, k)
		if err != nil {
			return nil, iter, err
		}

		var jjt mat.SymDense
		jjt.SymOuterK(1, jac)

		var lambda mat.VecDense
		if err := lambda.SolveVec(&jjt, mat.NewVecDense(k, g)); err != nil {
			return nil, iter, fmt.Errorf("constraint gradient is singular (%v): %w", err, dynamo.ErrProjection)
		}

		var corr mat.VecDense
		corr.MulVec(jac.T(), &lambda)
		for i := 0; i < n; i++ {
			y[i] -= corr.AtVec(i)
		}
	}
}

func (p *Projector) jacobian(x dynamo.State, k int) (*mat.Dense, error) {
	n := len(x)

	if sg, ok := p.Surface.(dynamo.SurfaceGradient); ok {
		rows := sg.Gradient(x)
		if len(rows) != k {
			return nil, fmt.Errorf("surface gradient has %d rows for %d residuals: %w", len(rows), k, dynamo.ErrDimension)
		}
		jac := mat.NewDense(k, n, nil)
		for r, row := range rows {
			if len(row) != n {
				return nil, fmt.Errorf("surface gradient row %d has %d entries, want %d: %w", r, len(row), n, dynamo.ErrDimension)
			}
			jac.SetRow(r, row)
		}
		return jac, nil
	}

	jac := mat.NewDense(k, n, nil)
	shifted := x.Clone()
	for i := 0; i < n; i++ {
		h := p.FDStep * math.Max(1, math.Abs(x[i]))

		shifted[i] = x[i] + h
		gp := p.Surface.Residual(shifted)
		hi := shifted[i]
		shifted[i] = x[i] - h
		gm := p.Surface.Residual(shifted)
		lo := shifted[i]
		shifted[i] = x[i]

		if len(gp) != k || len(gm) != k {
			return nil, fmt.Errorf("surface residual length changed from %d: %w", k, dynamo.ErrDimension)
		}
		width := hi - lo
		for r := 0; r < k; r++ {
			jac.Set(r, i, (gp[r]-gm[r])/width)
		}
	}
	return jac, nil
}
