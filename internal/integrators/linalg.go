package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/blobsim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// eigenClampTol is the relative size below which negative eigenvalues of a
// mobility are treated as roundoff and clamped to zero.
const eigenClampTol = 1e-10

func mulVec(m mat.Matrix, v []float64) dynamo.State {
	r, _ := m.Dims()
	out := make(dynamo.State, r)
	dst := mat.NewVecDense(r, out)
	dst.MulVec(m, mat.NewVecDense(len(v), v))
	return out
}

func symmetrize(m mat.Matrix) *mat.SymDense {
	n, _ := m.Dims()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}
	return s
}

// sqrtFactor returns B with B·Bᵀ equal to the symmetric part of m. Cholesky
// is tried first; semi-definite mobilities fall back to V·sqrt(Λ) from a
// symmetric eigendecomposition.
func sqrtFactor(m mat.Matrix) (mat.Matrix, error) {
	sym := symmetrize(m)
	n := sym.SymmetricDim()

	var chol mat.Cholesky
	if chol.Factorize(sym) {
		var l mat.TriDense
		chol.LTo(&l)
		return &l, nil
	}

	var es mat.EigenSym
	if !es.Factorize(sym, true) {
		return nil, fmt.Errorf("mobility square root: eigendecomposition did not converge: %w", dynamo.ErrNumericalInstability)
	}
	vals := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	maxEig := 0.0
	for _, v := range vals {
		maxEig = math.Max(maxEig, math.Abs(v))
	}
	for j, v := range vals {
		if v < 0 {
			if v < -eigenClampTol*maxEig {
				return nil, fmt.Errorf("mobility has negative eigenvalue %g: %w", v, dynamo.ErrNumericalInstability)
			}
			v = 0
		}
		s := math.Sqrt(v)
		for i := 0; i < n; i++ {
			vecs.Set(i, j, vecs.At(i, j)*s)
		}
	}
	return &vecs, nil
}

func normals(rng dynamo.RandomSource, n int) dynamo.State {
	w := make(dynamo.State, n)
	for i := range w {
		w[i] = rng.NormFloat64()
	}
	return w
}
