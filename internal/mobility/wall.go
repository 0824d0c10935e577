package mobility

import (
	"fmt"
	"math"

	"github.com/san-kum/blobsim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// SingleWall is the translational Rotne-Prager-Yamakawa mobility of blobs of
// radius Radius in a fluid of viscosity Eta bounded by a no-slip wall at z = 0.
// Configurations are flattened blob positions (x, y, z per blob).
type SingleWall struct {
	Eta    float64
	Radius float64
}

func (w SingleWall) Mobility(x dynamo.State) (mat.Matrix, error) {
	if len(x)%3 != 0 {
		return nil, fmt.Errorf("single-wall mobility needs 3 coordinates per blob, got %d: %w", len(x), dynamo.ErrDimension)
	}
	if !(w.Eta > 0) || !(w.Radius > 0) {
		return nil, fmt.Errorf("single-wall mobility needs positive eta and radius: %w", dynamo.ErrConfiguration)
	}

	n := len(x) / 3
	a := w.Radius
	norm := 1.0 / (8.0 * math.Pi * w.Eta * a)
	m := mat.NewSymDense(3*n, nil)

	for i := 0; i < n; i++ {
		zi := x[3*i+2]
		if zi <= 0 {
			return nil, fmt.Errorf("blob %d at height %g is not above the wall: %w", i, zi, dynamo.ErrNumericalInstability)
		}

		inv := a / zi
		inv3 := inv * inv * inv
		inv5 := inv3 * inv * inv
		mxx := 4.0/3.0 - (9.0*inv-2.0*inv3+inv5)/12.0
		mzz := 4.0/3.0 - (9.0*inv-4.0*inv3+inv5)/6.0
		m.SetSym(3*i, 3*i, mxx*norm)
		m.SetSym(3*i+1, 3*i+1, mxx*norm)
		m.SetSym(3*i+2, 3*i+2, mzz*norm)

		for j := i + 1; j < n; j++ {
			block, err := pairBlock(x[3*i:3*i+3], x[3*j:3*j+3], a)
			if err != nil {
				return nil, fmt.Errorf("blobs %d and %d: %w", i, j, err)
			}
			for r := 0; r < 3; r++ {
				for c := 0; c < 3; c++ {
					m.SetSym(3*i+r, 3*j+c, block[r][c]*norm)
				}
			}
		}
	}
	return m, nil
}

// pairBlock is the (i, j) block in units of 1/(8πηa); the (j, i) block is its
// transpose.
func pairBlock(ri, rj []float64, a float64) ([3][3]float64, error) {
	var b [3][3]float64
	dr := [3]float64{(ri[0] - rj[0]) / a, (ri[1] - rj[1]) / a, (ri[2] - rj[2]) / a}
	r := math.Sqrt(dr[0]*dr[0] + dr[1]*dr[1] + dr[2]*dr[2])
	if r == 0 {
		return b, fmt.Errorf("overlapping blobs: %w", dynamo.ErrNumericalInstability)
	}

	if r > 2 {
		r2 := r * r
		c1 := 1.0 + 2.0/(3.0*r2)
		c2 := (1.0 - 2.0/r2) / r2
		for p := 0; p < 3; p++ {
			for q := 0; q < 3; q++ {
				b[p][q] = c2 * dr[p] * dr[q] / r
			}
			b[p][p] += c1 / r
		}
	} else {
		c1 := 4.0 / 3.0 * (1.0 - 0.28125*r)
		c2 := 4.0 / 3.0 * 0.09375 / r
		for p := 0; p < 3; p++ {
			for q := 0; q < 3; q++ {
				b[p][q] = c2 * dr[p] * dr[q]
			}
			b[p][p] += c1
		}
	}

	// Wall correction uses the image of blob j.
	dr[2] = (ri[2] + rj[2]) / a
	hHat := (rj[2] / a) / dr[2]
	invR := 1.0 / math.Sqrt(dr[0]*dr[0]+dr[1]*dr[1]+dr[2]*dr[2])
	ex, ey, ez := dr[0]*invR, dr[1]*invR, dr[2]*invR
	ez2 := ez * ez
	invR3 := invR * invR * invR
	invR5 := invR3 * invR * invR

	t1 := (1.0 - hHat) * ez2
	f1 := -(3.0*(1.0+2.0*hHat*t1)*invR + 2.0*(1.0-3.0*ez2)*invR3 - 2.0*(1.0-5.0*ez2)*invR5) / 3.0
	f2 := -(3.0*(1.0-6.0*hHat*t1)*invR - 6.0*(1.0-5.0*ez2)*invR3 + 10.0*(1.0-7.0*ez2)*invR5) / 3.0
	f3 := ez * (3.0*hHat*(1.0-6.0*t1)*invR - 6.0*(1.0-5.0*ez2)*invR3 + 10.0*(2.0-7.0*ez2)*invR5) * 2.0 / 3.0
	f4 := ez * (3.0*hHat*invR - 10.0*invR5) * 2.0 / 3.0
	f5 := -(3.0*hHat*hHat*ez2*invR + 3.0*ez2*invR3 + (2.0-15.0*ez2)*invR5) * 4.0 / 3.0

	e := [3]float64{ex, ey, ez}
	for p := 0; p < 3; p++ {
		for q := 0; q < 3; q++ {
			b[p][q] += f2 * e[p] * e[q]
		}
		b[p][p] += f1
	}
	b[0][2] += f3 * ex
	b[1][2] += f3 * ey
	b[2][0] += f4 * ex
	b[2][1] += f4 * ey
	b[2][2] += f3*ez + f4*ez + f5

	return b, nil
}
