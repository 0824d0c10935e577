// Package surface provides constraint functions g(x) = 0 for the
// constrained integrators, most with analytic gradients.
package surface

import "github.com/san-kum/blobsim/internal/dynamo"

// Sphere constrains x to |x - Center| = Radius. In two dimensions this is a
// circle. Missing Center coordinates are zero.
type Sphere struct {
	Center []float64
	Radius float64
}

func (s Sphere) Residual(x dynamo.State) []float64 {
	sum := 0.0
	for i, v := range x {
		d := v - coord(s.Center, i)
		sum += d * d
	}
	return []float64{sum - s.Radius*s.Radius}
}

func (s Sphere) Gradient(x dynamo.State) [][]float64 {
	row := make([]float64, len(x))
	for i, v := range x {
		row[i] = 2 * (v - coord(s.Center, i))
	}
	return [][]float64{row}
}

// Plane constrains Normal·x = Offset.
type Plane struct {
	Normal []float64
	Offset float64
}

func (p Plane) Residual(x dynamo.State) []float64 {
	sum := 0.0
	for i, v := range x {
		sum += coord(p.Normal, i) * v
	}
	return []float64{sum - p.Offset}
}

func (p Plane) Gradient(x dynamo.State) [][]float64 {
	row := make([]float64, len(x))
	for i := range x {
		row[i] = coord(p.Normal, i)
	}
	return [][]float64{row}
}

func coord(v []float64, i int) float64 {
	if i < len(v) {
		return v[i]
	}
	return 0
}
