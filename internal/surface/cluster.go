package surface

import (
	"fmt"
	"math"

	"github.com/san-kum/blobsim/internal/dynamo"
)

// Bond fixes the distance between blobs I and J of a flattened 3-D blob
// configuration: |r_I - r_J|² - Length² = 0.
type Bond struct {
	I, J   int
	Length float64
}

func (b Bond) Residual(x dynamo.State) []float64 {
	sum := 0.0
	for c := 0; c < 3; c++ {
		d := x[3*b.I+c] - x[3*b.J+c]
		sum += d * d
	}
	return []float64{sum - b.Length*b.Length}
}

func (b Bond) Gradient(x dynamo.State) [][]float64 {
	row := make([]float64, len(x))
	for c := 0; c < 3; c++ {
		d := x[3*b.I+c] - x[3*b.J+c]
		row[3*b.I+c] = 2 * d
		row[3*b.J+c] = -2 * d
	}
	return [][]float64{row}
}

// RigidCluster bonds every listed blob pair at its distance in x0, keeping
// the cluster's shape while it translates and rotates. A nil pairs list
// bonds all pairs, which is rigid and non-redundant for up to four blobs.
func RigidCluster(x0 dynamo.State, pairs [][2]int) (Intersection, error) {
	if len(x0) == 0 || len(x0)%3 != 0 {
		return nil, fmt.Errorf("cluster needs 3 coordinates per blob, got %d: %w", len(x0), dynamo.ErrDimension)
	}
	n := len(x0) / 3
	if pairs == nil {
		if n > 4 {
			return nil, fmt.Errorf("all-pairs bonding of %d blobs is redundant, list the bonds: %w", n, dynamo.ErrConfiguration)
		}
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				pairs = append(pairs, [2]int{i, j})
			}
		}
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("cluster has no bonds: %w", dynamo.ErrConfiguration)
	}

	bonds := make(Intersection, 0, len(pairs))
	for _, p := range pairs {
		i, j := p[0], p[1]
		if i < 0 || j < 0 || i >= n || j >= n || i == j {
			return nil, fmt.Errorf("bond %v out of range for %d blobs: %w", p, n, dynamo.ErrConfiguration)
		}
		sum := 0.0
		for c := 0; c < 3; c++ {
			d := x0[3*i+c] - x0[3*j+c]
			sum += d * d
		}
		bonds = append(bonds, Bond{I: i, J: j, Length: math.Sqrt(sum)})
	}
	return bonds, nil
}
