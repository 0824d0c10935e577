package surface

import (
	"math"

	"github.com/san-kum/blobsim/internal/dynamo"
)

const numericStep = 1e-7

// PerBlob applies Inner to every consecutive block of Stride coordinates, so
// each blob carries its own constraint.
type PerBlob struct {
	Inner  dynamo.SurfaceFunction
	Stride int
}

func (p PerBlob) Residual(x dynamo.State) []float64 {
	stride := p.stride(x)
	out := make([]float64, 0, len(x)/stride)
	for start := 0; start+stride <= len(x); start += stride {
		out = append(out, p.Inner.Residual(x[start:start+stride])...)
	}
	return out
}

func (p PerBlob) Gradient(x dynamo.State) [][]float64 {
	stride := p.stride(x)
	var rows [][]float64
	for start := 0; start+stride <= len(x); start += stride {
		block := x[start : start+stride]
		for _, g := range gradientOf(p.Inner, block) {
			row := make([]float64, len(x))
			copy(row[start:], g)
			rows = append(rows, row)
		}
	}
	return rows
}

func (p PerBlob) stride(x dynamo.State) int {
	if p.Stride <= 0 {
		return max(len(x), 1)
	}
	return p.Stride
}

// Intersection stacks the residuals of several surfaces, e.g. a sphere and a
// plane cutting it.
type Intersection []dynamo.SurfaceFunction

func (s Intersection) Residual(x dynamo.State) []float64 {
	var out []float64
	for _, f := range s {
		out = append(out, f.Residual(x)...)
	}
	return out
}

func (s Intersection) Gradient(x dynamo.State) [][]float64 {
	var rows [][]float64
	for _, f := range s {
		rows = append(rows, gradientOf(f, x)...)
	}
	return rows
}

func gradientOf(f dynamo.SurfaceFunction, x dynamo.State) [][]float64 {
	if sg, ok := f.(dynamo.SurfaceGradient); ok {
		return sg.Gradient(x)
	}

	k := len(f.Residual(x))
	rows := make([][]float64, k)
	for r := range rows {
		rows[r] = make([]float64, len(x))
	}

	shifted := dynamo.State(x).Clone()
	for i := range x {
		h := numericStep * math.Max(1, math.Abs(x[i]))
		shifted[i] = x[i] + h
		gp := f.Residual(shifted)
		hi := shifted[i]
		shifted[i] = x[i] - h
		gm := f.Residual(shifted)
		lo := shifted[i]
		shifted[i] = x[i]
		for r := 0; r < k && r < len(gp) && r < len(gm); r++ {
			rows[r][i] = (gp[r] - gm[r]) / (hi - lo)
		}
	}
	return rows
}
