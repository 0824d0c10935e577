package storage

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/san-kum/blobsim/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

// SVGOptions controls the trajectory rendering.
type SVGOptions struct {
	Width, Height int
	XIdx, YIdx    int
	Stroke        string
}

func DefaultSVGOptions() SVGOptions {
	return SVGOptions{Width: 480, Height: 480, XIdx: 0, YIdx: 1, Stroke: "#00ff00"}
}

// WriteTrajectorySVG draws the path of coordinates (XIdx, YIdx) through
// states, with the start marked. Both axes share one scale so constrained
// shapes keep their aspect.
func WriteTrajectorySVG(w io.Writer, states []dynamo.State, opts SVGOptions) error {
	if len(states) < 2 {
		return fmt.Errorf("need at least 2 states, got %d: %w", len(states), dynamo.ErrInvalidState)
	}
	xs := make([]float64, len(states))
	ys := make([]float64, len(states))
	for i, s := range states {
		if opts.XIdx >= len(s) || opts.YIdx >= len(s) || opts.XIdx < 0 || opts.YIdx < 0 {
			return fmt.Errorf("axis (%d, %d) out of range for state of length %d: %w",
				opts.XIdx, opts.YIdx, len(s), dynamo.ErrInvalidState)
		}
		xs[i], ys[i] = s[opts.XIdx], s[opts.YIdx]
	}

	minX, maxX := floats.Min(xs), floats.Max(xs)
	minY, maxY := floats.Min(ys), floats.Max(ys)
	span := max(maxX-minX, maxY-minY)
	if span == 0 {
		span = 1
	}
	pad := 0.1 * span
	span += 2 * pad
	cx, cy := (minX+maxX)/2, (minY+maxY)/2

	project := func(x, y float64) (float64, float64) {
		px := ((x-cx)/span + 0.5) * float64(opts.Width)
		py := float64(opts.Height) - ((y-cy)/span+0.5)*float64(opts.Height)
		return px, py
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1" stroke-opacity="0.7" d="M`,
		opts.Width, opts.Height, opts.Width, opts.Height, opts.Stroke)

	for i := range xs {
		px, py := project(xs[i], ys[i])
		if i > 0 {
			sb.WriteString(" L")
		}
		fmt.Fprintf(&sb, "%.1f,%.1f", px, py)
	}
	sb.WriteString("\"/>\n")

	sx, sy := project(xs[0], ys[0])
	fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"4\" fill=\"#ff5f5f\"/>\n", sx, sy)
	sb.WriteString("</svg>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// ExportSVG writes the trajectory SVG to path.
func ExportSVG(path string, states []dynamo.State, opts SVGOptions) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteTrajectorySVG(f, states, opts)
}
