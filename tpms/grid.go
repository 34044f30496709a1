package tpms

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// Grid is a discretized evaluation domain. It holds three co-indexed
// coordinate arrays so that X[n], Y[n] and Z[n] describe the same point.
// Sample (i,j,k), with i along x, j along y and k along z, is stored at
// flat index (i*ny+j)*nz+k.
type Grid struct {
	Shape   [3]int
	X, Y, Z []float64
}

// NewGrid returns the tensor product grid of the argument axis coordinates.
func NewGrid(xs, ys, zs []float64) Grid {
	nx, ny, nz := len(xs), len(ys), len(zs)
	n := nx * ny * nz
	g := Grid{
		Shape: [3]int{nx, ny, nz},
		X:     make([]float64, n),
		Y:     make([]float64, n),
		Z:     make([]float64, n),
	}
	idx := 0
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			for k := 0; k < nz; k++ {
				g.X[idx] = xs[i]
				g.Y[idx] = ys[j]
				g.Z[idx] = zs[k]
				idx++
			}
		}
	}
	return g
}

// Linspace returns n evenly spaced samples over [start, stop]. Both
// endpoints are reproduced exactly. A single sample returns start.
func Linspace(start, stop float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{start}
	}
	return floats.Span(make([]float64, n), start, stop)
}

// Len returns the number of samples in the grid.
func (g Grid) Len() int { return g.Shape[0] * g.Shape[1] * g.Shape[2] }

// Index returns the flat index of sample (i,j,k).
func (g Grid) Index(i, j, k int) int {
	return (i*g.Shape[1]+j)*g.Shape[2] + k
}

// At returns the position of the sample at flat index idx.
func (g Grid) At(idx int) r3.Vec {
	return r3.Vec{X: g.X[idx], Y: g.Y[idx], Z: g.Z[idx]}
}

// Validate checks the shape is positive and all coordinate arrays agree with it.
func (g Grid) Validate() error {
	if g.Shape[0] <= 0 || g.Shape[1] <= 0 || g.Shape[2] <= 0 {
		return fmt.Errorf("%w: non-positive shape %v", ErrInvalidGrid, g.Shape)
	}
	n := g.Len()
	if len(g.X) != n || len(g.Y) != n || len(g.Z) != n {
		return fmt.Errorf("%w: shape %v wants %d samples, got x=%d y=%d z=%d",
			ErrInvalidGrid, g.Shape, n, len(g.X), len(g.Y), len(g.Z))
	}
	return nil
}

// axis returns the coordinates of the grid along axis ax (0, 1 or 2)
// through the first sample of the other two axes.
func (g Grid) axis(ax int) []float64 {
	out := make([]float64, g.Shape[ax])
	for n := range out {
		var idx int
		var src []float64
		switch ax {
		case 0:
			idx, src = g.Index(n, 0, 0), g.X
		case 1:
			idx, src = g.Index(0, n, 0), g.Y
		default:
			idx, src = g.Index(0, 0, n), g.Z
		}
		out[n] = src[idx]
	}
	return out
}
