package tpms

import (
	"fmt"
	"math"
	"sort"

	"github.com/Hivelix/hackathon-additive4sport/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

var _ SDF3 = (*Field)(nil)

// Field is a scalar implicit field sampled over a tensor product Grid.
// Values are negative inside the solid.
type Field struct {
	grid   Grid
	values []float64
	axes   [3][]float64
}

// NewField returns a Field holding one value per grid sample. The grid axes
// must be strictly increasing. values is not copied.
func NewField(g Grid, values []float64) (*Field, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if len(values) != g.Len() {
		return nil, fmt.Errorf("%w: %d values for %d samples", ErrInvalidGrid, len(values), g.Len())
	}
	f := &Field{grid: g, values: values}
	for ax := range f.axes {
		f.axes[ax] = g.axis(ax)
		if !sort.Float64sAreSorted(f.axes[ax]) {
			return nil, fmt.Errorf("%w: %c axis not increasing", ErrInvalidGrid, "xyz"[ax])
		}
		for n := 1; n < len(f.axes[ax]); n++ {
			if f.axes[ax][n] == f.axes[ax][n-1] {
				return nil, fmt.Errorf("%w: repeated %c coordinate %g", ErrInvalidGrid, "xyz"[ax], f.axes[ax][n])
			}
		}
	}
	return f, nil
}

// Grid returns the sample grid of the field.
func (f *Field) Grid() Grid { return f.grid }

// Values returns the field values indexed like the grid. The slice is not copied.
func (f *Field) Values() []float64 { return f.values }

// Shape returns the number of samples along each axis.
func (f *Field) Shape() [3]int { return f.grid.Shape }

// At returns position and value of sample (i,j,k).
func (f *Field) At(i, j, k int) (r3.Vec, float64) {
	idx := f.grid.Index(i, j, k)
	return f.grid.At(idx), f.values[idx]
}

// Bounds returns the box spanned by the grid samples.
func (f *Field) Bounds() r3.Box {
	x, y, z := f.axes[0], f.axes[1], f.axes[2]
	return r3.Box{
		Min: r3.Vec{X: x[0], Y: y[0], Z: z[0]},
		Max: r3.Vec{X: x[len(x)-1], Y: y[len(y)-1], Z: z[len(z)-1]},
	}
}

// Evaluate interpolates the field trilinearly at p. Points outside the grid
// are evaluated at the nearest grid point and offset by their distance to it.
func (f *Field) Evaluate(p r3.Vec) float64 {
	q := d3.Box(f.Bounds()).Clamp(p)
	var (
		lo [3]int
		t  [3]float64
	)
	for ax, v := range [3]float64{q.X, q.Y, q.Z} {
		lo[ax], t[ax] = locate(f.axes[ax], v)
	}
	hi := lo
	for ax := range hi {
		if hi[ax]+1 < len(f.axes[ax]) {
			hi[ax]++
		}
	}
	v := func(i, j, k int) float64 { return f.values[f.grid.Index(i, j, k)] }
	c00 := lerp(v(lo[0], lo[1], lo[2]), v(hi[0], lo[1], lo[2]), t[0])
	c10 := lerp(v(lo[0], hi[1], lo[2]), v(hi[0], hi[1], lo[2]), t[0])
	c01 := lerp(v(lo[0], lo[1], hi[2]), v(hi[0], lo[1], hi[2]), t[0])
	c11 := lerp(v(lo[0], hi[1], hi[2]), v(hi[0], hi[1], hi[2]), t[0])
	c0 := lerp(c00, c10, t[1])
	c1 := lerp(c01, c11, t[1])
	return lerp(c0, c1, t[2]) + r3.Norm(r3.Sub(p, q))
}

// VolumeFraction returns the fraction of samples inside the solid, an
// estimate of the relative density of the lattice.
func (f *Field) VolumeFraction() float64 {
	inside := 0
	for _, v := range f.values {
		if v < 0 {
			inside++
		}
	}
	return float64(inside) / float64(len(f.values))
}

// LipschitzEstimate returns the largest finite difference slope between
// neighbouring samples. Dividing the field by it yields a conservative
// distance bound.
func (f *Field) LipschitzEstimate() float64 {
	var k float64
	n := f.grid.Shape
	for i := 0; i < n[0]; i++ {
		for j := 0; j < n[1]; j++ {
			for kk := 0; kk < n[2]; kk++ {
				p, v := f.At(i, j, kk)
				for _, nb := range [3][3]int{{i + 1, j, kk}, {i, j + 1, kk}, {i, j, kk + 1}} {
					if nb[0] >= n[0] || nb[1] >= n[1] || nb[2] >= n[2] {
						continue
					}
					q, w := f.At(nb[0], nb[1], nb[2])
					slope := math.Abs(w-v) / r3.Norm(r3.Sub(q, p))
					if slope > k {
						k = slope
					}
				}
			}
		}
	}
	return k
}

// locate returns the index of the cell of axis containing v and the
// normalized position of v within it.
func locate(axis []float64, v float64) (int, float64) {
	if len(axis) == 1 {
		return 0, 0
	}
	i := sort.SearchFloat64s(axis, v) - 1
	if i < 0 {
		i = 0
	} else if i > len(axis)-2 {
		i = len(axis) - 2
	}
	return i, (v - axis[i]) / (axis[i+1] - axis[i])
}

func lerp(a, b, t float64) float64 { return a*(1-t) + b*t }
