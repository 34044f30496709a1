package tpms

import (
	"math"
)

// DefaultRadius is the design radius of the reference circular grading.
const DefaultRadius = 2.3

// OffsetField maps every sample of a Grid to a wall offset. Implementations
// must be deterministic, must not keep state between calls and must not
// modify the grid. The returned slice has length g.Len() and is indexed
// like the grid.
type OffsetField interface {
	Offsets(g Grid) ([]float64, error)
}

// OffsetRange holds the offset bounds a grading policy interpolates between.
type OffsetRange struct {
	Min, Max float64
}

// Validate checks both bounds are finite and Min < Max.
func (r OffsetRange) Validate() error {
	switch {
	case math.IsNaN(r.Min) || math.IsInf(r.Min, 0):
		return invalid("offset range", "min offset %g is not finite", r.Min)
	case math.IsNaN(r.Max) || math.IsInf(r.Max, 0):
		return invalid("offset range", "max offset %g is not finite", r.Max)
	case r.Min >= r.Max:
		return invalid("offset range", "min offset %g must be less than max offset %g", r.Min, r.Max)
	}
	return nil
}

// mix interpolates from Min (t=0) to Max (t=1). Both ends are exact.
func (r OffsetRange) mix(t float64) float64 {
	return r.Min*(1-t) + r.Max*t
}

// ConstantOffset is a uniform offset over the whole grid.
type ConstantOffset float64

// Offsets returns c for every sample of g.
func (c ConstantOffset) Offsets(g Grid) ([]float64, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	v := float64(c)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, invalid("offset", "constant %g is not finite", v)
	}
	out := make([]float64, g.Len())
	for i := range out {
		out[i] = v
	}
	return out, nil
}

// OffsetFunc adapts a pointwise function into an OffsetField.
type OffsetFunc func(x, y, z float64) float64

// Offsets evaluates f at every sample of g.
func (f OffsetFunc) Offsets(g Grid) ([]float64, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	out := make([]float64, g.Len())
	for i := range out {
		out[i] = f(g.X[i], g.Y[i], g.Z[i])
	}
	return out, nil
}

// LinearGrading varies the offset linearly along y, from Range.Min at the
// first y sample of the grid to Range.Max at the last one. The grading
// parameter is (y - y0)/length where y0 is the first y sample, so grids off
// the origin are normalised from their own start. On grids centred on the
// origin this is (y + length/2)/length.
type LinearGrading struct {
	Range OffsetRange
}

// Offsets implements OffsetField. Grids with a single y sample or zero
// y extent return a *DegenerateGradingError.
func (l LinearGrading) Offsets(g Grid) ([]float64, error) {
	if err := l.Range.Validate(); err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	nx, ny, nz := g.Shape[0], g.Shape[1], g.Shape[2]
	if ny < 2 {
		return nil, &DegenerateGradingError{Axis: "y", Samples: ny}
	}
	out := make([]float64, g.Len())
	for i := 0; i < nx; i++ {
		for k := 0; k < nz; k++ {
			y0 := g.Y[g.Index(i, 0, k)]
			length := g.Y[g.Index(i, ny-1, k)] - y0
			if length == 0 || math.IsNaN(length) || math.IsInf(length, 0) {
				return nil, &DegenerateGradingError{Axis: "y", Samples: ny, Length: length}
			}
			for j := 0; j < ny; j++ {
				idx := g.Index(i, j, k)
				// On a grid centred at y=0 this is (y + length/2) / length.
				t := (g.Y[idx] - y0) / length
				out[idx] = l.Range.mix(t)
			}
		}
	}
	return out, nil
}

// CircularGrading varies the offset with the squared distance to the z axis,
// reaching Range.Max at Radius. Samples further than Radius from the axis
// get offsets above Range.Max; they are not clamped. Wrap with Clamp when
// bounded offsets are required.
type CircularGrading struct {
	Range  OffsetRange
	Radius float64
}

// Offsets implements OffsetField.
func (c CircularGrading) Offsets(g Grid) ([]float64, error) {
	if err := c.Range.Validate(); err != nil {
		return nil, err
	}
	if c.Radius <= 0 || math.IsNaN(c.Radius) || math.IsInf(c.Radius, 0) {
		return nil, invalid("radius", "must be positive and finite, got %g", c.Radius)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	r2 := c.Radius * c.Radius
	out := make([]float64, g.Len())
	for i := range out {
		x, y := g.X[i], g.Y[i]
		out[i] = c.Range.mix((x*x + y*y) / r2)
	}
	return out, nil
}

type clampedField struct {
	field OffsetField
	r     OffsetRange
}

// Clamp returns an OffsetField that limits the offsets of f to [r.Min, r.Max].
func Clamp(f OffsetField, r OffsetRange) OffsetField {
	if f == nil {
		panic("nil OffsetField argument")
	}
	return clampedField{field: f, r: r}
}

func (c clampedField) Offsets(g Grid) ([]float64, error) {
	if err := c.r.Validate(); err != nil {
		return nil, err
	}
	out, err := c.field.Offsets(g)
	if err != nil {
		return nil, err
	}
	for i, v := range out {
		out[i] = math.Max(c.r.Min, math.Min(c.r.Max, v))
	}
	return out, nil
}
