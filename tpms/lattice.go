package tpms

import (
	"math"

	"github.com/Hivelix/hackathon-additive4sport/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Part selects which region of a graded lattice is sampled.
type Part int

const (
	// Sheet is the shell between the two offset surfaces φ = ±offset/2.
	Sheet Part = iota
	// UpperSkeletal is the region where φ > offset/2.
	UpperSkeletal
	// LowerSkeletal is the region where φ < -offset/2.
	LowerSkeletal
	// BareSurface is the zero level set of φ with no thickness.
	BareSurface
)

var partNames = [...]string{
	Sheet:         "sheet",
	UpperSkeletal: "upper-skeletal",
	LowerSkeletal: "lower-skeletal",
	BareSurface:   "surface",
}

func (p Part) String() string {
	if p < 0 || int(p) >= len(partNames) {
		return "Part(?)"
	}
	return partNames[p]
}

// ParsePart returns the part named name, as returned by Part.String.
// The empty name selects Sheet.
func ParsePart(name string) (Part, error) {
	if name == "" {
		return Sheet, nil
	}
	for p, s := range partNames {
		if s == name {
			return Part(p), nil
		}
	}
	return 0, invalid("part", "%q unknown, want one of %v", name, partNames)
}

// LatticeParms defines a graded lattice.
type LatticeParms struct {
	Surface Surface
	// Offset grades the wall thickness. ConstantOffset gives a uniform lattice.
	Offset OffsetField
	// RepeatCell is the number of unit cells along each axis.
	RepeatCell [3]int
	// CellSize is the size of a unit cell along each axis.
	CellSize r3.Vec
	// Resolution is the number of samples per cell along each axis.
	Resolution int
}

// Lattice is an immutable graded lattice descriptor. It is centred on the origin.
type Lattice struct {
	surface    Surface
	offset     OffsetField
	repeat     [3]int
	cellSize   r3.Vec
	resolution int
}

// NewLattice validates p and returns the lattice it describes.
func NewLattice(p LatticeParms) (Lattice, error) {
	switch {
	case p.Surface.IsZero():
		return Lattice{}, invalid("surface", "is not set")
	case p.Offset == nil:
		return Lattice{}, invalid("offset", "is not set")
	case p.Resolution <= 0:
		return Lattice{}, invalid("resolution", "must be positive, got %d", p.Resolution)
	}
	for i, n := range p.RepeatCell {
		if n <= 0 {
			return Lattice{}, invalid("repeat cell", "%c count must be positive, got %d", "xyz"[i], n)
		}
	}
	for i, v := range [3]float64{p.CellSize.X, p.CellSize.Y, p.CellSize.Z} {
		if !(v > 0) || math.IsInf(v, 0) {
			return Lattice{}, invalid("cell size", "%c must be positive and finite, got %g", "xyz"[i], v)
		}
	}
	return Lattice{
		surface:    p.Surface,
		offset:     p.Offset,
		repeat:     p.RepeatCell,
		cellSize:   p.CellSize,
		resolution: p.Resolution,
	}, nil
}

func (l Lattice) Surface() Surface    { return l.surface }
func (l Lattice) Offset() OffsetField { return l.offset }
func (l Lattice) RepeatCell() [3]int  { return l.repeat }
func (l Lattice) CellSize() r3.Vec    { return l.cellSize }
func (l Lattice) Resolution() int     { return l.resolution }

// Samples returns the number of grid samples along each axis.
func (l Lattice) Samples() [3]int {
	return [3]int{l.repeat[0] * l.resolution, l.repeat[1] * l.resolution, l.repeat[2] * l.resolution}
}

func (l Lattice) size() r3.Vec {
	return d3.MulElem(l.cellSize, r3.Vec{X: float64(l.repeat[0]), Y: float64(l.repeat[1]), Z: float64(l.repeat[2])})
}

// Bounds returns the box occupied by the lattice.
func (l Lattice) Bounds() r3.Box {
	half := r3.Scale(0.5, l.size())
	return r3.Box{Min: r3.Scale(-1, half), Max: half}
}

// Grid returns the sample grid of the lattice: Resolution samples per cell
// along each axis spanning Bounds, endpoints included.
func (l Lattice) Grid() Grid {
	n := l.Samples()
	bb := l.Bounds()
	return NewGrid(
		Linspace(bb.Min.X, bb.Max.X, n[0]),
		Linspace(bb.Min.Y, bb.Max.Y, n[1]),
		Linspace(bb.Min.Z, bb.Max.Z, n[2]),
	)
}

// Sample evaluates the lattice part over the lattice grid. Errors from the
// offset field are returned unchanged.
//
// The solid parts are intersected with the lattice bounds inset by half a
// sample step, so that they are closed where the lattice is cut and the
// outermost samples always lie outside the solid.
func (l Lattice) Sample(part Part) (*Field, error) {
	g := l.Grid()
	offsets, err := l.offset.Offsets(g)
	if err != nil {
		return nil, err
	}
	if len(offsets) != g.Len() {
		return nil, invalid("offset", "field returned %d values for %d samples", len(offsets), g.Len())
	}
	bound := l.capBox()
	values := make([]float64, g.Len())
	for idx := range values {
		phi := l.surface.Eval(
			phase(g.X[idx], l.cellSize.X),
			phase(g.Y[idx], l.cellSize.Y),
			phase(g.Z[idx], l.cellSize.Z),
		)
		half := offsets[idx] / 2
		var v float64
		switch part {
		case Sheet:
			v = math.Abs(phi) - half
		case UpperSkeletal:
			v = half - phi
		case LowerSkeletal:
			v = phi + half
		case BareSurface:
			values[idx] = phi
			continue
		default:
			panic("unknown lattice part " + part.String())
		}
		values[idx] = math.Max(v, bound.Distance(g.At(idx)))
	}
	return NewField(g, values)
}

// capBox returns the lattice bounds shrunk by half a sample step on each side.
func (l Lattice) capBox() d3.Box {
	n := l.Samples()
	bb := d3.Box(l.Bounds())
	size := bb.Size()
	step := r3.Vec{
		X: stepOf(size.X, n[0]),
		Y: stepOf(size.Y, n[1]),
		Z: stepOf(size.Z, n[2]),
	}
	return bb.Inset(r3.Scale(0.5, step))
}

func stepOf(length float64, n int) float64 {
	if n < 2 {
		return 0
	}
	return length / float64(n-1)
}
