package render

import (
	"errors"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// tetraMaxTriangles is the most triangles a single grid cell can produce:
// two for each of its six tetrahedra.
const tetraMaxTriangles = 12

// Cell corners are numbered
//
//	0:(0,0,0) 1:(1,0,0) 2:(1,1,0) 3:(0,1,0)
//	4:(0,0,1) 5:(1,0,1) 6:(1,1,1) 7:(0,1,1)
var cornerOffsets = [8][3]int{
	{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
}

// cellTetrahedra splits a cell into six tetrahedra sharing the 0-6
// diagonal. Neighbouring cells split their shared faces the same way, so
// the extracted surface has no cracks.
var cellTetrahedra = [6][4]int{
	{0, 1, 2, 6}, {0, 2, 3, 6}, {0, 3, 7, 6},
	{0, 7, 4, 6}, {0, 4, 5, 6}, {0, 5, 1, 6},
}

// TetraRenderer extracts the zero level set of a Volume with marching
// tetrahedra. Cells are visited through an octree so that blocks of cells
// whose samples cannot change sign are skipped.
type TetraRenderer struct {
	vol      Volume
	shape    [3]int
	slope    float64 // largest value change between neighbouring samples.
	todo     []block
	overflow overflow

	cells     int // cells marched.
	triangles int // triangles produced.
}

// block is a cubic group of (1<<n)^3 cells with its lowest corner at origin.
type block struct {
	origin [3]int
	n      uint
}

// NewTetraRenderer returns a renderer for v. The volume needs at least two
// samples along each axis and finite values everywhere.
func NewTetraRenderer(v Volume) (*TetraRenderer, error) {
	if v == nil {
		panic("nil Volume argument")
	}
	shape := v.Shape()
	if shape[0] < 2 || shape[1] < 2 || shape[2] < 2 {
		return nil, fmt.Errorf("volume of shape %v needs at least 2 samples per axis", shape)
	}
	tr := &TetraRenderer{
		vol:   v,
		shape: shape,
	}
	for i := 0; i < shape[0]; i++ {
		for j := 0; j < shape[1]; j++ {
			for k := 0; k < shape[2]; k++ {
				p, d := v.At(i, j, k)
				if math.IsNaN(d) || math.IsInf(d, 0) {
					return nil, fmt.Errorf("non-finite value %g at sample (%d,%d,%d) %v", d, i, j, k, p)
				}
				for _, nb := range [3][3]int{{i + 1, j, k}, {i, j + 1, k}, {i, j, k + 1}} {
					if nb[0] < shape[0] && nb[1] < shape[1] && nb[2] < shape[2] {
						_, dn := v.At(nb[0], nb[1], nb[2])
						tr.slope = math.Max(tr.slope, math.Abs(dn-d))
					}
				}
			}
		}
	}
	longAxis := max(shape[0], shape[1], shape[2]) - 1
	levels := uint(math.Ceil(math.Log2(float64(longAxis))))
	tr.todo = []block{{n: levels}}
	return tr, nil
}

// ReadTriangles writes triangles rendered from the volume into dst.
// It returns io.EOF once all triangles have been read.
func (tr *TetraRenderer) ReadTriangles(dst []Triangle3) (n int, err error) {
	if len(dst) == 0 {
		return 0, io.ErrShortBuffer
	}
	if len(tr.overflow) > 0 {
		n += tr.overflow.drain(dst)
		if n == len(dst) {
			return n, nil
		}
	}
	n += tr.readTriangles(dst[n:])
	if len(tr.todo) == 0 && len(tr.overflow) == 0 {
		return n, io.EOF
	}
	return n, nil
}

// Stats returns the number of cells marched and triangles produced so far.
func (tr *TetraRenderer) Stats() (cells, triangles int) { return tr.cells, tr.triangles }

func (tr *TetraRenderer) readTriangles(dst []Triangle3) (n int) {
	var tmp [tetraMaxTriangles]Triangle3
	for len(tr.todo) > 0 && n < len(dst) {
		b := tr.todo[0]
		tr.todo = tr.todo[1:]
		if b.n > 0 {
			tr.todo = append(tr.todo, tr.subdivide(b)...)
			continue
		}
		if n+tetraMaxTriangles <= len(dst) {
			n += tr.marchCell(dst[n:], b.origin)
			continue
		}
		// Not enough room for the worst case. Keep the excess for the next read.
		nt := tr.marchCell(tmp[:], b.origin)
		written := copy(dst[n:], tmp[:nt])
		tr.overflow.push(tmp[written:nt])
		n += written
	}
	if len(tr.todo) == 0 {
		tr.todo = nil
	}
	return n
}

// subdivide returns the non empty children of b.
func (tr *TetraRenderer) subdivide(b block) []block {
	s := 1 << (b.n - 1)
	var children []block
	for _, off := range cornerOffsets {
		c := block{n: b.n - 1}
		for ax := range c.origin {
			c.origin[ax] = b.origin[ax] + off[ax]*s
		}
		if c.origin[0] >= tr.shape[0]-1 || c.origin[1] >= tr.shape[1]-1 || c.origin[2] >= tr.shape[2]-1 {
			continue
		}
		if !tr.isEmpty(c) {
			children = append(children, c)
		}
	}
	return children
}

// isEmpty reports whether every sample of b is guaranteed to be on the same
// side of the surface. Any sample of b is at most 3*size index steps from
// the origin sample, each step changing the value by at most tr.slope.
func (tr *TetraRenderer) isEmpty(b block) bool {
	_, d := tr.vol.At(b.origin[0], b.origin[1], b.origin[2])
	size := float64(int(1) << b.n)
	return math.Abs(d) > 3*size*tr.slope
}

// marchCell writes the triangles of the cell at origin to dst and returns
// how many were written.
func (tr *TetraRenderer) marchCell(dst []Triangle3, origin [3]int) (n int) {
	var (
		pos   [8]r3.Vec
		val   [8]float64
		index [8]int
	)
	for c, off := range cornerOffsets {
		i, j, k := origin[0]+off[0], origin[1]+off[1], origin[2]+off[2]
		pos[c], val[c] = tr.vol.At(i, j, k)
		index[c] = (i*tr.shape[1]+j)*tr.shape[2] + k
	}
	tr.cells++
	for _, tet := range cellTetrahedra {
		var in, out []int
		for _, c := range tet {
			if val[c] < 0 {
				in = append(in, c)
			} else {
				out = append(out, c)
			}
		}
		edge := func(a, b int) r3.Vec {
			// Interpolate from the lower sample index so that cells sharing
			// the edge produce the exact same vertex.
			if index[a] > index[b] {
				a, b = b, a
			}
			t := val[a] / (val[a] - val[b])
			return r3.Add(pos[a], r3.Scale(t, r3.Sub(pos[b], pos[a])))
		}
		var tris []Triangle3
		switch len(in) {
		case 1:
			a := in[0]
			tris = append(tris, Triangle3{edge(a, out[0]), edge(a, out[1]), edge(a, out[2])})
		case 3:
			a := out[0]
			tris = append(tris, Triangle3{edge(a, in[0]), edge(a, in[1]), edge(a, in[2])})
		case 2:
			a, b, c, d := in[0], in[1], out[0], out[1]
			q := [4]r3.Vec{edge(a, c), edge(a, d), edge(b, d), edge(b, c)}
			tris = append(tris, Triangle3{q[0], q[1], q[2]}, Triangle3{q[0], q[2], q[3]})
		default:
			continue
		}
		// Orient triangles to face from the inside corners to the outside corners.
		dir := r3.Sub(centroid(pos, out), centroid(pos, in))
		for _, t := range tris {
			if r3.Dot(r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0])), dir) < 0 {
				t[1], t[2] = t[2], t[1]
			}
			dst[n] = t
			n++
		}
	}
	tr.triangles += n
	return n
}

func centroid(pos [8]r3.Vec, corners []int) r3.Vec {
	var c r3.Vec
	for _, i := range corners {
		c = r3.Add(c, pos[i])
	}
	return r3.Scale(1/float64(len(corners)), c)
}

// ErrEmptyMesh is returned when a volume has no surface to extract.
var ErrEmptyMesh = errors.New("volume produced no triangles")

// Tetrahedralize renders every triangle of v.
func Tetrahedralize(v Volume) ([]Triangle3, error) {
	tr, err := NewTetraRenderer(v)
	if err != nil {
		return nil, err
	}
	model, err := RenderAll(tr)
	if err != nil {
		return nil, err
	}
	if len(model) == 0 {
		return nil, ErrEmptyMesh
	}
	return model, nil
}
