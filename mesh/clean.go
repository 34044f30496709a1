package mesh

import (
	"math"

	"github.com/soypat/glgl/math/ms3"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// Clean returns a new mesh where vertices closer than tol are merged,
// faces that collapse or have zero area are removed and unused vertices
// are dropped. A tol of zero merges only identical vertices. Vertices are
// numbered by first appearance in the kept faces, so cleaning a clean mesh
// returns an identical mesh.
func (m *Mesh) Clean(tol float32) *Mesh {
	if tol < 0 || math.IsNaN(float64(tol)) {
		panic("negative or NaN weld tolerance")
	}
	var rep []int
	if tol == 0 {
		rep = weldExact(m.Vertices)
	} else {
		rep = weldWithin(m.Vertices, float64(tol))
	}
	clean := &Mesh{Faces: make([][3]int, 0, len(m.Faces))}
	renumber := make(map[int]int)
	for _, f := range m.Faces {
		face := [3]int{rep[f[0]], rep[f[1]], rep[f[2]]}
		if face[0] == face[1] || face[1] == face[2] || face[2] == face[0] {
			continue
		}
		if zeroArea(m.Vertices[face[0]], m.Vertices[face[1]], m.Vertices[face[2]]) {
			continue
		}
		for j, idx := range face {
			newIdx, ok := renumber[idx]
			if !ok {
				newIdx = len(clean.Vertices)
				renumber[idx] = newIdx
				clean.Vertices = append(clean.Vertices, m.Vertices[idx])
			}
			face[j] = newIdx
		}
		clean.Faces = append(clean.Faces, face)
	}
	return clean
}

// zeroArea reports whether the triangle has no area once written as
// float32 vertices, in which case no STL normal can be computed for it.
func zeroArea(a, b, c ms3.Vec) bool {
	pa, pb, pc := toR3(a), toR3(b), toR3(c)
	return r3.Norm2(r3.Cross(r3.Sub(pb, pa), r3.Sub(pc, pa))) == 0
}

// weldExact maps every vertex to the first vertex with identical coordinates.
func weldExact(vertices []ms3.Vec) []int {
	rep := make([]int, len(vertices))
	first := make(map[ms3.Vec]int, len(vertices)/4)
	for i, v := range vertices {
		idx, ok := first[v]
		if !ok {
			idx = i
			first[v] = i
		}
		rep[i] = idx
	}
	return rep
}

// weldWithin maps every vertex to a representative within tol. Vertices
// are visited in order and each unclaimed vertex claims all unclaimed
// vertices within tol, so representatives are more than tol apart.
func weldWithin(vertices []ms3.Vec, tol float64) []int {
	rep := make([]int, len(vertices))
	if len(vertices) == 0 {
		return rep
	}
	for i := range rep {
		rep[i] = -1
	}
	pts := make(weldPoints, len(vertices))
	for i, v := range vertices {
		pts[i] = weldPoint{Vec: toR3(v), idx: i}
	}
	tree := kdtree.New(pts, false)
	for i, v := range vertices {
		if rep[i] >= 0 {
			continue
		}
		rep[i] = i
		keep := kdtree.NewDistKeeper(tol * tol)
		tree.NearestSet(keep, weldPoint{Vec: toR3(v), idx: i})
		for _, cd := range keep.Heap {
			if cd.Comparable == nil {
				continue // sentinel
			}
			j := cd.Comparable.(weldPoint).idx
			if rep[j] < 0 {
				rep[j] = i
			}
		}
	}
	return rep
}

var (
	_ kdtree.Interface  = weldPoints{}
	_ kdtree.Comparable = weldPoint{}
)

// weldPoint is a vertex position remembering its index in the mesh.
type weldPoint struct {
	r3.Vec
	idx int
}

func (p weldPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(weldPoint)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	case 2:
		return p.Z - q.Z
	}
	panic("illegal dimension")
}

func (p weldPoint) Dims() int { return 3 }

// Distance returns the squared euclidean distance between the points.
func (p weldPoint) Distance(c kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(p.Vec, c.(weldPoint).Vec))
}

type weldPoints []weldPoint

func (p weldPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p weldPoints) Len() int                      { return len(p) }
func (p weldPoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}

// Pivot partitions the points along dimension d.
func (p weldPoints) Pivot(d kdtree.Dim) int {
	plane := weldPlane{dim: d, points: p}
	return kdtree.Partition(plane, kdtree.MedianOfMedians(plane))
}

type weldPlane struct {
	dim    kdtree.Dim
	points weldPoints
}

func (p weldPlane) Less(i, j int) bool {
	return p.points[i].Compare(p.points[j], p.dim) < 0
}
func (p weldPlane) Swap(i, j int) {
	p.points[i], p.points[j] = p.points[j], p.points[i]
}
func (p weldPlane) Len() int {
	return len(p.points)
}
func (p weldPlane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}
