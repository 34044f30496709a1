// Package render extracts triangle meshes from sampled implicit volumes and
// encodes them as binary STL.
package render

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Renderer streams the triangles of a model. ReadTriangles writes up to
// len(dst) triangles and returns io.EOF once every triangle has been read.
type Renderer interface {
	ReadTriangles(dst []Triangle3) (int, error)
}

// Volume is a scalar field sampled over a regular grid of Shape() points.
// At returns position and value of sample (i,j,k). Values are negative
// inside the solid.
type Volume interface {
	Shape() [3]int
	At(i, j, k int) (r3.Vec, float64)
}

// Triangle3 is a 3D triangle. Its vertices are ordered counter-clockwise
// when seen from outside the solid.
type Triangle3 [3]r3.Vec

// Normal returns the unit normal of the triangle. Degenerate triangles
// with zero area return the zero vector.
func (t Triangle3) Normal() r3.Vec {
	n := r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0]))
	norm := r3.Norm(n)
	if norm == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/norm, n)
}

// Degenerate reports whether two vertices of the triangle lie within tol
// of each other along every axis.
func (t Triangle3) Degenerate(tol float64) bool {
	return equalWithin(t[0], t[1], tol) || equalWithin(t[1], t[2], tol) || equalWithin(t[2], t[0], tol)
}

func equalWithin(a, b r3.Vec, tol float64) bool {
	d := r3.Sub(a, b)
	return d.X <= tol && d.X >= -tol && d.Y <= tol && d.Y >= -tol && d.Z <= tol && d.Z >= -tol
}
