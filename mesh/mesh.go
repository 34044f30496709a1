// Package mesh holds indexed triangle surface meshes and their
// post-processing: vertex welding, degenerate face removal, decimation
// and STL input/output.
package mesh

import (
	"fmt"

	"github.com/Hivelix/hackathon-additive4sport/render"
	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mesh is an indexed triangle mesh. Each face holds three indices into
// Vertices ordered counter-clockwise when seen from outside.
type Mesh struct {
	Vertices []ms3.Vec
	Faces    [][3]int
}

// FromTriangles returns a mesh with one vertex per triangle corner.
// Vertices are not shared between faces, see Clean.
func FromTriangles(model []render.Triangle3) *Mesh {
	m := &Mesh{
		Vertices: make([]ms3.Vec, 0, 3*len(model)),
		Faces:    make([][3]int, 0, len(model)),
	}
	for _, tri := range model {
		n := len(m.Vertices)
		m.Vertices = append(m.Vertices, toVec(tri[0]), toVec(tri[1]), toVec(tri[2]))
		m.Faces = append(m.Faces, [3]int{n, n + 1, n + 2})
	}
	return m
}

func (m *Mesh) VertexCount() int { return len(m.Vertices) }
func (m *Mesh) FaceCount() int   { return len(m.Faces) }

// Triangle returns the vertices of the ith face.
func (m *Mesh) Triangle(i int) ms3.Triangle {
	f := m.Faces[i]
	return ms3.Triangle{m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]}
}

// Triangles returns the faces of the mesh as unindexed triangles.
func (m *Mesh) Triangles() []render.Triangle3 {
	model := make([]render.Triangle3, len(m.Faces))
	for i, f := range m.Faces {
		model[i] = render.Triangle3{
			toR3(m.Vertices[f[0]]),
			toR3(m.Vertices[f[1]]),
			toR3(m.Vertices[f[2]]),
		}
	}
	return model
}

// Bounds returns the bounding box of the mesh vertices.
func (m *Mesh) Bounds() ms3.Box {
	if len(m.Vertices) == 0 {
		return ms3.Box{}
	}
	bb := ms3.Box{Min: m.Vertices[0], Max: m.Vertices[0]}
	for _, v := range m.Vertices[1:] {
		bb.Min = ms3.MinElem(bb.Min, v)
		bb.Max = ms3.MaxElem(bb.Max, v)
	}
	return bb
}

// Validate checks that all face indices are in range and all vertices are finite.
func (m *Mesh) Validate() error {
	for i, v := range m.Vertices {
		if math32.IsNaN(v.X) || math32.IsInf(v.X, 0) ||
			math32.IsNaN(v.Y) || math32.IsInf(v.Y, 0) ||
			math32.IsNaN(v.Z) || math32.IsInf(v.Z, 0) {
			return fmt.Errorf("vertex %d is not finite: %v", i, v)
		}
	}
	for i, f := range m.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= len(m.Vertices) {
				return fmt.Errorf("face %d references vertex %d of %d", i, idx, len(m.Vertices))
			}
		}
	}
	return nil
}

// OpenEdges returns the number of edges not shared by exactly two faces.
// A closed manifold mesh has none. Only meaningful on welded meshes.
func (m *Mesh) OpenEdges() int {
	edges := make(map[[2]int]int, 3*len(m.Faces)/2)
	for _, f := range m.Faces {
		for j := range f {
			e := [2]int{f[j], f[(j+1)%3]}
			if e[0] > e[1] {
				e[0], e[1] = e[1], e[0]
			}
			edges[e]++
		}
	}
	open := 0
	for _, count := range edges {
		if count != 2 {
			open++
		}
	}
	return open
}

func toVec(v r3.Vec) ms3.Vec {
	return ms3.Vec{X: float32(v.X), Y: float32(v.Y), Z: float32(v.Z)}
}

func toR3(v ms3.Vec) r3.Vec {
	return r3.Vec{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}
