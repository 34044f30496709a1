package mesh

import (
	"fmt"

	"github.com/fogleman/simplify"
	"github.com/soypat/glgl/math/ms3"
)

// Decimate returns a simplified copy of m holding about factor times its
// faces, computed with quadric error edge collapses. factor must be in (0, 1].
// The result is welded exactly.
func (m *Mesh) Decimate(factor float64) (*Mesh, error) {
	if !(factor > 0 && factor <= 1) {
		return nil, fmt.Errorf("decimation factor %g not in (0, 1]", factor)
	}
	if factor == 1 {
		return m.Clean(0), nil
	}
	tris := make([]*simplify.Triangle, len(m.Faces))
	for i := range m.Faces {
		t := m.Triangle(i)
		tris[i] = simplify.NewTriangle(
			simplify.Vector{X: float64(t[0].X), Y: float64(t[0].Y), Z: float64(t[0].Z)},
			simplify.Vector{X: float64(t[1].X), Y: float64(t[1].Y), Z: float64(t[1].Z)},
			simplify.Vector{X: float64(t[2].X), Y: float64(t[2].Y), Z: float64(t[2].Z)},
		)
	}
	simple := simplify.NewMesh(tris).Simplify(factor)
	out := &Mesh{
		Vertices: make([]ms3.Vec, 0, 3*len(simple.Triangles)),
		Faces:    make([][3]int, 0, len(simple.Triangles)),
	}
	for _, t := range simple.Triangles {
		n := len(out.Vertices)
		for _, v := range [3]simplify.Vector{t.V1, t.V2, t.V3} {
			out.Vertices = append(out.Vertices, ms3.Vec{X: float32(v.X), Y: float32(v.Y), Z: float32(v.Z)})
		}
		out.Faces = append(out.Faces, [3]int{n, n + 1, n + 2})
	}
	return out.Clean(0), nil
}
