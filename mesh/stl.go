package mesh

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Hivelix/hackathon-additive4sport/render"
	"github.com/hschendel/stl"
	"github.com/soypat/glgl/math/ms3"
)

// Format is an STL encoding.
type Format int

const (
	Binary Format = iota
	ASCII
)

func (f Format) String() string {
	switch f {
	case Binary:
		return "binary"
	case ASCII:
		return "ascii"
	}
	return "Format(?)"
}

// ExportError is returned when a mesh cannot be written to Path.
type ExportError struct {
	Path string
	Err  error
}

func (e *ExportError) Error() string {
	return "export " + e.Path + ": " + e.Err.Error()
}

func (e *ExportError) Unwrap() error { return e.Err }

// SaveSTL writes m to path as an STL file. The ASCII solid is named after
// the file.
func SaveSTL(path string, m *Mesh, format Format) error {
	if err := saveSTL(path, m, format); err != nil {
		return &ExportError{Path: path, Err: err}
	}
	return nil
}

func saveSTL(path string, m *Mesh, format Format) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if len(m.Faces) == 0 {
		return fmt.Errorf("mesh has no faces")
	}
	if !strings.EqualFold(filepath.Ext(path), ".stl") {
		return fmt.Errorf("unsupported file extension %q, want .stl", filepath.Ext(path))
	}
	switch format {
	case ASCII:
		return toSolid(m, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))).WriteFile(path)
	case Binary:
	default:
		return fmt.Errorf("unknown STL format %d", format)
	}
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fp.Close()
	w := bufio.NewWriter(fp)
	if err := render.WriteSTL(w, m.Triangles()); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return fp.Close()
}

// LoadSTL reads an ASCII or binary STL file and welds identical vertices.
func LoadSTL(path string) (*Mesh, error) {
	solid, err := stl.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromSolid(solid).Clean(0), nil
}

// FromSolid returns the unwelded mesh of an STL solid.
func FromSolid(solid *stl.Solid) *Mesh {
	m := &Mesh{
		Vertices: make([]ms3.Vec, 0, 3*len(solid.Triangles)),
		Faces:    make([][3]int, 0, len(solid.Triangles)),
	}
	for _, tri := range solid.Triangles {
		n := len(m.Vertices)
		for _, v := range tri.Vertices {
			m.Vertices = append(m.Vertices, ms3.Vec{X: v[0], Y: v[1], Z: v[2]})
		}
		m.Faces = append(m.Faces, [3]int{n, n + 1, n + 2})
	}
	return m
}

func toSolid(m *Mesh, name string) *stl.Solid {
	solid := &stl.Solid{
		Name:      name,
		IsAscii:   true,
		Triangles: make([]stl.Triangle, len(m.Faces)),
	}
	for i := range m.Faces {
		tri := m.Triangle(i)
		var n ms3.Vec
		if cross := tri.Normal(); ms3.Norm(cross) > 0 {
			n = ms3.Unit(cross)
		}
		solid.Triangles[i] = stl.Triangle{
			Normal: stl.Vec3{n.X, n.Y, n.Z},
			Vertices: [3]stl.Vec3{
				{tri[0].X, tri[0].Y, tri[0].Z},
				{tri[1].X, tri[1].Y, tri[1].Z},
				{tri[2].X, tri[2].Y, tri[2].Z},
			},
		}
	}
	return solid
}
