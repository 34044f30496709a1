// Package pipeline builds graded lattice meshes from a configuration,
// writes them as STL files and renders them for comparison.
package pipeline

import (
	"fmt"

	"github.com/Hivelix/hackathon-additive4sport/helpers/sdfxmesh"
	"github.com/Hivelix/hackathon-additive4sport/mesh"
	"github.com/Hivelix/hackathon-additive4sport/render"
	"github.com/Hivelix/hackathon-additive4sport/tpms"
)

// Extractor turns a sampled field into the triangles of its zero level set.
type Extractor interface {
	Extract(f *tpms.Field) ([]render.Triangle3, error)
}

var (
	_ Extractor = TetraExtractor{}
	_ Extractor = sdfxmesh.Extractor{}
)

// TetraExtractor meshes fields with the marching tetrahedra renderer.
type TetraExtractor struct{}

// Extract implements Extractor.
func (TetraExtractor) Extract(f *tpms.Field) ([]render.Triangle3, error) {
	return render.Tetrahedralize(f)
}

// NewExtractor returns the extractor of the named backend. tempDir is only
// used by the sdfx backend.
func NewExtractor(backend, tempDir string) (Extractor, error) {
	switch backend {
	case BackendTetra, "":
		return TetraExtractor{}, nil
	case BackendSDFX:
		return sdfxmesh.Extractor{TempDir: tempDir}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", backend)
}

// BuildSheet samples the sheet part of lat and meshes it with ex.
func BuildSheet(lat tpms.Lattice, ex Extractor) (*mesh.Mesh, error) {
	return BuildPart(lat, tpms.Sheet, ex)
}

// BuildPart samples part of lat and meshes it with ex. Errors of the offset
// field are returned unchanged. Extraction failures and empty results are
// returned as a *tpms.MeshGenerationError.
func BuildPart(lat tpms.Lattice, part tpms.Part, ex Extractor) (*mesh.Mesh, error) {
	if ex == nil {
		panic("nil Extractor argument")
	}
	field, err := lat.Sample(part)
	if err != nil {
		return nil, err
	}
	return MeshField(field, ex)
}

// StreamField streams the marching tetrahedra triangles of f into a binary
// STL file at path without collecting them in memory. It returns the number
// of triangles written.
func StreamField(path string, f *tpms.Field) (int, error) {
	tr, err := render.NewTetraRenderer(f)
	if err != nil {
		return 0, err
	}
	if err := render.CreateSTL(path, tr); err != nil {
		return 0, err
	}
	_, n := tr.Stats()
	return n, nil
}

// MeshField meshes the zero level set of f with ex. Extraction failures and
// empty results are returned as a *tpms.MeshGenerationError.
func MeshField(f *tpms.Field, ex Extractor) (*mesh.Mesh, error) {
	if ex == nil {
		panic("nil Extractor argument")
	}
	model, err := ex.Extract(f)
	if err != nil {
		return nil, &tpms.MeshGenerationError{Err: err}
	}
	if len(model) == 0 {
		return nil, &tpms.MeshGenerationError{Err: render.ErrEmptyMesh}
	}
	return mesh.FromTriangles(model), nil
}
