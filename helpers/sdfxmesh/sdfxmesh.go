// Package sdfxmesh meshes sampled lattice fields with the octree marching
// cubes renderer of github.com/deadsy/sdfx.
package sdfxmesh

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/Hivelix/hackathon-additive4sport/render"
	"github.com/Hivelix/hackathon-additive4sport/tpms"
	sdfxrender "github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	"gonum.org/v1/gonum/spatial/r3"
)

// Extractor meshes a field with sdfx. sdfx writes its output to an STL
// file, which is read back and removed.
type Extractor struct {
	// MeshCells is the number of cells along the longest axis of the field.
	// Zero uses the sample count of the field along that axis.
	MeshCells int
	// TempDir holds the intermediate STL file. Empty uses os.TempDir.
	TempDir string
}

// Extract returns the triangles of the zero level set of f.
func (e Extractor) Extract(f *tpms.Field) ([]render.Triangle3, error) {
	cells := e.MeshCells
	if cells == 0 {
		shape := f.Shape()
		cells = max(shape[0], shape[1], shape[2]) - 1
	}
	if cells < 2 {
		return nil, fmt.Errorf("sdfx needs at least 2 mesh cells, got %d", cells)
	}
	fp, err := os.CreateTemp(e.TempDir, "sdfx-*.stl")
	if err != nil {
		return nil, err
	}
	path := fp.Name()
	fp.Close()
	defer os.Remove(path)

	sdfxrender.ToSTL(newField(f), cells, path, &sdfxrender.MarchingCubesOctree{})

	fp, err = os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	model, err := render.ReadSTL(fp)
	if err != nil && !errors.Is(err, render.ErrNormalMismatch) {
		return nil, fmt.Errorf("reading sdfx output: %w", err)
	}
	if len(model) == 0 {
		return nil, render.ErrEmptyMesh
	}
	return model, nil
}

// field adapts a tpms.Field to sdfx. Values are scaled down so that they
// never overestimate the distance to the surface, which the octree relies
// on to skip empty cubes.
type field struct {
	f     *tpms.Field
	scale float64
}

func newField(f *tpms.Field) field {
	k := math.Max(math.Sqrt(3)*f.LipschitzEstimate(), 1)
	return field{f: f, scale: 1 / k}
}

func (s field) Evaluate(p sdf.V3) float64 {
	return s.scale * s.f.Evaluate(fromV3(p))
}

func (s field) BoundingBox() sdf.Box3 {
	bb := s.f.Bounds()
	return sdf.Box3{
		Min: sdf.V3{X: bb.Min.X, Y: bb.Min.Y, Z: bb.Min.Z},
		Max: sdf.V3{X: bb.Max.X, Y: bb.Max.Y, Z: bb.Max.Z},
	}
}

func fromV3(v sdf.V3) r3.Vec { return r3.Vec{X: v.X, Y: v.Y, Z: v.Z} }
