package mesh

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Hivelix/hackathon-additive4sport/render"
	"github.com/Hivelix/hackathon-additive4sport/tpms"
	"github.com/google/go-cmp/cmp"
	"github.com/soypat/glgl/math/ms3"
	"gonum.org/v1/gonum/spatial/r3"
)

func sphereMesh(t *testing.T, r float64, n int) *Mesh {
	t.Helper()
	axis := tpms.Linspace(-1, 1, n)
	g := tpms.NewGrid(axis, axis, axis)
	values := make([]float64, g.Len())
	for i := range values {
		values[i] = r3.Norm(g.At(i)) - r
	}
	f, err := tpms.NewField(g, values)
	if err != nil {
		t.Fatal(err)
	}
	model, err := render.Tetrahedralize(f)
	if err != nil {
		t.Fatal(err)
	}
	return FromTriangles(model)
}

func TestCleanWeld(t *testing.T) {
	quad := []render.Triangle3{
		{{}, {X: 1}, {X: 1, Y: 1}},
		{{}, {X: 1, Y: 1}, {Y: 1}},
	}
	raw := FromTriangles(quad)
	if raw.VertexCount() != 6 || raw.FaceCount() != 2 {
		t.Fatalf("raw mesh has %d vertices and %d faces", raw.VertexCount(), raw.FaceCount())
	}
	got := raw.Clean(0)
	want := &Mesh{
		Vertices: []ms3.Vec{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1}},
		Faces:    [][3]int{{0, 1, 2}, {0, 2, 3}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("clean mismatch (-want +got):\n%s", diff)
	}
	if got.OpenEdges() != 4 {
		t.Errorf("got %d open edges, want 4", got.OpenEdges())
	}
}

func TestCleanDropsDegenerate(t *testing.T) {
	m := FromTriangles([]render.Triangle3{
		{{}, {X: 1}, {Y: 1}},
		{{}, {X: 1}, {X: 2}},           // zero area.
		{{Z: 1}, {Z: 1}, {X: 1, Z: 1}}, // repeated vertex.
	})
	got := m.Clean(0)
	if got.FaceCount() != 1 || got.VertexCount() != 3 {
		t.Errorf("got %d faces and %d vertices, want 1 and 3", got.FaceCount(), got.VertexCount())
	}
}

func TestCleanTolerance(t *testing.T) {
	m := FromTriangles([]render.Triangle3{
		{{}, {X: 1}, {Y: 1}},
		{{X: 1.0001}, {X: 1, Y: 1}, {Y: 1.0001}},
	})
	if got := m.Clean(0).VertexCount(); got != 6 {
		t.Fatalf("exact weld merged distinct vertices: %d", got)
	}
	welded := m.Clean(1e-3)
	if welded.VertexCount() != 4 {
		t.Errorf("got %d vertices, want 4", welded.VertexCount())
	}
	// First occurrence is kept.
	if welded.Vertices[1] != (ms3.Vec{X: 1}) {
		t.Errorf("got representative %v", welded.Vertices[1])
	}
	if diff := cmp.Diff(welded, welded.Clean(1e-3)); diff != "" {
		t.Errorf("clean not idempotent (-first +second):\n%s", diff)
	}
}

func TestCleanIdempotentClosed(t *testing.T) {
	raw := sphereMesh(t, 0.7, 15)
	clean := raw.Clean(0)
	if clean.VertexCount() >= raw.VertexCount() {
		t.Fatalf("clean did not merge vertices: %d -> %d", raw.VertexCount(), clean.VertexCount())
	}
	if open := clean.OpenEdges(); open != 0 {
		t.Errorf("sphere has %d open edges", open)
	}
	if err := clean.Validate(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(clean, clean.Clean(0)); diff != "" {
		t.Errorf("clean not idempotent (-first +second):\n%s", diff)
	}
	bb := clean.Bounds()
	want := ms3.Vec{X: 0.7, Y: 0.7, Z: 0.7}
	if ms3.Norm(ms3.Sub(bb.Max, want)) > 0.05 {
		t.Errorf("unexpected bounds %v", bb)
	}
}

func TestSTLRoundTrip(t *testing.T) {
	clean := sphereMesh(t, 0.6, 13).Clean(0)
	dir := t.TempDir()
	binPath := filepath.Join(dir, "sphere.stl")
	if err := SaveSTL(binPath, clean, Binary); err != nil {
		t.Fatal(err)
	}
	got, err := LoadSTL(binPath)
	if err != nil {
		t.Fatal(err)
	}
	if got.VertexCount() != clean.VertexCount() || got.FaceCount() != clean.FaceCount() {
		t.Fatalf("round trip changed counts: %d/%d -> %d/%d",
			clean.VertexCount(), clean.FaceCount(), got.VertexCount(), got.FaceCount())
	}
	if diff := cmp.Diff(clean, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	asciiPath := filepath.Join(dir, "sphere_ascii.stl")
	if err := SaveSTL(asciiPath, clean, ASCII); err != nil {
		t.Fatal(err)
	}
	got, err = LoadSTL(asciiPath)
	if err != nil {
		t.Fatal(err)
	}
	if got.FaceCount() != clean.FaceCount() {
		t.Errorf("ascii round trip: got %d faces, want %d", got.FaceCount(), clean.FaceCount())
	}
}

func TestSaveSTLErrors(t *testing.T) {
	clean := sphereMesh(t, 0.5, 9).Clean(0)
	dir := t.TempDir()
	for _, path := range []string{
		filepath.Join(dir, "missing", "dir.stl"),
		filepath.Join(dir, "sphere.obj"),
	} {
		err := SaveSTL(path, clean, Binary)
		var exportErr *ExportError
		if !errors.As(err, &exportErr) {
			t.Fatalf("expected ExportError, got %v", err)
		}
		if exportErr.Path != path {
			t.Errorf("got path %q, want %q", exportErr.Path, path)
		}
	}
	err := SaveSTL(filepath.Join(dir, "missing", "dir.stl"), clean, Binary)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped os.ErrNotExist, got %v", err)
	}
	if err := SaveSTL(filepath.Join(dir, "empty.stl"), &Mesh{}, Binary); err == nil {
		t.Error("expected error saving empty mesh")
	}
}

func TestDecimate(t *testing.T) {
	clean := sphereMesh(t, 0.7, 17).Clean(0)
	simple, err := clean.Decimate(0.25)
	if err != nil {
		t.Fatal(err)
	}
	if simple.FaceCount() == 0 || simple.FaceCount() >= clean.FaceCount() {
		t.Errorf("decimated %d faces to %d", clean.FaceCount(), simple.FaceCount())
	}
	if _, err := clean.Decimate(0); err == nil {
		t.Error("expected error for zero factor")
	}
}
