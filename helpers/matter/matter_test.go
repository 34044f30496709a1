package matter

import (
	"math"
	"testing"

	"github.com/Hivelix/hackathon-additive4sport/mesh"
	"github.com/soypat/glgl/math/ms3"
)

func TestLookup(t *testing.T) {
	m, err := Lookup("PLA")
	if err != nil {
		t.Fatal(err)
	}
	if m != PLA {
		t.Errorf("got %v", m)
	}
	if _, err := Lookup("unobtainium"); err == nil {
		t.Error("expected error for unknown material")
	}
}

func TestScale(t *testing.T) {
	msh := &mesh.Mesh{
		Vertices: []ms3.Vec{{X: 0, Y: 0, Z: 0}, {X: 10, Y: 0, Z: 0}, {X: 0, Y: 10, Z: 0}},
		Faces:    [][3]int{{0, 1, 2}},
	}
	scaled := PLA.Scale(msh)
	if msh.Vertices[1].X != 10 {
		t.Fatal("input mesh modified")
	}
	want := float32(10 / (1 - 0.2e-2))
	if got := scaled.Vertices[1].X; math.Abs(float64(got-want)) > 1e-5 {
		t.Errorf("got x=%g, want %g", got, want)
	}
	if scaled.FaceCount() != 1 || scaled.Faces[0] != msh.Faces[0] {
		t.Errorf("faces changed: %v", scaled.Faces)
	}
	if PLA.ScaleFactor() <= 1 {
		t.Errorf("shrinking material should scale up, got %g", PLA.ScaleFactor())
	}
}

func TestInternalDimScale(t *testing.T) {
	if got := PLA.InternalDimScale(1); math.Abs(got-1.452) > 1e-12 {
		t.Errorf("got %g", got)
	}
	defer func() {
		if recover() == nil {
			t.Error("expected panic for zero dimension")
		}
	}()
	PLA.InternalDimScale(0)
}
