package pipeline

import (
	"errors"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Hivelix/hackathon-additive4sport/helpers/matter"
	"github.com/Hivelix/hackathon-additive4sport/mesh"
	"github.com/Hivelix/hackathon-additive4sport/render"
	"github.com/Hivelix/hackathon-additive4sport/tpms"
	"github.com/google/go-cmp/cmp"
)

func smallConfig(dir string) Config {
	cfg := DefaultConfig()
	cfg.OutputDir = dir
	cfg.ViewWidth, cfg.ViewHeight = 128, 64
	cfg.Variants[0].RepeatCell = [3]int{2, 2, 1}
	cfg.Variants[1].RepeatCell = [3]int{1, 2, 1}
	for i := range cfg.Variants {
		cfg.Variants[i].Resolution = 8
	}
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, v := range cfg.Variants {
		names = append(names, v.OutputName())
	}
	want := []string{"circular_graded_density.stl", "linear_graded_density.stl"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("outputs mismatch (-want +got):\n%s", diff)
	}
	if cfg.Range() != (tpms.OffsetRange{Min: 0.5, Max: 3}) {
		t.Errorf("got range %+v", cfg.Range())
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.json")
	data := `{
	"output_dir": "out",
	"backend": "tetra",
	"max_offset": 2.5,
	"variants": [
		{"name": "plain", "surface": "schwarzP", "grading": "constant", "offset": 1,
		 "repeat_cell": [2, 2, 2], "cell_size": [1, 1, 1], "resolution": 10}
	]
}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	want := DefaultConfig()
	want.OutputDir = "out"
	want.MaxOffset = 2.5
	want.Variants = []VariantConfig{{
		Name:       "plain",
		Surface:    "schwarzP",
		Grading:    GradingConstant,
		Offset:     1,
		RepeatCell: [3]int{2, 2, 2},
		CellSize:   [3]float64{1, 1, 1},
		Resolution: 10,
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigVariantsFromZero(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "two.json")
	data := `{"variants": [
		{"name": "a", "surface": "gyroid", "grading": "circular", "cell_size": [1, 1, 1], "resolution": 10},
		{"name": "b", "surface": "gyroid", "grading": "linear", "cell_size": [1, 1, 1], "resolution": 10}
	]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Variants) != 2 {
		t.Fatalf("got %d variants", len(got.Variants))
	}
	for _, v := range got.Variants {
		if v.RepeatCell != ([3]int{}) || v.Radius != 0 {
			t.Errorf("%s: inherited defaults repeat_cell=%v radius=%g", v.Name, v.RepeatCell, v.Radius)
		}
	}

	path = filepath.Join(dir, "novariants.json")
	if err := os.WriteFile(path, []byte(`{"max_offset": 2}`), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(DefaultConfig().Variants, got.Variants); diff != "" {
		t.Errorf("default variants mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, data string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}
	for _, path := range []string{
		write("config.yaml", "{}"),
		filepath.Join(dir, "missing.json"),
		write("broken.json", "{"),
		write("range.json", `{"min_offset": 3, "max_offset": 1}`),
		write("backend.json", `{"backend": "opengl"}`),
		write("empty.json", `{"variants": []}`),
		write("material.json", `{"material": "unobtainium"}`),
		write("dup.json", `{"variants": [{"name": "a"}, {"name": "a"}]}`),
		write("narrow.json", `{"view": true, "view_width": 1}`),
	} {
		if _, err := LoadConfig(path); err == nil {
			t.Errorf("%s: expected error", filepath.Base(path))
		}
	}
}

func TestVariantLattice(t *testing.T) {
	v := DefaultConfig().Variants[0]
	lat, err := v.Lattice(DefaultConfig().Range())
	if err != nil {
		t.Fatal(err)
	}
	if lat.Samples() != [3]int{150, 150, 30} {
		t.Errorf("got samples %v", lat.Samples())
	}
	if _, ok := lat.Offset().(tpms.CircularGrading); !ok {
		t.Errorf("got offset field %T", lat.Offset())
	}

	for _, test := range []struct {
		field  string
		modify func(v *VariantConfig)
	}{
		{"grading", func(v *VariantConfig) { v.Grading = "radial" }},
		{"resolution", func(v *VariantConfig) { v.Resolution = 0 }},
		{"cell size", func(v *VariantConfig) { v.CellSize = [3]float64{} }},
	} {
		v := DefaultConfig().Variants[1]
		test.modify(&v)
		_, err := v.Lattice(DefaultConfig().Range())
		var invalid *tpms.InvalidDescriptorError
		if !errors.As(err, &invalid) || invalid.Field != test.field {
			t.Errorf("expected InvalidDescriptorError on %q, got %v", test.field, err)
		}
	}
	v.Surface = "not-a-surface"
	if _, err := v.Lattice(DefaultConfig().Range()); err == nil {
		t.Error("expected error for unknown surface")
	}
}

func TestBuildSheet(t *testing.T) {
	cfg := smallConfig("")
	lat, err := cfg.Variants[0].Lattice(cfg.Range())
	if err != nil {
		t.Fatal(err)
	}
	raw, err := BuildSheet(lat, TetraExtractor{})
	if err != nil {
		t.Fatal(err)
	}
	m := raw.Clean(0)
	if m.FaceCount() == 0 {
		t.Fatal("no faces")
	}
	if open := m.OpenEdges(); open != 0 {
		t.Errorf("cleaned sheet has %d open edges", open)
	}
}

type failingExtractor struct{ err error }

func (f failingExtractor) Extract(*tpms.Field) ([]render.Triangle3, error) { return nil, f.err }

type emptyExtractor struct{}

func (emptyExtractor) Extract(*tpms.Field) ([]render.Triangle3, error) { return nil, nil }

func TestBuildSheetErrors(t *testing.T) {
	cfg := smallConfig("")
	lat, err := cfg.Variants[1].Lattice(cfg.Range())
	if err != nil {
		t.Fatal(err)
	}
	cause := errors.New("resolution too coarse")
	_, err = BuildSheet(lat, failingExtractor{err: cause})
	var meshErr *tpms.MeshGenerationError
	if !errors.As(err, &meshErr) {
		t.Fatalf("expected MeshGenerationError, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("cause not kept: %v", err)
	}

	_, err = BuildSheet(lat, emptyExtractor{})
	if !errors.As(err, &meshErr) || !errors.Is(err, render.ErrEmptyMesh) {
		t.Errorf("expected empty mesh error, got %v", err)
	}

	// A single y sample cannot be graded linearly. The grading error is
	// returned as is.
	v := cfg.Variants[1]
	v.RepeatCell = [3]int{1, 1, 1}
	v.Resolution = 1
	lat, err = v.Lattice(cfg.Range())
	if err != nil {
		t.Fatal(err)
	}
	_, err = BuildSheet(lat, TetraExtractor{})
	var degenerate *tpms.DegenerateGradingError
	if !errors.As(err, &degenerate) {
		t.Fatalf("expected DegenerateGradingError, got %v", err)
	}
	if errors.As(err, &meshErr) {
		t.Error("grading error wrapped as mesh generation error")
	}
}

func TestNewExtractor(t *testing.T) {
	for _, backend := range []string{BackendTetra, BackendSDFX} {
		if _, err := NewExtractor(backend, ""); err != nil {
			t.Errorf("%s: %v", backend, err)
		}
	}
	if _, err := NewExtractor("vulkan", ""); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	cfg := smallConfig(dir)
	results, err := Run(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	for i, r := range results {
		if r.Variant != cfg.Variants[i].Name {
			t.Errorf("result %d is variant %q, want %q", i, r.Variant, cfg.Variants[i].Name)
		}
		if r.Path != filepath.Join(dir, cfg.Variants[i].Name+"_graded_density.stl") {
			t.Errorf("unexpected path %s", r.Path)
		}
		if r.RawFaces < r.Mesh.FaceCount() {
			t.Errorf("%s: cleaning added faces", r.Variant)
		}
		if r.VolumeFraction <= 0 || r.VolumeFraction >= 1 {
			t.Errorf("%s: volume fraction %g out of (0,1)", r.Variant, r.VolumeFraction)
		}
		loaded, err := mesh.LoadSTL(r.Path)
		if err != nil {
			t.Fatal(err)
		}
		if loaded.VertexCount() != r.Mesh.VertexCount() || loaded.FaceCount() != r.Mesh.FaceCount() {
			t.Errorf("%s: reloaded %d/%d vertices/faces, wrote %d/%d", r.Variant,
				loaded.VertexCount(), loaded.FaceCount(), r.Mesh.VertexCount(), r.Mesh.FaceCount())
		}
	}
	fp, err := os.Open(filepath.Join(dir, ComparisonFile))
	if err != nil {
		t.Fatal(err)
	}
	defer fp.Close()
	img, err := png.Decode(fp)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 128 || b.Dy() != 64 {
		t.Errorf("comparison image is %dx%d", b.Dx(), b.Dy())
	}
	if _, err := os.Stat(filepath.Join(dir, ProfileFile)); err != nil {
		t.Error(err)
	}
}

func TestRunStageError(t *testing.T) {
	cfg := smallConfig(t.TempDir())
	cfg.View, cfg.Profile = false, false
	cfg.Variants[1].RepeatCell = [3]int{1, 1, 1}
	cfg.Variants[1].Resolution = 1
	results, err := Run(cfg, nil)
	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected StageError, got %v", err)
	}
	want := StageError{Variant: "linear", Stage: StageGrading}
	if stageErr.Variant != want.Variant || stageErr.Stage != want.Stage {
		t.Errorf("got %s/%s, want %s/%s", stageErr.Variant, stageErr.Stage, want.Variant, want.Stage)
	}
	var degenerate *tpms.DegenerateGradingError
	if !errors.As(err, &degenerate) {
		t.Errorf("cause lost: %v", err)
	}
	if len(results) != 1 || results[0].Variant != "circular" {
		t.Errorf("expected the circular variant to be exported first, got %d results", len(results))
	}

	cfg = smallConfig(t.TempDir())
	cfg.ASCII = true
	cfg.Variants[0].Output = "circular.obj"
	_, err = Run(cfg, nil)
	if !errors.As(err, &stageErr) || stageErr.Stage != StageExport {
		t.Fatalf("expected export StageError, got %v", err)
	}
	var exportErr *mesh.ExportError
	if !errors.As(err, &exportErr) {
		t.Errorf("expected ExportError cause, got %v", err)
	}
}

func TestProfile(t *testing.T) {
	cfg := DefaultConfig()
	for _, v := range cfg.Variants {
		lat, err := v.Lattice(cfg.Range())
		if err != nil {
			t.Fatal(err)
		}
		s, err := Profile(v, lat)
		if err != nil {
			t.Fatal(err)
		}
		if len(s.X) != profileSamples || len(s.Y) != profileSamples {
			t.Fatalf("%s: got %d/%d samples", v.Name, len(s.X), len(s.Y))
		}
		switch v.Grading {
		case GradingLinear:
			if s.Y[0] != cfg.MinOffset || s.Y[len(s.Y)-1] != cfg.MaxOffset {
				t.Errorf("linear profile ends %g, %g", s.Y[0], s.Y[len(s.Y)-1])
			}
		case GradingCircular:
			if mid := s.Y[profileSamples/2]; math.Abs(mid-cfg.MinOffset) > 1e-12 {
				t.Errorf("circular profile at axis is %g", mid)
			}
			// The lattice reaches 2.5 from the axis, past the 2.3 radius.
			if s.Y[0] <= cfg.MaxOffset {
				t.Errorf("circular profile at edge is %g, expected overshoot", s.Y[0])
			}
		}
	}
}

func TestRunMaterial(t *testing.T) {
	cfg := smallConfig(t.TempDir())
	cfg.View, cfg.Profile = false, false
	cfg.Variants = cfg.Variants[1:]
	plain, err := Run(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	cfg.OutputDir = t.TempDir()
	cfg.Material = "pla"
	scaled, err := Run(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	got := scaled[0].Mesh.Bounds().Size().Y
	want := plain[0].Mesh.Bounds().Size().Y * float32(matter.PLA.ScaleFactor())
	if math.Abs(float64(got-want)) > 1e-4 {
		t.Errorf("scaled height %g, want %g", got, want)
	}
}

func TestRunPart(t *testing.T) {
	cfg := smallConfig(t.TempDir())
	cfg.View, cfg.Profile = false, false
	cfg.Variants = cfg.Variants[1:]
	sheet, err := Run(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	cfg.OutputDir = t.TempDir()
	cfg.Variants[0].Part = tpms.LowerSkeletal.String()
	lower, err := Run(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if lower[0].Mesh.FaceCount() == 0 {
		t.Fatal("lower skeletal mesh is empty")
	}
	if lower[0].VolumeFraction <= 0 || lower[0].VolumeFraction >= 1 {
		t.Errorf("lower skeletal volume fraction %g out of (0,1)", lower[0].VolumeFraction)
	}
	if lower[0].VolumeFraction == sheet[0].VolumeFraction {
		t.Errorf("sheet and lower skeletal share volume fraction %g", sheet[0].VolumeFraction)
	}

	cfg.Variants[0].Part = "lattice"
	_, err = Run(cfg, nil)
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageGrading {
		t.Fatalf("expected grading StageError, got %v", err)
	}
	var descErr *tpms.InvalidDescriptorError
	if !errors.As(err, &descErr) || descErr.Field != "part" {
		t.Errorf("expected invalid part cause, got %v", err)
	}
}

func TestRunRawOutput(t *testing.T) {
	dir := t.TempDir()
	cfg := smallConfig(dir)
	cfg.View, cfg.Profile = false, false
	cfg.RawOutput = true
	cfg.Variants = cfg.Variants[1:]
	results, err := Run(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "linear_graded_density_raw.stl")
	fp, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer fp.Close()
	model, err := render.ReadSTL(fp)
	if err != nil && !errors.Is(err, render.ErrNormalMismatch) {
		t.Fatal(err)
	}
	if len(model) != results[0].RawFaces {
		t.Errorf("streamed %d triangles, meshed %d", len(model), results[0].RawFaces)
	}

	cfg.Variants = append(cfg.Variants, VariantConfig{Name: "other", Output: "linear_graded_density_raw.stl"})
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for raw output clashing with a variant output")
	}
}
