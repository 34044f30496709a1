package pipeline

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/Hivelix/hackathon-additive4sport/helpers/matter"
	"github.com/Hivelix/hackathon-additive4sport/mesh"
	"github.com/Hivelix/hackathon-additive4sport/tpms"
	"github.com/Hivelix/hackathon-additive4sport/view"
)

// Stage names a step of the per variant pipeline.
type Stage string

const (
	StageGrading  Stage = "grading"
	StageMeshing  Stage = "meshing"
	StageCleaning Stage = "cleaning"
	StageExport   Stage = "export"
	StageRender   Stage = "render"
)

// Output files written next to the STL files.
const (
	ComparisonFile = "comparison.png"
	ProfileFile    = "grading_profile.png"
)

// StageError reports the variant and stage where a run failed. Variant is
// empty for steps that involve every variant.
type StageError struct {
	Variant string
	Stage   Stage
	Err     error
}

func (e *StageError) Error() string {
	if e.Variant == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("variant %q: %s: %v", e.Variant, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Result describes one exported variant.
type Result struct {
	Variant string
	// Path of the STL file.
	Path string
	// Mesh is the cleaned mesh written to Path.
	Mesh *mesh.Mesh
	// RawFaces is the number of faces before cleaning.
	RawFaces int
	// VolumeFraction is the fraction of field samples inside the meshed
	// part, an estimate of its relative density.
	VolumeFraction float64
}

// Run meshes, cleans and exports the configured part of every variant of cfg in order, then
// renders the comparison image and the grading profile chart when enabled.
// Progress is written to logger, which may be nil. The first failure stops
// the run and is returned as a *StageError along with the results of the
// variants exported so far.
func Run(cfg Config, logger *log.Logger) ([]Result, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	ex, err := NewExtractor(cfg.Backend, "")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, &StageError{Stage: StageExport, Err: err}
	}
	format := mesh.Binary
	if cfg.ASCII {
		format = mesh.ASCII
	}
	var results []Result
	var lattices []tpms.Lattice
	for _, v := range cfg.Variants {
		lat, err := v.Lattice(cfg.Range())
		if err != nil {
			return results, &StageError{Variant: v.Name, Stage: StageGrading, Err: err}
		}
		part, err := v.LatticePart()
		if err != nil {
			return results, &StageError{Variant: v.Name, Stage: StageGrading, Err: err}
		}
		logger.Printf("%s: %s %s, %s grading, %v cells, %v samples", v.Name, lat.Surface(), part, v.Grading, lat.RepeatCell(), lat.Samples())
		field, err := lat.Sample(part)
		if err != nil {
			return results, &StageError{Variant: v.Name, Stage: StageGrading, Err: err}
		}
		raw, err := MeshField(field, ex)
		if err != nil {
			return results, &StageError{Variant: v.Name, Stage: StageMeshing, Err: err}
		}
		density := field.VolumeFraction()
		if cfg.RawOutput {
			path := filepath.Join(cfg.OutputDir, v.RawOutputName())
			n, err := StreamField(path, field)
			if err != nil {
				return results, &StageError{Variant: v.Name, Stage: StageExport, Err: err}
			}
			logger.Printf("%s: streamed %d uncleaned triangles to %s", v.Name, n, path)
		}
		m := raw.Clean(cfg.WeldTolerance)
		if cfg.Decimate > 0 {
			m, err = m.Decimate(cfg.Decimate)
			if err != nil {
				return results, &StageError{Variant: v.Name, Stage: StageCleaning, Err: err}
			}
		}
		if cfg.Material != "" {
			mat, err := matter.Lookup(cfg.Material)
			if err != nil {
				return results, &StageError{Variant: v.Name, Stage: StageCleaning, Err: err}
			}
			m = mat.Scale(m).Clean(0)
			logger.Printf("%s: scaled by %.4f for %s shrinkage", v.Name, mat.ScaleFactor(), mat)
		}
		if m.FaceCount() == 0 {
			return results, &StageError{Variant: v.Name, Stage: StageCleaning, Err: errors.New("no faces left after cleaning")}
		}
		logger.Printf("%s: %d raw faces, %d faces and %d vertices after cleaning, volume fraction %.3f", v.Name, raw.FaceCount(), m.FaceCount(), m.VertexCount(), density)
		path := filepath.Join(cfg.OutputDir, v.OutputName())
		if err := mesh.SaveSTL(path, m, format); err != nil {
			return results, &StageError{Variant: v.Name, Stage: StageExport, Err: err}
		}
		logger.Printf("%s: wrote %s (%s)", v.Name, path, format)
		results = append(results, Result{Variant: v.Name, Path: path, Mesh: m, RawFaces: raw.FaceCount(), VolumeFraction: density})
		lattices = append(lattices, lat)
	}

	if cfg.View {
		path := filepath.Join(cfg.OutputDir, ComparisonFile)
		if err := Compare(path, cfg.ViewWidth, cfg.ViewHeight, results); err != nil {
			return results, &StageError{Stage: StageRender, Err: err}
		}
		logger.Printf("wrote %s", path)
	}
	if cfg.Profile {
		series := make([]view.Series, len(cfg.Variants))
		for i, v := range cfg.Variants {
			series[i], err = Profile(v, lattices[i])
			if err != nil {
				return results, &StageError{Variant: v.Name, Stage: StageRender, Err: err}
			}
		}
		path := filepath.Join(cfg.OutputDir, ProfileFile)
		title := fmt.Sprintf("Wall offset, %g to %g", cfg.MinOffset, cfg.MaxOffset)
		if err := view.PlotProfile(path, title, series...); err != nil {
			return results, &StageError{Stage: StageRender, Err: err}
		}
		logger.Printf("wrote %s", path)
	}
	return results, nil
}

// Compare renders the meshes of results side by side on a 1×N grid, white,
// seen from above with a parallel projection and axes shown.
func Compare(path string, width, height int, results []Result) error {
	if len(results) == 0 {
		return errors.New("no meshes to compare")
	}
	p := view.NewPlotter(1, len(results), width, height)
	for i, r := range results {
		p.Subplot(0, i)
		p.AddMesh(r.Mesh, color.White)
		p.ViewXY()
		p.EnableParallelProjection()
		p.ShowAxes()
	}
	return p.Show(path)
}

// profileSamples is the number of points of a grading profile curve.
const profileSamples = 101

// Profile samples the offset of a variant along its grading axis: y for
// linear grading and x, through the z axis, otherwise.
func Profile(v VariantConfig, lat tpms.Lattice) (view.Series, error) {
	bb := lat.Bounds()
	origin := []float64{0}
	var g tpms.Grid
	axis := "x"
	if v.Grading == GradingLinear {
		axis = "y"
		g = tpms.NewGrid(origin, tpms.Linspace(bb.Min.Y, bb.Max.Y, profileSamples), origin)
	} else {
		g = tpms.NewGrid(tpms.Linspace(bb.Min.X, bb.Max.X, profileSamples), origin, origin)
	}
	offsets, err := lat.Offset().Offsets(g)
	if err != nil {
		return view.Series{}, err
	}
	s := view.Series{Name: v.Name + " (" + axis + ")", Y: offsets}
	if axis == "y" {
		s.X = g.Y
	} else {
		s.X = g.X
	}
	return s, nil
}
