package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Hivelix/hackathon-additive4sport/helpers/matter"
	"github.com/Hivelix/hackathon-additive4sport/tpms"
	"gonum.org/v1/gonum/spatial/r3"
)

// Grading policy names accepted in VariantConfig.Grading.
const (
	GradingLinear   = "linear"
	GradingCircular = "circular"
	GradingConstant = "constant"
)

// Mesh extraction backends accepted in Config.Backend.
const (
	BackendTetra = "tetra"
	BackendSDFX  = "sdfx"
)

// Config describes a run: which lattice variants to build and where to
// write the results. The offset range is shared by every variant.
type Config struct {
	OutputDir string  `json:"output_dir"`
	MinOffset float64 `json:"min_offset"`
	MaxOffset float64 `json:"max_offset"`
	Backend   string  `json:"backend"`
	// ASCII writes ASCII instead of binary STL files.
	ASCII bool `json:"ascii,omitempty"`
	// WeldTolerance merges vertices closer than this distance when
	// cleaning. Zero merges identical vertices only.
	WeldTolerance float32 `json:"weld_tolerance,omitempty"`
	// RawOutput also streams the uncleaned marching tetrahedra triangles of
	// each variant into <name>_raw.stl, whatever the backend.
	RawOutput bool `json:"raw_output,omitempty"`
	// Decimate keeps this fraction of the faces of each cleaned mesh.
	// Zero disables decimation.
	Decimate float64 `json:"decimate,omitempty"`
	// Material scales exported meshes to compensate the shrinkage of the
	// named printing material. Empty exports design size.
	Material string `json:"material,omitempty"`
	// View renders the cleaned meshes side by side into comparison.png.
	View       bool `json:"view"`
	ViewWidth  int  `json:"view_width"`
	ViewHeight int  `json:"view_height"`
	// Profile plots the offset of each variant along its grading axis
	// into grading_profile.png.
	Profile  bool            `json:"profile"`
	Variants []VariantConfig `json:"variants"`
}

// VariantConfig describes one graded lattice.
type VariantConfig struct {
	Name    string `json:"name"`
	Surface string `json:"surface"`
	Grading string `json:"grading"`
	// Part is the lattice region to mesh: "sheet" (default),
	// "upper-skeletal", "lower-skeletal" or "surface".
	Part string `json:"part,omitempty"`
	// Radius of circular grading.
	Radius float64 `json:"radius,omitempty"`
	// Offset of constant grading.
	Offset float64 `json:"offset,omitempty"`
	// Clamp limits offsets to [min_offset, max_offset].
	Clamp      bool       `json:"clamp,omitempty"`
	RepeatCell [3]int     `json:"repeat_cell"`
	CellSize   [3]float64 `json:"cell_size"`
	Resolution int        `json:"resolution"`
	// Output is the STL file name inside the output directory.
	// Defaults to <name>_graded_density.stl.
	Output string `json:"output,omitempty"`
}

// DefaultConfig returns the reference run: gyroid sheets with circular and
// linear grading between offsets 0.5 and 3. The circular variant comes first,
// so it takes the left subplot of the comparison image and the linear
// variant the right one.
func DefaultConfig() Config {
	return Config{
		OutputDir:  ".",
		MinOffset:  0.5,
		MaxOffset:  3.0,
		Backend:    BackendTetra,
		View:       true,
		ViewWidth:  1536,
		ViewHeight: 768,
		Profile:    true,
		Variants: []VariantConfig{
			{
				Name:       "circular",
				Surface:    tpms.Gyroid.Name(),
				Grading:    GradingCircular,
				Radius:     tpms.DefaultRadius,
				RepeatCell: [3]int{5, 5, 1},
				CellSize:   [3]float64{1, 1, 1},
				Resolution: 30,
			},
			{
				Name:       "linear",
				Surface:    tpms.Gyroid.Name(),
				Grading:    GradingLinear,
				RepeatCell: [3]int{1, 5, 1},
				CellSize:   [3]float64{1, 1, 1},
				Resolution: 30,
			},
		},
	}
}

// LoadConfig reads a JSON configuration file. Run level fields missing from
// the file keep their DefaultConfig values. Variants listed in the file start
// from zero values; a file without variants runs the default ones.
func LoadConfig(path string) (Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return Config{}, fmt.Errorf("config file must have .json extension, got %q", ext)
	}
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 << 20
	if fileInfo.Size() > maxFileSize {
		return Config{}, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := DefaultConfig()
	// File variants start from zero values.
	cfg.Variants = nil
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if cfg.Variants == nil {
		cfg.Variants = DefaultConfig().Variants
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Range returns the offset range shared by all variants.
func (c Config) Range() tpms.OffsetRange {
	return tpms.OffsetRange{Min: c.MinOffset, Max: c.MaxOffset}
}

// Validate checks run level settings. Lattice parameters are checked when
// each variant's descriptor is built.
func (c Config) Validate() error {
	if err := c.Range().Validate(); err != nil {
		return err
	}
	switch c.Backend {
	case BackendTetra, BackendSDFX:
	default:
		return fmt.Errorf("unknown backend %q, want %q or %q", c.Backend, BackendTetra, BackendSDFX)
	}
	if c.WeldTolerance < 0 {
		return fmt.Errorf("weld_tolerance must be non-negative, got %g", c.WeldTolerance)
	}
	if c.Decimate < 0 || c.Decimate > 1 {
		return fmt.Errorf("decimate must be between 0 and 1, got %g", c.Decimate)
	}
	if c.Material != "" {
		if _, err := matter.Lookup(c.Material); err != nil {
			return err
		}
	}
	if len(c.Variants) == 0 {
		return fmt.Errorf("no variants configured")
	}
	// Every variant needs at least one pixel column of the comparison image.
	if c.View && (c.ViewWidth < len(c.Variants) || c.ViewHeight <= 0) {
		return fmt.Errorf("view size %dx%d too small for %d variants", c.ViewWidth, c.ViewHeight, len(c.Variants))
	}
	seen := make(map[string]bool)
	for _, v := range c.Variants {
		if v.Name == "" {
			return fmt.Errorf("variant without name")
		}
		names := []string{v.OutputName()}
		if c.RawOutput {
			names = append(names, v.RawOutputName())
		}
		for _, name := range names {
			if seen[name] {
				return fmt.Errorf("variants share output file %q", name)
			}
			seen[name] = true
		}
	}
	return nil
}

// OutputName returns the STL file name of the variant.
func (v VariantConfig) OutputName() string {
	if v.Output != "" {
		return v.Output
	}
	return v.Name + "_graded_density.stl"
}

// RawOutputName returns the file name of the uncleaned triangles of the
// variant, written when Config.RawOutput is set.
func (v VariantConfig) RawOutputName() string {
	return strings.TrimSuffix(v.OutputName(), ".stl") + "_raw.stl"
}

// OffsetField returns the grading policy of the variant over r.
func (v VariantConfig) OffsetField(r tpms.OffsetRange) (tpms.OffsetField, error) {
	var f tpms.OffsetField
	switch v.Grading {
	case GradingLinear:
		f = tpms.LinearGrading{Range: r}
	case GradingCircular:
		radius := v.Radius
		if radius == 0 {
			radius = tpms.DefaultRadius
		}
		f = tpms.CircularGrading{Range: r, Radius: radius}
	case GradingConstant:
		f = tpms.ConstantOffset(v.Offset)
	default:
		return nil, &tpms.InvalidDescriptorError{
			Field:  "grading",
			Reason: fmt.Sprintf("%q unknown, want %q, %q or %q", v.Grading, GradingLinear, GradingCircular, GradingConstant),
		}
	}
	if v.Clamp {
		f = tpms.Clamp(f, r)
	}
	return f, nil
}

// LatticePart returns the lattice region meshed for the variant.
func (v VariantConfig) LatticePart() (tpms.Part, error) {
	return tpms.ParsePart(v.Part)
}

// Lattice returns the lattice descriptor of the variant.
func (v VariantConfig) Lattice(r tpms.OffsetRange) (tpms.Lattice, error) {
	surface, err := tpms.LookupSurface(v.Surface)
	if err != nil {
		return tpms.Lattice{}, err
	}
	offset, err := v.OffsetField(r)
	if err != nil {
		return tpms.Lattice{}, err
	}
	return tpms.NewLattice(tpms.LatticeParms{
		Surface:    surface,
		Offset:     offset,
		RepeatCell: v.RepeatCell,
		CellSize:   r3.Vec{X: v.CellSize[0], Y: v.CellSize[1], Z: v.CellSize[2]},
		Resolution: v.Resolution,
	})
}
