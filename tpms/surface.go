package tpms

import (
	"fmt"
	"math"
	"sort"
)

// Surface is a periodic implicit function family. Its level set at zero is a
// triply periodic minimal surface with period 2π along each axis.
type Surface struct {
	name string
	f    func(x, y, z float64) float64
}

// NewSurface returns a Surface evaluating f. Name is used for lookups and logging.
func NewSurface(name string, f func(x, y, z float64) float64) Surface {
	if f == nil {
		panic("nil surface function")
	}
	return Surface{name: name, f: f}
}

// Name returns the surface's name.
func (s Surface) Name() string { return s.name }

// Eval evaluates the surface function at phase coordinates (x,y,z).
func (s Surface) Eval(x, y, z float64) float64 { return s.f(x, y, z) }

// IsZero reports whether s was not initialized.
func (s Surface) IsZero() bool { return s.f == nil }

func (s Surface) String() string { return s.name }

var (
	Gyroid       = NewSurface("gyroid", gyroid)
	SchwarzP     = NewSurface("schwarzP", schwarzP)
	SchwarzD     = NewSurface("schwarzD", schwarzD)
	Neovius      = NewSurface("neovius", neovius)
	SchoenIWP    = NewSurface("schoenIWP", schoenIWP)
	SchoenFRD    = NewSurface("schoenFRD", schoenFRD)
	FischerKochS = NewSurface("fischerKochS", fischerKochS)
	Lidinoid     = NewSurface("lidinoid", lidinoid)
	Honeycomb    = NewSurface("honeycomb", honeycomb)
)

var surfaces = map[string]Surface{}

func init() {
	for _, s := range []Surface{Gyroid, SchwarzP, SchwarzD, Neovius, SchoenIWP, SchoenFRD, FischerKochS, Lidinoid, Honeycomb} {
		surfaces[s.name] = s
	}
}

// LookupSurface returns the builtin surface with the given name.
func LookupSurface(name string) (Surface, error) {
	s, ok := surfaces[name]
	if !ok {
		return Surface{}, invalid("surface", "%q unknown, want one of %v", name, SurfaceNames())
	}
	return s, nil
}

// SurfaceNames returns the sorted names of the builtin surfaces.
func SurfaceNames() []string {
	names := make([]string, 0, len(surfaces))
	for name := range surfaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func gyroid(x, y, z float64) float64 {
	sx, cx := math.Sincos(x)
	sy, cy := math.Sincos(y)
	sz, cz := math.Sincos(z)
	return sx*cy + sy*cz + sz*cx
}

func schwarzP(x, y, z float64) float64 {
	return math.Cos(x) + math.Cos(y) + math.Cos(z)
}

func schwarzD(x, y, z float64) float64 {
	sx, cx := math.Sincos(x)
	sy, cy := math.Sincos(y)
	sz, cz := math.Sincos(z)
	return sx*sy*sz + sx*cy*cz + cx*sy*cz + cx*cy*sz
}

func neovius(x, y, z float64) float64 {
	cx, cy, cz := math.Cos(x), math.Cos(y), math.Cos(z)
	return 3*(cx+cy+cz) + 4*cx*cy*cz
}

func schoenIWP(x, y, z float64) float64 {
	cx, cy, cz := math.Cos(x), math.Cos(y), math.Cos(z)
	return 2*(cx*cy+cy*cz+cz*cx) - (math.Cos(2*x) + math.Cos(2*y) + math.Cos(2*z))
}

func schoenFRD(x, y, z float64) float64 {
	c2x, c2y, c2z := math.Cos(2*x), math.Cos(2*y), math.Cos(2*z)
	return 4*math.Cos(x)*math.Cos(y)*math.Cos(z) - (c2x*c2y + c2y*c2z + c2z*c2x)
}

func fischerKochS(x, y, z float64) float64 {
	sx, cx := math.Sincos(x)
	sy, cy := math.Sincos(y)
	sz, cz := math.Sincos(z)
	return math.Cos(2*x)*sy*cz + cx*math.Cos(2*y)*sz + sx*cy*math.Cos(2*z)
}

func lidinoid(x, y, z float64) float64 {
	sx, cx := math.Sincos(x)
	sy, cy := math.Sincos(y)
	sz, cz := math.Sincos(z)
	s2x, c2x := math.Sincos(2 * x)
	s2y, c2y := math.Sincos(2 * y)
	s2z, c2z := math.Sincos(2 * z)
	return 0.5*(s2x*cy*sz+s2y*cz*sx+s2z*cx*sy) -
		0.5*(c2x*c2y+c2y*c2z+c2z*c2x) + 0.15
}

func honeycomb(x, y, z float64) float64 {
	return math.Sin(x)*math.Cos(y) + math.Sin(y) + math.Cos(z)
}

// phase maps a length coordinate to surface phase for a cell of the given size.
func phase(v, cellSize float64) float64 { return 2 * math.Pi * v / cellSize }

var _ fmt.Stringer = Surface{}
