// Package matter compensates printed lattices for the behaviour of the
// printing material.
package matter

import (
	"fmt"
	"strings"

	"github.com/Hivelix/hackathon-additive4sport/mesh"
	"github.com/soypat/glgl/math/ms3"
)

var (
	// PLA (polylactic acid) is the most widely used plastic filament material in 3D printing.
	PLA = ViscousMaterial{name: "pla", shrink: 0.2e-2, pullShrink: .45} // 0.2% shrinkage
)

var materials = map[string]ViscousMaterial{
	PLA.name: PLA,
}

// Lookup returns the material with the given case insensitive name.
func Lookup(name string) (ViscousMaterial, error) {
	m, ok := materials[strings.ToLower(name)]
	if !ok {
		return ViscousMaterial{}, fmt.Errorf("unknown material %q", name)
	}
	return m, nil
}

type ViscousMaterial struct {
	name string
	// shrink is the thermal contraction shrinkage of a material once the material
	// cools to room temperature after the heated bed is turned off.
	shrink float64
	// pullShrink takes into account viscoelastic shrinkage.
	pullShrink float64
}

func (m ViscousMaterial) String() string { return m.name }

// ScaleFactor is the uniform scale that makes a part shrink back to its
// design size once printed.
func (m ViscousMaterial) ScaleFactor() float64 {
	return 1 / (1 - m.shrink)
}

// Scale returns a copy of msh scaled about the origin by ScaleFactor.
func (m ViscousMaterial) Scale(msh *mesh.Mesh) *mesh.Mesh {
	s := float32(m.ScaleFactor())
	out := &mesh.Mesh{
		Vertices: make([]ms3.Vec, len(msh.Vertices)),
		Faces:    append([][3]int(nil), msh.Faces...),
	}
	for i, v := range msh.Vertices {
		out.Vertices[i] = ms3.Vec{X: s * v.X, Y: s * v.Y, Z: s * v.Z}
	}
	return out
}

// InternalDimScale returns the design size of an internal dimension, such
// as a hole or channel through a lattice, that prints at size real.
func (m ViscousMaterial) InternalDimScale(real float64) float64 {
	if real <= 0 {
		panic("InternalDimScale only works for non-zero dimensions")
	}
	return real*(m.shrink+1) + m.pullShrink
}
