// Package tpms builds triply periodic minimal surface lattices whose wall
// thickness is graded by an offset field.
//
// A Lattice couples a Surface with an OffsetField and a sampling layout.
// Sampling a lattice yields a Field, a regular grid of implicit values that
// is negative inside the solid and can be handed to any mesher.
package tpms

import "gonum.org/v1/gonum/spatial/r3"

// SDF3 is the interface to an implicit 3D solid.
type SDF3 interface {
	// Evaluate returns an approximation of the signed distance from p
	// to the solid surface. The value is negative inside the solid.
	Evaluate(p r3.Vec) float64
	// Bounds returns the bounding box that completely contains the solid.
	Bounds() r3.Box
}
