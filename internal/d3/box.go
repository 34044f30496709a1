package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Box is an axis aligned box with the distance queries lattice sampling needs.
type Box r3.Box

// Size returns the size of a 3d box.
func (a Box) Size() r3.Vec {
	return r3.Sub(a.Max, a.Min)
}

// Center returns the center of a 3d box.
func (a Box) Center() r3.Vec {
	return r3.Add(a.Min, r3.Scale(0.5, a.Size()))
}

// Inset returns the box shrunk by d on every side. Negative components grow it.
func (a Box) Inset(d r3.Vec) Box {
	return Box{Min: r3.Add(a.Min, d), Max: r3.Sub(a.Max, d)}
}

// Clamp returns the point of the box closest to p.
func (a Box) Clamp(p r3.Vec) r3.Vec {
	return MinElem(a.Max, MaxElem(a.Min, p))
}

// Distance returns the signed distance from p to the box surface.
// The distance is negative for points inside the box.
func (a Box) Distance(p r3.Vec) float64 {
	q := r3.Sub(AbsElem(r3.Sub(p, a.Center())), r3.Scale(0.5, a.Size()))
	return r3.Norm(MaxElem(q, r3.Vec{})) + math.Min(Max(q), 0)
}
