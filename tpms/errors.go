package tpms

import (
	"errors"
	"fmt"
)

// ErrInvalidGrid is returned when a Grid's coordinate arrays do not match its shape.
var ErrInvalidGrid = errors.New("invalid sample grid")

// DegenerateGradingError is returned by a grading policy when the grid has
// no extent along the grading axis, which would otherwise divide by zero.
type DegenerateGradingError struct {
	Axis    string
	Samples int     // samples along Axis.
	Length  float64 // extent along Axis.
}

func (e *DegenerateGradingError) Error() string {
	return fmt.Sprintf("degenerate grading: %s extent is %g over %d sample(s)", e.Axis, e.Length, e.Samples)
}

// InvalidDescriptorError is returned when a lattice descriptor or one of
// its grading parameters is malformed.
type InvalidDescriptorError struct {
	Field  string
	Reason string
}

func (e *InvalidDescriptorError) Error() string {
	return "invalid lattice descriptor: " + e.Field + " " + e.Reason
}

// MeshGenerationError wraps a failure of the mesh extraction backend.
// The underlying error is kept intact and available through errors.Unwrap.
type MeshGenerationError struct {
	Err error
}

func (e *MeshGenerationError) Error() string {
	return "mesh generation: " + e.Err.Error()
}

func (e *MeshGenerationError) Unwrap() error { return e.Err }

func invalid(field, format string, a ...any) error {
	return &InvalidDescriptorError{Field: field, Reason: fmt.Sprintf(format, a...)}
}
