package render

import (
	"errors"
	"io"
)

// RenderAll drains r and returns every triangle it produced. io.EOF ends
// the read and is not returned, like io.ReadAll.
func RenderAll(r Renderer) ([]Triangle3, error) {
	model := make([]Triangle3, 0, 1<<12)
	var chunk [1024]Triangle3
	for {
		n, err := r.ReadTriangles(chunk[:])
		model = append(model, chunk[:n]...)
		switch {
		case errors.Is(err, io.EOF):
			return model, nil
		case err != nil:
			return model, err
		}
	}
}

// overflow holds triangles produced beyond the room left in a read.
type overflow []Triangle3

// drain moves as many held triangles as fit into dst.
func (o *overflow) drain(dst []Triangle3) int {
	n := copy(dst, *o)
	*o = (*o)[n:]
	if len(*o) == 0 {
		*o = nil
	}
	return n
}

func (o *overflow) push(t []Triangle3) { *o = append(*o, t...) }
