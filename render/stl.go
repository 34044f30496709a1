package render

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	stlHeaderSize = 84
	stlRecordSize = 50
	// trianglesInBuffer is the number of triangles CreateSTL encodes per write.
	trianglesInBuffer = 1 << 10
)

// ErrNormalMismatch is returned by ReadSTL when a stored normal disagrees
// with the normal calculated from the triangle vertices. The triangles are
// still returned; ignore this error if the model is OK.
var ErrNormalMismatch = errors.New("STL triangle normal not approximately equal to calculated normal from vertices")

// CreateSTL streams the triangles of r into a binary STL file at path.
func CreateSTL(path string, r Renderer) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	// The triangle count is only known once r is drained. Leave room for
	// the header and fill it in at the end.
	if _, err = file.Seek(stlHeaderSize, io.SeekStart); err != nil {
		return err
	}
	n, err := io.CopyBuffer(file, &stlReader{r: r}, make([]byte, stlRecordSize*trianglesInBuffer))
	if err != nil {
		return err
	}
	if _, err = file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err = writeSTLHeader(file, int(n/stlRecordSize)); err != nil {
		return err
	}
	return file.Close()
}

// WriteSTL writes model triangles to a writer in binary STL format.
func WriteSTL(w io.Writer, model []Triangle3) error {
	if len(model) == 0 {
		return errors.New("empty triangle slice")
	}
	if err := writeSTLHeader(w, len(model)); err != nil {
		return err
	}
	var b [stlRecordSize]byte
	for _, t := range model {
		recordOf(t).encode(b[:])
		if _, err := w.Write(b[:]); err != nil {
			return err
		}
	}
	return nil
}

// ReadSTL reads a binary STL model. Errors wrapping ErrNormalMismatch come
// with the full model.
func ReadSTL(r io.Reader) ([]Triangle3, error) {
	var header [stlHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, errors.New("encountered EOF while reading STL header")
		}
		return nil, fmt.Errorf("STL header read failed: %w", err)
	}
	count := int(binary.LittleEndian.Uint32(header[80:]))
	if count == 0 {
		return nil, errors.New("STL header indicates 0 triangles present")
	}
	var (
		b          [stlRecordSize]byte
		rec        stlRecord
		mismatches int
	)
	model := make([]Triangle3, 0, count)
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, fmt.Errorf("%d/%d STL triangles read: %w", i, count, err)
		}
		rec.decode(b[:])
		switch err := rec.validate(); {
		case errors.Is(err, ErrNormalMismatch):
			mismatches++
		case err != nil:
			return nil, fmt.Errorf("STL triangle %d: %w", i, err)
		}
		model = append(model, rec.triangle())
	}
	if mismatches > 0 {
		return model, fmt.Errorf("%w (%d/%d triangles)", ErrNormalMismatch, mismatches, count)
	}
	return model, nil
}

// writeSTLHeader writes an empty 80 byte comment followed by the triangle count.
func writeSTLHeader(w io.Writer, count int) error {
	var header [stlHeaderSize]byte
	binary.LittleEndian.PutUint32(header[80:], uint32(count))
	_, err := w.Write(header[:])
	return err
}

// stlReader encodes the triangles of a Renderer as STL records.
type stlReader struct {
	r   Renderer
	buf [trianglesInBuffer]Triangle3
	err error
}

func (sr *stlReader) Read(b []byte) (int, error) {
	if sr.err != nil {
		return 0, sr.err
	}
	room := min(len(b)/stlRecordSize, len(sr.buf))
	if room == 0 {
		return 0, io.ErrShortBuffer
	}
	written := 0
	for written < room && sr.err == nil {
		var nt int
		nt, sr.err = sr.r.ReadTriangles(sr.buf[:room-written])
		for _, t := range sr.buf[:nt] {
			recordOf(t).encode(b[written*stlRecordSize:])
			written++
		}
	}
	if written > 0 {
		return written * stlRecordSize, nil
	}
	return 0, sr.err
}

// stlRecord holds the twelve floats of a binary STL triangle: the normal
// followed by the three vertices. The trailing attribute count is always zero.
type stlRecord [12]float32

func recordOf(t Triangle3) (rec stlRecord) {
	for i, v := range [4]r3.Vec{t.Normal(), t[0], t[1], t[2]} {
		rec[3*i], rec[3*i+1], rec[3*i+2] = float32(v.X), float32(v.Y), float32(v.Z)
	}
	return rec
}

func (rec stlRecord) encode(b []byte) {
	_ = b[stlRecordSize-1] // early bounds check
	for i, f := range rec {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(f))
	}
	binary.LittleEndian.PutUint16(b[48:], 0)
}

func (rec *stlRecord) decode(b []byte) {
	_ = b[stlRecordSize-1] // early bounds check
	for i := range rec {
		rec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
}

func (rec stlRecord) vec(i int) r3.Vec {
	return r3.Vec{X: float64(rec[3*i]), Y: float64(rec[3*i+1]), Z: float64(rec[3*i+2])}
}

func (rec stlRecord) triangle() Triangle3 {
	return Triangle3{rec.vec(1), rec.vec(2), rec.vec(3)}
}

func (rec stlRecord) validate() error {
	const normTol = 5e-2
	for i, f := range rec {
		if math32.IsNaN(f) || math32.IsInf(f, 0) {
			if i < 3 {
				return errors.New("inf/NaN STL triangle normal")
			}
			return errors.New("inf/NaN STL triangle vertex")
		}
	}
	stored := rec.vec(0)
	calc := rec.triangle().Normal()
	if stored == (r3.Vec{}) || calc == (r3.Vec{}) {
		// Zero area triangles carry no usable normal.
		return nil
	}
	// Normals are compared in float32, the precision they were stored with.
	calc = r3.Vec{X: float64(float32(calc.X)), Y: float64(float32(calc.Y)), Z: float64(float32(calc.Z))}
	if !equalWithin(calc, stored, normTol) && !equalWithin(r3.Scale(-1, calc), stored, normTol) {
		return ErrNormalMismatch
	}
	return nil
}
