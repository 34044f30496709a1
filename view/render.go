package view

import (
	"errors"
	"image"
	"math"

	"github.com/Hivelix/hackathon-additive4sport/mesh"
	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"github.com/soypat/glgl/math/ms3"
)

const (
	fovy   = 30   // vertical field of view in degrees.
	margin = 1.05 // fraction of the view taken by the scene bounds.
)

var (
	light    = fauxgl.V(0.25, 0.5, 1).Normalize() // light direction
	axisRGBs = [3]fauxgl.Color{fauxgl.HexColor("#E63C3C"), fauxgl.HexColor("#3CC83C"), fauxgl.HexColor("#3C64E6")}
)

func (p *Plotter) renderSubplot(sp subplot, width, height int) (image.Image, error) {
	scale := max(p.Supersampling, 1)
	context := fauxgl.NewContext(width*scale, height*scale)
	context.ClearColorBufferWith(fauxgl.MakeColor(p.Background))
	context.Cull = fauxgl.CullNone
	if len(sp.meshes) > 0 {
		bb, err := sceneBounds(sp.meshes)
		if err != nil {
			return nil, err
		}
		cam := newCamera(bb, sp.topDown, sp.parallel, float64(width)/float64(height))
		for _, cm := range sp.meshes {
			shader := fauxgl.NewPhongShader(cam.matrix, light, cam.eye)
			shader.ObjectColor = cm.color
			context.Shader = shader
			context.DrawMesh(toFauxgl(cm.m))
		}
		if sp.axes {
			// Axes are drawn over the meshes.
			context.ClearDepthBuffer()
			context.LineWidth = float64(2 * scale)
			for i, line := range axisLines(bb) {
				context.Shader = fauxgl.NewSolidColorShader(cam.matrix, axisRGBs[i])
				context.DrawMesh(fauxgl.NewMesh(nil, []*fauxgl.Line{line}))
			}
		}
	}
	img := context.Image()
	if scale > 1 {
		// downsample image for antialiasing
		img = resize.Resize(uint(width), uint(height), img, resize.Bilinear)
	}
	return img, nil
}

type camera struct {
	eye    fauxgl.Vector
	matrix fauxgl.Matrix
}

// newCamera frames bb. Top down cameras look along -z with y up, others
// look at bb from an isometric direction with z up.
func newCamera(bb ms3.Box, topDown, parallel bool, aspect float64) camera {
	size := bb.Size()
	c := bb.Center()
	center := fauxgl.V(float64(c.X), float64(c.Y), float64(c.Z))
	radius := 0.5 * float64(ms3.Norm(size))
	dist := radius / math.Sin(fovy/2*math.Pi/180)
	var dir, up fauxgl.Vector
	if topDown {
		dir, up = fauxgl.V(0, 0, 1), fauxgl.V(0, 1, 0)
	} else {
		dir, up = fauxgl.V(1, -1, 1).Normalize(), fauxgl.V(0, 0, 1)
	}
	eye := center.Add(dir.MulScalar(dist))
	near, far := math.Max(dist-2*radius, 1e-3*radius), dist+2*radius
	lookAt := fauxgl.LookAt(eye, center, up)
	if !parallel {
		return camera{eye: eye, matrix: lookAt.Perspective(fovy, aspect, near, far)}
	}
	// Half height of the orthographic view volume.
	hh := radius
	if topDown {
		hh = math.Max(0.5*float64(size.Y), 0.5*float64(size.X)/aspect)
	} else if aspect < 1 {
		hh = radius / aspect
	}
	hh *= margin
	hw := hh * aspect
	return camera{eye: eye, matrix: lookAt.Orthographic(-hw, hw, -hh, hh, near, far)}
}

func sceneBounds(meshes []coloredMesh) (ms3.Box, error) {
	var bb ms3.Box
	for i, cm := range meshes {
		if cm.m.FaceCount() == 0 {
			return ms3.Box{}, errors.New("cannot view mesh without faces")
		}
		mb := cm.m.Bounds()
		if i == 0 {
			bb = mb
			continue
		}
		bb.Min = ms3.MinElem(bb.Min, mb.Min)
		bb.Max = ms3.MaxElem(bb.Max, mb.Max)
	}
	if ms3.Norm(bb.Size()) == 0 {
		return ms3.Box{}, errors.New("scene has zero extent")
	}
	return bb, nil
}

// axisLines returns x, y and z axis segments starting at the top corner of
// bb with the lowest x and y.
func axisLines(bb ms3.Box) [3]*fauxgl.Line {
	size := bb.Size()
	length := 0.25 * float64(max(size.X, size.Y, size.Z))
	o := fauxgl.V(float64(bb.Min.X), float64(bb.Min.Y), float64(bb.Max.Z))
	return [3]*fauxgl.Line{
		fauxgl.NewLineForPoints(o, o.Add(fauxgl.V(length, 0, 0))),
		fauxgl.NewLineForPoints(o, o.Add(fauxgl.V(0, length, 0))),
		fauxgl.NewLineForPoints(o, o.Add(fauxgl.V(0, 0, length))),
	}
}

func toFauxgl(m *mesh.Mesh) *fauxgl.Mesh {
	tris := make([]*fauxgl.Triangle, m.FaceCount())
	for i := range tris {
		t := m.Triangle(i)
		tris[i] = fauxgl.NewTriangleForPoints(fv(t[0]), fv(t[1]), fv(t[2]))
	}
	return fauxgl.NewTriangleMesh(tris)
}

func fv(v ms3.Vec) fauxgl.Vector {
	return fauxgl.V(float64(v.X), float64(v.Y), float64(v.Z))
}
