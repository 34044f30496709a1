// Package view renders meshes side by side into a single image, the way an
// interactive multi-viewport plotter would show them.
package view

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/Hivelix/hackathon-additive4sport/mesh"
	"github.com/fogleman/fauxgl"
)

// Plotter lays out a grid of subplots. Each subplot holds meshes and its
// own camera settings. Methods configure the active subplot, selected with
// Subplot. The zero value is not usable, see NewPlotter.
type Plotter struct {
	rows, cols    int
	width, height int
	// Background fills every subplot before drawing.
	Background color.Color
	// Supersampling renders subplots at this multiple of their final size
	// before downsampling, for antialiasing.
	Supersampling int

	subplots []subplot
	active   int
}

type subplot struct {
	meshes   []coloredMesh
	topDown  bool
	parallel bool
	axes     bool
}

type coloredMesh struct {
	m     *mesh.Mesh
	color fauxgl.Color
}

// NewPlotter returns a plotter with a rows×cols grid of subplots filling an
// image of width×height pixels. The top left subplot is active.
func NewPlotter(rows, cols, width, height int) *Plotter {
	if rows <= 0 || cols <= 0 {
		panic("subplot grid must have positive rows and columns")
	}
	if width < cols || height < rows {
		panic("image too small for subplot grid")
	}
	return &Plotter{
		rows:          rows,
		cols:          cols,
		width:         width,
		height:        height,
		Background:    color.RGBA{R: 0x4c, G: 0x4c, B: 0x4c, A: 0xff},
		Supersampling: 2,
		subplots:      make([]subplot, rows*cols),
	}
}

// Shape returns the number of subplot rows and columns.
func (p *Plotter) Shape() (rows, cols int) { return p.rows, p.cols }

// Subplot makes the subplot at row, col active.
func (p *Plotter) Subplot(row, col int) {
	if row < 0 || row >= p.rows || col < 0 || col >= p.cols {
		panic(fmt.Sprintf("subplot (%d,%d) out of %dx%d grid", row, col, p.rows, p.cols))
	}
	p.active = row*p.cols + col
}

// AddMesh adds m to the active subplot drawn with a solid color c.
func (p *Plotter) AddMesh(m *mesh.Mesh, c color.Color) {
	if m == nil {
		panic("nil mesh argument")
	}
	sp := &p.subplots[p.active]
	sp.meshes = append(sp.meshes, coloredMesh{m: m, color: fauxgl.MakeColor(c)})
}

// ViewXY sets the active subplot's camera to look down the z axis with
// y pointing up.
func (p *Plotter) ViewXY() { p.subplots[p.active].topDown = true }

// EnableParallelProjection uses an orthographic projection for the active subplot.
func (p *Plotter) EnableParallelProjection() { p.subplots[p.active].parallel = true }

// ShowAxes draws x, y and z axes in red, green and blue in the active subplot.
func (p *Plotter) ShowAxes() { p.subplots[p.active].axes = true }

// Render draws every subplot and returns the composed image.
func (p *Plotter) Render() (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	draw.Draw(img, img.Bounds(), image.NewUniform(p.Background), image.Point{}, draw.Src)
	for i, sp := range p.subplots {
		row, col := i/p.cols, i%p.cols
		cell := image.Rect(
			col*p.width/p.cols, row*p.height/p.rows,
			(col+1)*p.width/p.cols, (row+1)*p.height/p.rows,
		)
		sub, err := p.renderSubplot(sp, cell.Dx(), cell.Dy())
		if err != nil {
			return nil, fmt.Errorf("subplot (%d,%d): %w", row, col, err)
		}
		draw.Draw(img, cell, sub, sub.Bounds().Min, draw.Src)
	}
	return img, nil
}

// Show renders the plotter and writes it to path as a PNG image.
func (p *Plotter) Show(path string) error {
	img, err := p.Render()
	if err != nil {
		return err
	}
	return fauxgl.SavePNG(path, img)
}
