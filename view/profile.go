package view

import (
	"errors"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Series is a named curve of wall offset against a coordinate.
type Series struct {
	Name string
	X, Y []float64
}

// PlotProfile draws every series as a line on one chart and saves it to
// path. The image format follows the path extension.
func PlotProfile(path, title string, series ...Series) error {
	if len(series) == 0 {
		return errors.New("no series to plot")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Coordinate"
	p.Y.Label.Text = "Offset"
	p.Add(plotter.NewGrid())
	for i, s := range series {
		if len(s.X) != len(s.Y) {
			return fmt.Errorf("series %q has %d x and %d y values", s.Name, len(s.X), len(s.Y))
		}
		pts := make(plotter.XYs, len(s.X))
		for j := range pts {
			pts[j] = plotter.XY{X: s.X[j], Y: s.Y[j]}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("series %q: %w", s.Name, err)
		}
		line.Width = vg.Points(1.5)
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}
	p.Legend.Top = true
	p.Legend.Left = true
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
