package report

import (
	"errors"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/HamletTheHamster/morsefit/internal/fit"
)

// smallest residual norm drawn on the log axis
const normFloor = 1e-300

func energyXYs(
	rows []fit.EnergyRow,
) (
	plotter.XYs,
) {

	xy := make(plotter.XYs, len(rows))
	for i := range xy {
		xy[i].X = rows[i].AbInitio
		xy[i].Y = rows[i].Morse
	}
	return xy
}

func progressXYs(
	history []fit.Progress,
) (
	plotter.XYs,
) {

	xy := make(plotter.XYs, len(history))
	for i, p := range history {
		xy[i].X = float64(p.Evaluations)
		xy[i].Y = math.Log10(math.Max(p.ResidualNorm, normFloor))
	}
	return xy
}

// SaveParityPlot draws the fitted Morse energy against the ab-initio energy
// of every configuration, with the y = x guide line.
func SaveParityPlot(
	filename string,
	rows []fit.EnergyRow,
) (
	error,
) {

	if len(rows) == 0 {
		return errors.New("report: no energies to plot")
	}

	p := plot.New()
	p.Title.Text = "Morse fit"
	p.X.Label.Text = "Ab-initio energy"
	p.Y.Label.Text = "Morse energy"
	p.Add(plotter.NewGrid())

	pts := energyXYs(rows)
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, pt := range pts {
		lo = math.Min(lo, math.Min(pt.X, pt.Y))
		hi = math.Max(hi, math.Max(pt.X, pt.Y))
	}
	if lo == hi {
		lo, hi = lo-1, hi+1
	}

	guideLine := plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}}
	guide, err := plotter.NewLine(guideLine)
	if err != nil {
		return err
	}
	guide.Color = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	guide.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	scatter.GlyphStyle.Radius = vg.Points(4)
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}

	p.Add(guide, scatter)
	p.Legend.Add("configurations", scatter)
	p.Legend.Add("y = x", guide)
	p.Legend.Top = true
	p.Legend.Left = true

	return p.Save(6*vg.Inch, 6*vg.Inch, filename)
}

// SaveConvergencePlot draws log10 of the residual norm against the
// cumulative number of function evaluations, one point per chunk.
func SaveConvergencePlot(
	filename string,
	history []fit.Progress,
) (
	error,
) {

	if len(history) == 0 {
		return errors.New("report: no progress to plot")
	}

	p := plot.New()
	p.Title.Text = "Convergence"
	p.X.Label.Text = "Function evaluations"
	p.Y.Label.Text = "log10 residual norm"
	p.Add(plotter.NewGrid())

	line, points, err := plotter.NewLinePoints(progressXYs(history))
	if err != nil {
		return err
	}
	points.GlyphStyle.Shape = draw.CircleGlyph{}
	points.GlyphStyle.Radius = vg.Points(3)
	p.Add(line, points)

	return p.Save(8*vg.Inch, 5*vg.Inch, filename)
}
