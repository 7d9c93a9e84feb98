//go:build gnuplot

package report

import (
	"fmt"

	"github.com/Arafatk/glot"

	"github.com/HamletTheHamster/morsefit/internal/fit"
)

// PreviewGnuplot opens a gnuplot window with the convergence trace and the
// energy parity. In this build gnuplot must be on PATH when the program
// starts, glot looks it up in its package init.
func PreviewGnuplot(
	s *fit.Summary,
) (
	err error,
) {

	if err := previewable(s); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("gnuplot: %v", r)
		}
	}()

	dimensions := 2
	persist := true
	debug := false

	trace, err := glot.NewPlot(dimensions, persist, debug)
	if err != nil {
		return fmt.Errorf("gnuplot: %w", err)
	}
	trace.SetTitle("Convergence")
	trace.SetXLabel("Function evaluations")
	trace.SetYLabel("log10 residual norm")
	xy := progressXYs(s.Result.History)
	evals, norms := make([]float64, len(xy)), make([]float64, len(xy))
	for i := range xy {
		evals[i], norms[i] = xy[i].X, xy[i].Y
	}
	if err := trace.AddPointGroup("residual", "lines", [][]float64{evals, norms}); err != nil {
		return err
	}

	parity, err := glot.NewPlot(dimensions, persist, debug)
	if err != nil {
		return fmt.Errorf("gnuplot: %w", err)
	}
	parity.SetTitle("Morse fit")
	parity.SetXLabel("Ab-initio energy")
	parity.SetYLabel("Morse energy")
	ab, mo := make([]float64, len(s.Energies)), make([]float64, len(s.Energies))
	for i, r := range s.Energies {
		ab[i], mo[i] = r.AbInitio, r.Morse
	}
	if err := parity.AddPointGroup("configurations", "points", [][]float64{ab, mo}); err != nil {
		return err
	}
	return parity.AddPointGroup("y = x", "lines", [][]float64{ab, ab})
}
