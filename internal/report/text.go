// Package report renders fitted Morse parameters and energy comparisons:
// console tables, an xlsx workbook, PNG plots and a gnuplot preview.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/HamletTheHamster/morsefit/internal/fit"
	"github.com/HamletTheHamster/morsefit/internal/morse"
)

var rule = strings.Repeat("*", 80)

// WriteParams prints one line per element pair: elements, D, a, r0.
func WriteParams(
	w io.Writer,
	set morse.ParameterSet,
	x []float64,
) (
	error,
) {

	fitted, err := set.Unflatten(x)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w, rule); err != nil {
		return err
	}
	for _, e := range fitted {
		a, b := e.Elements()
		_, err := fmt.Fprintf(w, " %5s %5s  %25.10f %25.10f %25.10f \n",
			a, b, e.Params.D, e.Params.A, e.Params.R0)
		if err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(w)
	return err
}

// WriteProgress prints the residual norm after a chunk and the parameters
// it reached.
func WriteProgress(
	w io.Writer,
	set morse.ParameterSet,
	p fit.Progress,
) (
	error,
) {

	if _, err := fmt.Fprintf(w, "\n Step %d: Residue = %f\n", p.Step, p.ResidualNorm); err != nil {
		return err
	}
	return WriteParams(w, set, p.X)
}

// WriteEnergies prints the ab-initio and fitted energy of every configuration.
func WriteEnergies(
	w io.Writer,
	rows []fit.EnergyRow,
) (
	error,
) {

	if len(rows) == 0 {
		return errors.New("report: no energies to write")
	}

	var b strings.Builder
	fmt.Fprintf(&b, " %20s %20s %25s %25s \n", "File Name", "tag", "Ab-initio", "Morse")
	b.WriteString(rule + "\n")
	for _, r := range rows {
		fmt.Fprintf(&b, " %20s %20s %25.10f %25.10f \n", r.FileName, r.Tag, r.AbInitio, r.Morse)
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteSummary prints the final state of the fit, the energy comparison and
// the fitted parameters.
func WriteSummary(
	w io.Writer,
	s *fit.Summary,
) (
	error,
) {

	res := s.Result

	var b strings.Builder
	fmt.Fprintf(&b, "\nOptimization finished...\n")
	fmt.Fprintf(&b, " Number of function calls: %d\n", res.Evaluations)
	if res.State == fit.Converged {
		b.WriteString("Convergence achieved!\n")
	} else {
		b.WriteString("Warning: Convergence failed for the specified criteria!\n")
		fmt.Fprintf(&b, " Reason: %s\n", res.Message)
	}
	b.WriteString("\n")
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}

	if err := WriteEnergies(w, s.Energies); err != nil {
		return err
	}
	return WriteParams(w, s.Guess, res.X)
}
