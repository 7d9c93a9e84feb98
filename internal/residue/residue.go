// Package residue builds the least-squares error vector of a Morse fit and
// its analytic Jacobian over a fixed set of configurations.
//
// The residue of configuration i is E_morse_i(x) - E_abinitio_i, so the fitted
// energy of a configuration is its ab-initio energy plus its residue. The
// Jacobian is m x n, one row per configuration and one column per entry of
// the flat parameter vector.
package residue

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/HamletTheHamster/morsefit/internal/morse"
	"github.com/HamletTheHamster/morsefit/internal/structure"
)

// MissingParameterError is returned by New when a configuration holds an
// atom pair whose element pair has no Morse parameters.
type MissingParameterError struct {
	FileName string
	Pair     morse.ElementPair
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("%s: no Morse parameters for element pair %s", e.FileName, e.Pair)
}

// term is one retained atom pair resolved to its slot in the parameter set.
type term struct {
	slot     int
	distance float64
}

type row struct {
	abInitio float64
	terms    []term
}

// Generator evaluates residues and Jacobians for a fixed configuration list
// and parameter ordering. It holds no mutable state and may be called any
// number of times.
type Generator struct {
	rows []row
	dim  int
}

// New resolves every retained pair of every configuration against set.
func New(confs []*structure.Configuration, set morse.ParameterSet) (*Generator, error) {
	if len(confs) == 0 {
		return nil, errors.New("no configurations to fit")
	}
	if set.Len() == 0 {
		return nil, errors.New("empty Morse parameter set")
	}

	lookup := set.Lookup()
	g := &Generator{rows: make([]row, len(confs)), dim: set.Dim()}
	for i, c := range confs {
		r := row{abInitio: c.AbInitio, terms: make([]term, len(c.Pairs))}
		for k, p := range c.Pairs {
			slot, ok := lookup[p.Elements]
			if !ok {
				return nil, &MissingParameterError{FileName: c.FileName, Pair: p.Elements}
			}
			r.terms[k] = term{slot: slot, distance: p.Distance}
		}
		g.rows[i] = r
	}
	return g, nil
}

// Size is the number of residues, one per configuration.
func (g *Generator) Size() int { return len(g.rows) }

// Dim is the length of the parameter vector.
func (g *Generator) Dim() int { return g.dim }

func (g *Generator) checkDim(x []float64) {
	if len(x) != g.dim {
		panic(fmt.Sprintf("residue: parameter vector has length %d, want %d", len(x), g.dim))
	}
}

func (r row) energy(x []float64) float64 {
	var e float64
	for _, t := range r.terms {
		e += morse.Energy(morse.At(x, t.slot), t.distance)
	}
	return morse.Saturate(e)
}

// Residue writes E_morse(x) - E_abinitio for every configuration into dst.
func (g *Generator) Residue(dst, x []float64) {
	g.checkDim(x)
	for i, r := range g.rows {
		dst[i] = morse.Saturate(r.energy(x) - r.abInitio)
	}
}

// Jacobian writes d residue_i / d x_j into dst, which must be Size x Dim.
func (g *Generator) Jacobian(dst *mat.Dense, x []float64) {
	g.checkDim(x)
	dst.Zero()
	for i, r := range g.rows {
		for _, t := range r.terms {
			dD, dA, dR0 := morse.Gradient(morse.At(x, t.slot), t.distance)
			j := morse.ParamIndex(t.slot, 0)
			dst.Set(i, j+morse.IndexD, morse.Saturate(dst.At(i, j+morse.IndexD)+dD))
			dst.Set(i, j+morse.IndexA, morse.Saturate(dst.At(i, j+morse.IndexA)+dA))
			dst.Set(i, j+morse.IndexR0, morse.Saturate(dst.At(i, j+morse.IndexR0)+dR0))
		}
	}
}

// Residues allocates and returns the residue vector at x.
func (g *Generator) Residues(x []float64) []float64 {
	dst := make([]float64, g.Size())
	g.Residue(dst, x)
	return dst
}

// JacobianMatrix allocates and returns the Jacobian at x.
func (g *Generator) JacobianMatrix(x []float64) *mat.Dense {
	dst := mat.NewDense(g.Size(), g.Dim(), nil)
	g.Jacobian(dst, x)
	return dst
}

// Energies returns the Morse energy of every configuration at x.
func (g *Generator) Energies(x []float64) []float64 {
	g.checkDim(x)
	out := make([]float64, len(g.rows))
	for i, r := range g.rows {
		out[i] = r.energy(x)
	}
	return out
}
