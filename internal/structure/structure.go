// Package structure reads atomic configurations and derives the atom pairs
// that enter the Morse energy sum.
package structure

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	chem "github.com/rmera/gochem"
	v3 "github.com/rmera/gochem/v3"

	"github.com/HamletTheHamster/morsefit/internal/morse"
)

// FileError reports an unreadable or malformed configuration file. Line is
// zero when the failure is not tied to a line.
type FileError struct {
	Path string
	Line int
	Err  error
}

func (e *FileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Pair is one retained atom pair.
type Pair struct {
	I, J     int
	Elements morse.ElementPair
	Distance float64
}

// Configuration is an atomic structure with its ab-initio reference energy.
// It is not modified after it has been read.
type Configuration struct {
	FileName  string
	Tag       string
	AbInitio  float64
	Elements  []string
	Positions [][3]float64
	Pairs     []Pair
}

// ReadConfiguration reads an extended XYZ file. A nil cutoff keeps every pair.
func ReadConfiguration(path string, cutoff *float64) (*Configuration, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	defer f.Close()

	return Parse(path, f, cutoff)
}

// Parse reads a configuration from r. The layout is
//
//	<atom count>
//	<ab-initio energy> [tag ...]
//	<element> <x> <y> <z>   (one line per atom)
//
// When no tag is given the base name of the file, without extension, is used.
// The energy line is read here, atoms and coordinates go through gochem's XYZ
// reader.
func Parse(name string, r io.Reader, cutoff *float64) (*Configuration, error) {
	if cutoff != nil && (math.IsNaN(*cutoff) || *cutoff < 0) {
		return nil, &FileError{Path: name, Err: fmt.Errorf("invalid cutoff %g", *cutoff)}
	}

	lines, err := readLines(r)
	if err != nil {
		return nil, &FileError{Path: name, Err: err}
	}
	fail := func(line int, err error) (*Configuration, error) {
		return nil, &FileError{Path: name, Line: line, Err: err}
	}

	if len(lines) == 0 {
		return fail(0, errors.New("empty file"))
	}
	n, err := strconv.Atoi(lines[0])
	if err != nil {
		return fail(1, fmt.Errorf("atom count: %w", err))
	}
	if n < 1 {
		return fail(1, fmt.Errorf("atom count %d is not positive", n))
	}

	if len(lines) < 2 {
		return fail(1, errors.New("missing energy line"))
	}
	conf := &Configuration{FileName: name}
	words := strings.Fields(lines[1])
	if len(words) == 0 {
		return fail(2, errors.New("missing ab-initio energy"))
	}
	conf.AbInitio, err = strconv.ParseFloat(words[0], 64)
	if err != nil {
		return fail(2, fmt.Errorf("ab-initio energy: %w", err))
	}
	conf.Tag = strings.Join(words[1:], " ")
	if conf.Tag == "" {
		base := filepath.Base(name)
		conf.Tag = strings.TrimSuffix(base, filepath.Ext(base))
	}

	// lines[2 : 2+n] are the atoms; line numbers are one-based.
	for k := 2; k < 2+n; k++ {
		if k >= len(lines) {
			return fail(len(lines), fmt.Errorf("expected %d atoms, found %d", n, k-2))
		}
		if len(strings.Fields(lines[k])) < 4 {
			return fail(k+1, fmt.Errorf("atom line needs element and 3 coordinates, got %q", lines[k]))
		}
	}
	for k := 2 + n; k < len(lines); k++ {
		if lines[k] != "" {
			return fail(k+1, fmt.Errorf("unexpected content after %d atoms", n))
		}
	}

	mol, err := chem.XYZRead(strings.NewReader(strings.Join(lines[:2+n], "\n") + "\n"))
	if err != nil {
		return fail(badCoordinate(lines[2:2+n]), err)
	}
	if mol.Len() != n || len(mol.Coords) == 0 {
		return fail(0, fmt.Errorf("read %d atoms, want %d", mol.Len(), n))
	}

	coords := mol.Coords[0]
	conf.Elements = make([]string, n)
	conf.Positions = make([][3]float64, n)
	for i := 0; i < n; i++ {
		conf.Elements[i] = mol.Atom(i).Symbol
		for k := range conf.Positions[i] {
			conf.Positions[i][k] = coords.At(i, k)
		}
	}

	conf.Pairs = pairs(conf.Elements, coords, cutoff)
	return conf, nil
}

// readLines returns the trimmed lines of r.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines = append(lines, strings.TrimSpace(sc.Text()))
	}
	return lines, sc.Err()
}

// badCoordinate returns the file line of the first atom whose coordinates
// are not numbers, or zero.
func badCoordinate(atoms []string) int {
	for i, text := range atoms {
		for _, w := range strings.Fields(text)[1:4] {
			if _, err := strconv.ParseFloat(w, 64); err != nil {
				return i + 3
			}
		}
	}
	return 0
}

func pairs(elements []string, coords *v3.Matrix, cutoff *float64) []Pair {
	var out []Pair
	for i := range elements {
		for j := i + 1; j < len(elements); j++ {
			d := Distance(coords.VecView(i), coords.VecView(j))
			if cutoff != nil && d > *cutoff {
				continue
			}
			out = append(out, Pair{
				I:        i,
				J:        j,
				Elements: morse.NewElementPair(elements[i], elements[j]),
				Distance: d,
			})
		}
	}
	return out
}

// Distance is the Euclidean distance between two 1x3 coordinate rows.
func Distance(a, b *v3.Matrix) float64 {
	d := v3.Zeros(1)
	d.Sub(a, b)
	return d.Norm(2)
}

// PairSet lists the distinct element pairs among the retained pairs, in the
// order they first occur.
func (c *Configuration) PairSet() []morse.ElementPair {
	seen := make(map[morse.ElementPair]bool)
	var out []morse.ElementPair
	for _, p := range c.Pairs {
		if !seen[p.Elements] {
			seen[p.Elements] = true
			out = append(out, p.Elements)
		}
	}
	return out
}
