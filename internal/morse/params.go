package morse

import "fmt"

// Offsets of the three parameters inside one pair's slot of the flat vector.
const (
	IndexD = iota
	IndexA
	IndexR0

	// Width is the number of parameters per element pair.
	Width
)

// Params is one Morse triple: well depth D, decay rate A and equilibrium
// distance R0.
type Params struct {
	D, A, R0 float64
}

// Entry binds a triple to its element pair. Symbols keeps the two elements
// in the order the guess gave them and may be empty.
type Entry struct {
	Pair    ElementPair
	Params  Params
	Symbols [2]string
}

// Elements returns the pair as it was written, falling back to the
// canonical order.
func (e Entry) Elements() (string, string) {
	if e.Symbols[0] == "" || e.Symbols[1] == "" {
		return e.Pair.A, e.Pair.B
	}
	return e.Symbols[0], e.Symbols[1]
}

// ParameterSet is the ordered list of element pair triples. The order is
// fixed when the set is loaded and defines the flat vector layout.
type ParameterSet []Entry

// Len returns the number of element pairs.
func (s ParameterSet) Len() int { return len(s) }

// Dim returns the length of the flat parameter vector.
func (s ParameterSet) Dim() int { return Width * len(s) }

// Index returns the position of pair in the set.
func (s ParameterSet) Index(pair ElementPair) (int, bool) {
	for i, e := range s {
		if e.Pair == pair {
			return i, true
		}
	}
	return 0, false
}

// Lookup returns a map from pair to position, for callers resolving many pairs.
func (s ParameterSet) Lookup() map[ElementPair]int {
	m := make(map[ElementPair]int, len(s))
	for i, e := range s {
		m[e.Pair] = i
	}
	return m
}

// ParamIndex is the flat vector index of parameter k of the i-th pair.
func ParamIndex(i, k int) int {
	return Width*i + k
}

// Flatten lays the triples out as [D0, a0, r00, D1, a1, r01, ...].
func (s ParameterSet) Flatten() []float64 {
	x := make([]float64, s.Dim())
	for i, e := range s {
		x[ParamIndex(i, IndexD)] = e.Params.D
		x[ParamIndex(i, IndexA)] = e.Params.A
		x[ParamIndex(i, IndexR0)] = e.Params.R0
	}
	return x
}

// Unflatten returns a copy of the set carrying the values of x.
func (s ParameterSet) Unflatten(x []float64) (ParameterSet, error) {
	if len(x) != s.Dim() {
		return nil, fmt.Errorf("parameter vector has length %d, want %d", len(x), s.Dim())
	}
	out := make(ParameterSet, len(s))
	for i, e := range s {
		out[i] = Entry{Pair: e.Pair, Params: At(x, i), Symbols: e.Symbols}
	}
	return out, nil
}

// At reads the triple of the i-th pair straight from a flat vector.
func At(x []float64, i int) Params {
	return Params{
		D:  x[ParamIndex(i, IndexD)],
		A:  x[ParamIndex(i, IndexA)],
		R0: x[ParamIndex(i, IndexR0)],
	}
}
