// Package morse holds the pairwise Morse potential: the per element pair
// parameter triples, their flat vector layout, the initial guess reader and
// the energy with its analytic partial derivatives.
package morse

// ElementPair is an unordered pair of element symbols. Build it with
// NewElementPair so that both orderings compare equal.
type ElementPair struct {
	A, B string
}

// NewElementPair returns the canonical pair for the two symbols.
func NewElementPair(x, y string) ElementPair {
	if y < x {
		x, y = y, x
	}
	return ElementPair{A: x, B: y}
}

func (p ElementPair) String() string {
	return p.A + "-" + p.B
}
