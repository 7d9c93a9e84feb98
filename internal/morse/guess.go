package morse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrEmptyGuess is returned when a guess stream holds no entries.
var ErrEmptyGuess = errors.New("no Morse parameters in guess")

// GuessError reports a malformed line of an initial guess.
type GuessError struct {
	Line int
	Err  error
}

func (e *GuessError) Error() string {
	return fmt.Sprintf("guess line %d: %v", e.Line, e.Err)
}

func (e *GuessError) Unwrap() error { return e.Err }

// ReadGuess parses initial Morse parameters, one pair per line:
//
//	<el1> <el2> <D> <a> <r0>
//
// Blank lines and lines starting with '#' are skipped. The order of the lines
// is the order of the returned set.
func ReadGuess(r io.Reader) (ParameterSet, error) {
	var set ParameterSet
	seen := make(map[ElementPair]int)

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		words := strings.Fields(text)
		if len(words) != 5 {
			return nil, &GuessError{Line: line, Err: fmt.Errorf("expected 5 fields, got %d", len(words))}
		}

		var v [3]float64
		for k := range v {
			f, err := strconv.ParseFloat(words[2+k], 64)
			if err != nil {
				return nil, &GuessError{Line: line, Err: err}
			}
			v[k] = f
		}

		pair := NewElementPair(words[0], words[1])
		if prev, ok := seen[pair]; ok {
			return nil, &GuessError{Line: line, Err: fmt.Errorf("pair %s already given on line %d", pair, prev)}
		}
		seen[pair] = line

		set = append(set, Entry{
			Pair:    pair,
			Params:  Params{D: v[0], A: v[1], R0: v[2]},
			Symbols: [2]string{words[0], words[1]},
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading guess: %w", err)
	}
	if len(set) == 0 {
		return nil, ErrEmptyGuess
	}
	return set, nil
}
