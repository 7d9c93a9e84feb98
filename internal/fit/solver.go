// Package fit drives the Levenberg-Marquardt fit of Morse parameters in
// bounded chunks of function evaluations.
package fit

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Convergence codes of a chunk, numbered after MINPACK lmder.
const (
	CodeObjective      = 1
	CodeStep           = 2
	CodeObjectiveStep  = 3
	CodeGradient       = 4
	CodeMaxEvaluations = 5
	CodeNumerical      = 6
)

var messages = map[int]string{
	CodeObjective:      "Both actual and predicted relative reductions in the sum of squares are at most ftol.",
	CodeStep:           "The relative error between two consecutive iterates is at most xtol.",
	CodeObjectiveStep:  "Both actual and predicted relative reductions in the sum of squares are at most ftol and the relative error between two consecutive iterates is at most xtol.",
	CodeGradient:       "The cosine of the angle between func(x) and any column of the Jacobian is at most gtol in absolute value.",
	CodeMaxEvaluations: "Number of calls to function has reached maxfev.",
	CodeNumerical:      "The damped normal equations could not be solved; the step was rejected.",
}

// Accepted reports whether code means the chunk met its tolerance.
func Accepted(code int) bool {
	return code >= CodeObjective && code <= CodeGradient
}

// ConvergenceMessage describes a convergence code.
func ConvergenceMessage(code int) string {
	if m, ok := messages[code]; ok {
		return m
	}
	return fmt.Sprintf("Unknown convergence code %d.", code)
}

// Problem is one bounded least-squares solve. Func writes the m residues at
// x into dst; Jac writes the m x n Jacobian, one row per residue.
type Problem struct {
	Func func(dst, x []float64)
	Jac  func(dst *mat.Dense, x []float64)
	Dim  int
	Size int
	Init []float64

	// MaxEvaluations bounds the calls to Func in this chunk.
	MaxEvaluations int
	// Factor bounds the initial step. Larger values allow longer first steps.
	Factor float64
	// Tolerance is used for the gradient, step and objective tests.
	Tolerance float64
}

// ChunkResult is the outcome of one bounded solve.
type ChunkResult struct {
	X           []float64
	Evaluations int
	Message     string
	Code        int
	// Err holds a numerical failure contained inside the chunk.
	Err error
}

// Solver runs one chunk. A returned error means the problem itself is
// unusable; numerical trouble is reported through ChunkResult.
type Solver interface {
	Solve(p Problem) (*ChunkResult, error)
}
