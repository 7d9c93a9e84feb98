package fit

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/HamletTheHamster/morsefit/internal/morse"
	"github.com/HamletTheHamster/morsefit/internal/residue"
	"github.com/HamletTheHamster/morsefit/internal/structure"
)

var unit = morse.Params{D: 1, A: 1, R0: 1}

var dimerDistances = []float64{0.7, 0.85, 1.0, 1.2, 1.5, 2.0, 2.5, 3.0}

// dimers builds H2 configurations whose reference energies are the exact
// Morse energies of p.
func dimers(t *testing.T, p morse.Params, distances []float64) []*structure.Configuration {
	t.Helper()
	var confs []*structure.Configuration
	for _, d := range distances {
		body := fmt.Sprintf("2\n%.17g\nH 0 0 0\nH 0 0 %.17g\n", morse.Energy(p, d), d)
		c, err := structure.Parse(fmt.Sprintf("h2_%g.xyz", d), strings.NewReader(body), nil)
		require.NoError(t, err)
		confs = append(confs, c)
	}
	return confs
}

func hhGuess(p morse.Params) morse.ParameterSet {
	return morse.ParameterSet{{Pair: morse.NewElementPair("H", "H"), Params: p}}
}

func generator(t *testing.T, confs []*structure.Configuration, set morse.ParameterSet) *residue.Generator {
	t.Helper()
	g, err := residue.New(confs, set)
	require.NoError(t, err)
	return g
}

// stubSolver returns a fixed code and counts its calls.
type stubSolver struct {
	code  int
	calls int
}

func (s *stubSolver) Solve(p Problem) (*ChunkResult, error) {
	s.calls++
	x := append([]float64(nil), p.Init...)
	x[0] += 0.001
	return &ChunkResult{X: x, Evaluations: p.MaxEvaluations, Code: s.code, Message: ConvergenceMessage(s.code)}, nil
}

func TestAccepted(t *testing.T) {
	for code := 0; code <= 7; code++ {
		assert.Equal(t, code >= 1 && code <= 4, Accepted(code), "code %d", code)
	}
	assert.Contains(t, ConvergenceMessage(CodeMaxEvaluations), "maxfev")
	assert.Contains(t, ConvergenceMessage(99), "99")
}

func TestFitRecoversSyntheticParameters(t *testing.T) {
	g := generator(t, dimers(t, unit, dimerDistances), hhGuess(unit))
	init := hhGuess(morse.Params{D: 1.2, A: 0.8, R0: 1.15}).Flatten()

	var seen []Progress
	res, err := NewDriver(LMSolver{}).WithObserver(func(p Progress) { seen = append(seen, p) }).Run(g, init)
	require.NoError(t, err)

	assert.Equal(t, Converged, res.State)
	assert.Nil(t, res.Warning)
	assert.True(t, Accepted(res.Code), "code %d: %s", res.Code, res.Message)
	assert.InDeltaSlice(t, []float64{1, 1, 1}, res.X, 1e-5)
	assert.Less(t, res.ResidualNorm, 1e-6)
	assert.Equal(t, res.History, seen)
	assert.Equal(t, []float64{1.2, 0.8, 1.15}, init, "initial vector is not modified")
}

func TestFitIndependentOfConfigurationOrder(t *testing.T) {
	guess := morse.Params{D: 0.9, A: 1.25, R0: 0.9}
	confs := dimers(t, unit, dimerDistances)

	reversed := make([]*structure.Configuration, len(confs))
	for i, c := range confs {
		reversed[len(confs)-1-i] = c
	}

	a, err := NewDriver(nil).Run(generator(t, confs, hhGuess(guess)), hhGuess(guess).Flatten())
	require.NoError(t, err)
	b, err := NewDriver(nil).Run(generator(t, reversed, hhGuess(guess)), hhGuess(guess).Flatten())
	require.NoError(t, err)

	assert.Equal(t, Converged, a.State)
	assert.Equal(t, Converged, b.State)
	assert.InDeltaSlice(t, a.X, b.X, 1e-6)
}

func TestFitIsDeterministic(t *testing.T) {
	init := hhGuess(morse.Params{D: 1.3, A: 0.7, R0: 1.2}).Flatten()
	run := func() *Result {
		g := generator(t, dimers(t, unit, dimerDistances), hhGuess(unit))
		res, err := NewDriver(nil).WithTrunkSize(5).WithMaxChunks(4).Run(g, init)
		require.NoError(t, err)
		return res
	}
	assert.Equal(t, run(), run())
}

func TestExactGuessConvergesInFirstChunk(t *testing.T) {
	g := generator(t, dimers(t, unit, dimerDistances), hhGuess(unit))

	res, err := NewDriver(nil).Run(g, hhGuess(unit).Flatten())
	require.NoError(t, err)
	assert.Equal(t, Converged, res.State)
	assert.Equal(t, 1, res.Chunks)
	assert.Equal(t, CodeObjective, res.Code)
	assert.Equal(t, []float64{1, 1, 1}, res.X)
}

func TestBudgetExhaustedWithinMaxChunks(t *testing.T) {
	g := generator(t, dimers(t, unit, dimerDistances), hhGuess(unit))
	stub := &stubSolver{code: CodeMaxEvaluations}

	res, err := NewDriver(stub).WithMaxChunks(7).WithTrunkSize(3).Run(g, hhGuess(unit).Flatten())
	require.NoError(t, err)

	assert.Equal(t, 7, stub.calls)
	assert.Equal(t, 7, res.Chunks)
	assert.Equal(t, 21, res.Evaluations)
	assert.Equal(t, BudgetExhausted, res.State)
	require.NotNil(t, res.Warning)
	assert.Equal(t, CodeMaxEvaluations, res.Warning.Code)
	assert.InDelta(t, 1.007, res.X[0], 1e-12, "last vector is kept")
	require.Len(t, res.History, 7)
	assert.Equal(t, 18, res.History[6].Step)
	assert.Equal(t, BudgetExhausted, res.History[6].State)
}

func TestStopsAtFirstConvergedChunk(t *testing.T) {
	g := generator(t, dimers(t, unit, dimerDistances), hhGuess(unit))
	for _, code := range []int{CodeObjective, CodeStep, CodeObjectiveStep, CodeGradient} {
		stub := &stubSolver{code: code}
		res, err := NewDriver(stub).Run(g, hhGuess(unit).Flatten())
		require.NoError(t, err)
		assert.Equal(t, 1, stub.calls)
		assert.Equal(t, Converged, res.State)
	}
}

func TestLMSolverRespectsEvaluationBudget(t *testing.T) {
	g := generator(t, dimers(t, unit, dimerDistances), hhGuess(unit))
	init := hhGuess(morse.Params{D: 3, A: 0.3, R0: 1.8}).Flatten()

	res, err := NewDriver(nil).WithTrunkSize(2).WithMaxChunks(3).Run(g, init)
	require.NoError(t, err)

	assert.Equal(t, BudgetExhausted, res.State)
	assert.Equal(t, 3, res.Chunks)
	assert.LessOrEqual(t, res.Evaluations, 6)
	for i := 1; i < len(res.History); i++ {
		assert.LessOrEqual(t, res.History[i].ResidualNorm, res.History[i-1].ResidualNorm)
	}
}

// brokenModel fails inside the residue once the first parameter moves.
type brokenModel struct{ *residue.Generator }

func (m brokenModel) Residue(dst, x []float64) {
	if x[0] != 1.5 {
		panic("singular")
	}
	m.Generator.Residue(dst, x)
}

func TestNumericalFailureIsContained(t *testing.T) {
	g := generator(t, dimers(t, unit, dimerDistances), hhGuess(unit))
	m := brokenModel{g}
	init := []float64{1.5, 1, 1}

	solver := LMSolver{}
	out, err := solver.Solve(Problem{
		Func: m.Residue, Jac: m.Jacobian, Dim: 3, Size: g.Size(),
		Init: init, MaxEvaluations: 100, Factor: 0.01, Tolerance: 1e-8,
	})
	require.NoError(t, err)
	assert.Equal(t, CodeNumerical, out.Code)
	var ne *NumericalError
	assert.True(t, errors.As(out.Err, &ne))
	assert.Equal(t, init, out.X)

	res, err := NewDriver(solver).WithMaxChunks(3).Run(m, init)
	require.NoError(t, err)
	assert.Equal(t, BudgetExhausted, res.State)
	assert.Equal(t, 3, res.Chunks)
}

func TestExtremeStartDoesNotCrash(t *testing.T) {
	g := generator(t, dimers(t, unit, dimerDistances), hhGuess(unit))

	res, err := NewDriver(nil).WithTrunkSize(200).WithMaxChunks(2).Run(g, []float64{1, 500, 3})
	require.NoError(t, err)
	for _, v := range res.X {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
	assert.False(t, math.IsNaN(res.ResidualNorm))
}

func TestDriverRejectsBadSettings(t *testing.T) {
	g := generator(t, dimers(t, unit, dimerDistances), hhGuess(unit))
	x := hhGuess(unit).Flatten()

	_, err := NewDriver(nil).WithTrunkSize(0).Run(g, x)
	assert.Error(t, err)
	_, err = NewDriver(nil).WithMaxChunks(0).Run(g, x)
	assert.Error(t, err)
	_, err = NewDriver(nil).WithFactor(0).Run(g, x)
	assert.Error(t, err)
	_, err = NewDriver(nil).WithTolerance(-1).Run(g, x)
	assert.Error(t, err)
	_, err = NewDriver(nil).Run(g, []float64{1, 2})
	assert.Error(t, err)
}

func TestLMSolverRejectsBadProblem(t *testing.T) {
	_, err := LMSolver{}.Solve(Problem{Dim: 1, Size: 1, Init: []float64{0}, MaxEvaluations: 1})
	assert.Error(t, err)

	f := func(dst, x []float64) {}
	j := func(dst *mat.Dense, x []float64) {}
	_, err = LMSolver{}.Solve(Problem{Func: f, Jac: j, Dim: 2, Size: 1, Init: []float64{0}, MaxEvaluations: 1})
	assert.Error(t, err)
	_, err = LMSolver{}.Solve(Problem{Func: f, Jac: j, Dim: 1, Size: 1, Init: []float64{0}})
	assert.Error(t, err)
	_, err = LMSolver{}.Solve(Problem{Func: f, Jac: j, Dim: 1, Size: 1, Init: []float64{0}, MaxEvaluations: 1})
	assert.Error(t, err, "zero step factor")
}

func TestDampingFallsAsFactorGrows(t *testing.T) {
	assert.InDelta(t, 0.01, damping(0.01), 1e-15)
	assert.Greater(t, damping(0.001), damping(0.01))
	assert.Greater(t, damping(0.01), damping(1))
	assert.Greater(t, damping(1), damping(100))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "converged", Converged.String())
	assert.Equal(t, "budget exhausted", BudgetExhausted.String())
	assert.Equal(t, "State(9)", State(9).String())
}
