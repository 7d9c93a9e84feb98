package fit

import (
	"errors"
	"math"

	"github.com/maorshutman/lm"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// LMSolver runs github.com/maorshutman/lm for one chunk.
type LMSolver struct{}

// dampingScale is the lm Tau reached at a step factor of 1. Tau is the
// initial damping, so it falls as the factor grows and the first steps get
// longer.
const dampingScale = 1e-4

// damping maps a step factor to lm's initial damping Tau.
func damping(factor float64) float64 {
	return dampingScale / factor
}

// budgetReached unwinds lm.LM once the evaluation budget is spent.
type budgetReached struct{}

// counter wraps the residue function, counting calls and remembering the
// lowest-norm point evaluated. lm only accepts steps that lower the sum of
// squares, so that point is the current iterate.
type counter struct {
	fn       func(dst, x []float64)
	limit    int
	calls    int
	best     []float64
	bestNorm float64
}

func (c *counter) eval(dst, x []float64) {
	if c.calls >= c.limit {
		panic(budgetReached{})
	}
	c.calls++
	c.fn(dst, x)
	if n := floats.Norm(dst, 2); n < c.bestNorm {
		c.bestNorm = n
		copy(c.best, x)
	}
}

func validate(p Problem) error {
	switch {
	case p.Func == nil || p.Jac == nil:
		return errors.New("fit: problem needs a function and a jacobian")
	case p.Dim < 1 || p.Size < 1:
		return errors.New("fit: problem dimension and size must be positive")
	case len(p.Init) != p.Dim:
		return errors.New("fit: initial vector length does not match dimension")
	case p.MaxEvaluations < 1:
		return errors.New("fit: evaluation budget must be positive")
	case !(p.Factor > 0) || math.IsInf(p.Factor, 1):
		return errors.New("fit: step factor must be positive and finite")
	}
	return nil
}

// Solve implements Solver.
func (LMSolver) Solve(p Problem) (res *ChunkResult, err error) {
	if err := validate(p); err != nil {
		return nil, err
	}

	c := &counter{
		fn:       p.Func,
		limit:    p.MaxEvaluations,
		best:     make([]float64, p.Dim),
		bestNorm: math.Inf(1),
	}
	copy(c.best, p.Init)

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if _, ok := r.(budgetReached); ok {
			res = &ChunkResult{
				X:           c.best,
				Evaluations: c.calls,
				Code:        CodeMaxEvaluations,
				Message:     ConvergenceMessage(CodeMaxEvaluations),
			}
			return
		}
		res = &ChunkResult{
			X:           c.best,
			Evaluations: c.calls,
			Code:        CodeNumerical,
			Message:     ConvergenceMessage(CodeNumerical),
			Err:         &NumericalError{Value: r},
		}
	}()

	objTol := p.Tolerance * p.Tolerance
	problem := lm.LMProblem{
		Dim:        p.Dim,
		Size:       p.Size,
		Func:       c.eval,
		Jac:        p.Jac,
		InitParams: p.Init,
		Tau:        damping(p.Factor),
		Eps1:       p.Tolerance,
		Eps2:       p.Tolerance,
	}

	out, err := lm.LM(problem, &lm.Settings{Iterations: p.MaxEvaluations, ObjectiveTol: objTol})
	if err != nil {
		return nil, err
	}

	code := CodeMaxEvaluations
	if out.Status == optimize.StepConvergence {
		code = classify(p, out.X, objTol)
	}
	return &ChunkResult{
		X:           out.X,
		Evaluations: c.calls,
		Code:        code,
		Message:     ConvergenceMessage(code),
	}, nil
}

// classify tells which of lm's stopping tests fired at x.
func classify(p Problem, x []float64, objTol float64) int {
	f := make([]float64, p.Size)
	p.Func(f, x)
	if 0.5*floats.Dot(f, f) <= objTol {
		return CodeObjective
	}

	j := mat.NewDense(p.Size, p.Dim, nil)
	p.Jac(j, x)
	var g mat.VecDense
	g.MulVec(j.T(), mat.NewVecDense(p.Size, f))
	if mat.Norm(&g, math.Inf(1)) <= p.Tolerance {
		return CodeGradient
	}
	return CodeStep
}
