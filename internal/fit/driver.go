package fit

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/HamletTheHamster/morsefit/internal/config"
	"github.com/HamletTheHamster/morsefit/internal/logger"
)

// Model is what the driver fits: a residue vector and its Jacobian.
type Model interface {
	Size() int
	Dim() int
	Residue(dst, x []float64)
	Jacobian(dst *mat.Dense, x []float64)
}

// State of the chunk loop.
type State int

const (
	Running State = iota
	Converged
	BudgetExhausted
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Converged:
		return "converged"
	case BudgetExhausted:
		return "budget exhausted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Progress is reported after every chunk.
type Progress struct {
	Chunk int
	// Step is the nominal evaluation offset of the chunk, Chunk * TrunkSize.
	Step         int
	Evaluations  int
	ResidualNorm float64
	X            []float64
	Code         int
	Message      string
	State        State
}

// Observer receives progress after every chunk.
type Observer func(Progress)

// Result is the outcome of a full run.
type Result struct {
	X            []float64
	State        State
	Chunks       int
	Evaluations  int
	Code         int
	Message      string
	ResidualNorm float64
	History      []Progress
	// Warning is set when the run ended without convergence.
	Warning *ConvergenceWarning
}

// Driver repeats bounded solver calls until a chunk converges or the chunk
// budget is used up.
type Driver struct {
	solver    Solver
	trunkSize int
	maxChunks int
	factor    float64
	tolerance float64
	observer  Observer
}

// NewDriver returns a driver with the default budget and tolerances.
func NewDriver(solver Solver) *Driver {
	if solver == nil {
		solver = LMSolver{}
	}
	return &Driver{
		solver:    solver,
		trunkSize: config.DefaultTrunkSize,
		maxChunks: config.DefaultSteps,
		factor:    config.DefaultFactor,
		tolerance: config.DefaultTolerance,
	}
}

// WithTrunkSize sets the evaluation budget of one chunk.
func (d *Driver) WithTrunkSize(n int) *Driver {
	d.trunkSize = n
	return d
}

// WithMaxChunks sets the number of chunks after which the run gives up.
func (d *Driver) WithMaxChunks(n int) *Driver {
	d.maxChunks = n
	return d
}

// WithFactor sets the step scale factor passed to the solver.
func (d *Driver) WithFactor(f float64) *Driver {
	d.factor = f
	return d
}

// WithTolerance sets the solver tolerance.
func (d *Driver) WithTolerance(tol float64) *Driver {
	d.tolerance = tol
	return d
}

// WithObserver registers a progress callback.
func (d *Driver) WithObserver(obs Observer) *Driver {
	d.observer = obs
	return d
}

func (d *Driver) validate() error {
	switch {
	case d.trunkSize < 1:
		return fmt.Errorf("trunk size must be positive, got %d", d.trunkSize)
	case d.maxChunks < 1:
		return fmt.Errorf("max chunks must be positive, got %d", d.maxChunks)
	case d.factor <= 0:
		return fmt.Errorf("step factor must be positive, got %g", d.factor)
	case d.tolerance < 0:
		return fmt.Errorf("tolerance must not be negative, got %g", d.tolerance)
	}
	return nil
}

// Run fits model starting from init. init is not modified.
func (d *Driver) Run(model Model, init []float64) (*Result, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	if model == nil {
		return nil, errors.New("fit: nil model")
	}
	if len(init) != model.Dim() {
		return nil, fmt.Errorf("fit: initial vector has length %d, model wants %d", len(init), model.Dim())
	}

	x := append([]float64(nil), init...)
	res := &Result{X: x, State: Running}
	residues := make([]float64, model.Size())

	for chunk := 0; chunk < d.maxChunks && res.State == Running; chunk++ {
		out, err := d.solver.Solve(Problem{
			Func:           model.Residue,
			Jac:            model.Jacobian,
			Dim:            model.Dim(),
			Size:           model.Size(),
			Init:           x,
			MaxEvaluations: d.trunkSize,
			Factor:         d.factor,
			Tolerance:      d.tolerance,
		})
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", chunk, err)
		}
		if out.Err != nil {
			logger.Log.Warnw("numerical failure contained in chunk", "chunk", chunk, "error", out.Err)
		}

		x = append([]float64(nil), out.X...)
		model.Residue(residues, x)

		res.X = x
		res.Chunks = chunk + 1
		res.Evaluations += out.Evaluations
		res.Code = out.Code
		res.Message = out.Message
		res.ResidualNorm = floats.Norm(residues, 2)
		if Accepted(out.Code) {
			res.State = Converged
		}

		p := Progress{
			Chunk:        chunk,
			Step:         chunk * d.trunkSize,
			Evaluations:  res.Evaluations,
			ResidualNorm: res.ResidualNorm,
			X:            x,
			Code:         out.Code,
			Message:      out.Message,
			State:        res.State,
		}
		res.History = append(res.History, p)

		logger.Log.Debugw("chunk finished",
			"chunk", chunk,
			"evaluations", out.Evaluations,
			"residual", res.ResidualNorm,
			"code", out.Code,
		)
		if d.observer != nil {
			d.observer(p)
		}
	}

	if res.State != Converged {
		res.State = BudgetExhausted
		res.Warning = &ConvergenceWarning{Code: res.Code, Message: res.Message, Chunks: res.Chunks}
		if n := len(res.History); n > 0 {
			res.History[n-1].State = BudgetExhausted
		}
		logger.Log.Warnw("fit did not converge", "chunks", res.Chunks, "code", res.Code, "reason", res.Message)
	}
	return res, nil
}
