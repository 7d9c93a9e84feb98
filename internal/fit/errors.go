package fit

import "fmt"

// Setup stages.
const (
	StageConfig        = "config"
	StageGuess         = "guess"
	StageConfiguration = "configuration"
	StageParameters    = "parameters"
)

// SetupError is a failure before any solver call. No partial fit is made.
type SetupError struct {
	Stage string
	Err   error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup (%s): %v", e.Stage, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// NumericalError is a failure of the linear algebra inside a chunk.
type NumericalError struct {
	Value any
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("numerical failure in solver: %v", e.Value)
}

// ConvergenceWarning is attached to a result whose last chunk did not meet
// the tolerance. The fitted parameters are still the best available.
type ConvergenceWarning struct {
	Code    int
	Message string
	Chunks  int
}

func (w *ConvergenceWarning) Error() string {
	return fmt.Sprintf("convergence not reached after %d chunks (code %d): %s", w.Chunks, w.Code, w.Message)
}
