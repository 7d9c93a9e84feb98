package report

import (
	"errors"

	"github.com/HamletTheHamster/morsefit/internal/fit"
)

// ErrNoGnuplot is returned by PreviewGnuplot in binaries built without the
// gnuplot tag.
var ErrNoGnuplot = errors.New("report: gnuplot preview not built in")

func previewable(s *fit.Summary) error {
	if s == nil || s.Result == nil || len(s.Result.History) == 0 || len(s.Energies) == 0 {
		return errors.New("report: nothing to preview")
	}
	return nil
}
