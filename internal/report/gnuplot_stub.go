//go:build !gnuplot

package report

import (
	"fmt"

	"github.com/HamletTheHamster/morsefit/internal/fit"
)

// PreviewGnuplot reports ErrNoGnuplot. Build with -tags gnuplot for the
// interactive preview.
func PreviewGnuplot(s *fit.Summary) error {
	if err := previewable(s); err != nil {
		return err
	}
	return fmt.Errorf("%w: rebuild with -tags gnuplot", ErrNoGnuplot)
}
