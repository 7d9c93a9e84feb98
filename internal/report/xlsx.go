package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/HamletTheHamster/morsefit/internal/fit"
)

// Sheet names of the workbook written by SaveXLSX.
const (
	SheetParameters = "Parameters"
	SheetEnergies   = "Energies"
	SheetProgress   = "Progress"
)

// SaveXLSX writes the fitted parameters, the energy comparison and the
// progress of every chunk to an xlsx workbook.
func SaveXLSX(
	filename string,
	s *fit.Summary,
) (
	err error,
) {

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetParameters); err != nil {
		return err
	}
	rows := [][]any{{"Element 1", "Element 2", "D", "a", "r0", "D (guess)", "a (guess)", "r0 (guess)"}}
	for i, e := range s.Fitted {
		g := s.Guess[i].Params
		a, b := e.Elements()
		rows = append(rows, []any{a, b, e.Params.D, e.Params.A, e.Params.R0, g.D, g.A, g.R0})
	}
	if err := writeRows(f, SheetParameters, rows); err != nil {
		return err
	}

	rows = [][]any{{"File Name", "Tag", "Ab-initio", "Morse", "Residue"}}
	for _, r := range s.Energies {
		rows = append(rows, []any{r.FileName, r.Tag, r.AbInitio, r.Morse, r.Morse - r.AbInitio})
	}
	if err := writeRows(f, SheetEnergies, rows); err != nil {
		return err
	}

	rows = [][]any{{"Chunk", "Step", "Evaluations", "Residual Norm", "Code", "State"}}
	for _, p := range s.Result.History {
		rows = append(rows, []any{p.Chunk, p.Step, p.Evaluations, p.ResidualNorm, p.Code, p.State.String()})
	}
	if err := writeRows(f, SheetProgress, rows); err != nil {
		return err
	}

	return f.SaveAs(filename)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
