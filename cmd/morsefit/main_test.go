package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HamletTheHamster/morsefit/internal/morse"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// dimerFiles writes H2 configurations at Morse energies of D = a = r0 = 1.
func dimerFiles(t *testing.T, dir string) []string {
	t.Helper()
	unit := morse.Params{D: 1, A: 1, R0: 1}
	var paths []string
	for _, d := range []float64{0.7, 0.85, 1.0, 1.2, 1.5, 2.0, 2.5, 3.0} {
		body := fmt.Sprintf("2\n%.17g\nH 0 0 0\nH 0 0 %.17g\n", morse.Energy(unit, d), d)
		paths = append(paths, writeFile(t, dir, fmt.Sprintf("h2_%g.xyz", d), body))
	}
	return paths
}

func TestRunFits(t *testing.T) {
	dir := t.TempDir()
	guess := writeFile(t, dir, "morse.inp", "H H 1.2 0.8 1.15\n")
	xlsx := filepath.Join(dir, "fit.xlsx")
	parity := filepath.Join(dir, "parity.png")

	args := append([]string{"-g", guess, "-xlsx", xlsx, "-parity", parity}, dimerFiles(t, dir)...)
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	out := stdout.String()
	assert.Contains(t, out, "Entering optimization main loop...")
	assert.Contains(t, out, " Step 0: Residue = ")
	assert.Contains(t, out, "Convergence achieved!")
	assert.Contains(t, out, "     H     H  ")
	assert.FileExists(t, xlsx)
	assert.FileExists(t, parity)
}

func TestRunBudgetExhaustedIsNotAFailure(t *testing.T) {
	dir := t.TempDir()
	guess := writeFile(t, dir, "morse.inp", "H H 3 0.3 1.8\n")

	args := append([]string{"-g", guess, "-s", "2", "-trunk", "2"}, dimerFiles(t, dir)...)
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)

	assert.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "Warning: Convergence failed for the specified criteria!")
	assert.Contains(t, stdout.String(), " Step 2: Residue = ")
}

func TestRunSetupFailures(t *testing.T) {
	dir := t.TempDir()
	confs := dimerFiles(t, dir)
	guess := writeFile(t, dir, "morse.inp", "H H 1 1 1\n")
	oh := writeFile(t, dir, "oh.xyz", "2\n-1\nO 0 0 0\nH 0 0 1\n")

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"non-numeric cutoff", append([]string{"-g", guess, "-c", "far"}, confs...), 1},
		{"missing guess", append([]string{"-g", filepath.Join(dir, "none.inp")}, confs...), 1},
		{"missing configuration", []string{"-g", guess, filepath.Join(dir, "none.xyz")}, 1},
		{"pair without parameters", []string{"-g", guess, oh}, 1},
		{"no configurations", []string{"-g", guess}, 2},
		{"unknown flag", []string{"-nope"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, tt.code, run(tt.args, &stdout, &stderr))
			assert.NotContains(t, stdout.String(), "Entering optimization main loop")
		})
	}
}

func TestSettingsFlagsOverrideRunFile(t *testing.T) {
	dir := t.TempDir()
	runFile := writeFile(t, dir, "run.yaml", "steps: 9\nfactor: 0.5\ncutoff: 4\nconfigurations: [a.xyz]\n")

	o, fs, err := flags([]string{"-config", runFile, "-s", "3", "--cutoff", "2.5"}, &bytes.Buffer{})
	require.NoError(t, err)
	cfg, err := settings(o, fs)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Steps)
	assert.Equal(t, 0.5, cfg.Factor)
	require.NotNil(t, cfg.Cutoff)
	assert.Equal(t, 2.5, *cfg.Cutoff)
	assert.Equal(t, []string{"a.xyz"}, cfg.Configurations)
	assert.Equal(t, "morse.inp", cfg.Guess)

	o, fs, err = flags([]string{"b.xyz", "c.xyz"}, &bytes.Buffer{})
	require.NoError(t, err)
	cfg, err = settings(o, fs)
	require.NoError(t, err)
	assert.Nil(t, cfg.Cutoff)
	assert.Equal(t, []string{"b.xyz", "c.xyz"}, cfg.Configurations)
	assert.Equal(t, 50, cfg.Steps)
}
