package fit

import (
	"errors"
	"fmt"
	"os"

	"github.com/HamletTheHamster/morsefit/internal/config"
	"github.com/HamletTheHamster/morsefit/internal/logger"
	"github.com/HamletTheHamster/morsefit/internal/morse"
	"github.com/HamletTheHamster/morsefit/internal/residue"
	"github.com/HamletTheHamster/morsefit/internal/structure"
)

// Session is everything read and checked before the first solver call.
type Session struct {
	Config         config.Config
	Guess          morse.ParameterSet
	Configurations []*structure.Configuration
	Generator      *residue.Generator
}

// EnergyRow compares one configuration's reference and fitted energies.
type EnergyRow struct {
	FileName string
	Tag      string
	AbInitio float64
	Morse    float64
}

// Summary is the outcome of a session.
type Summary struct {
	Guess    morse.ParameterSet
	Fitted   morse.ParameterSet
	Energies []EnergyRow
	Result   *Result
}

// Setup reads the guess and every configuration and resolves their pairs.
// Any failure is a *SetupError.
func Setup(cfg config.Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &SetupError{Stage: StageConfig, Err: err}
	}
	if len(cfg.Configurations) == 0 {
		return nil, &SetupError{Stage: StageConfig, Err: errors.New("no configuration files given")}
	}

	f, err := os.Open(cfg.Guess)
	if err != nil {
		return nil, &SetupError{Stage: StageGuess, Err: fmt.Errorf("cannot open %s for the initial guess: %w", cfg.Guess, err)}
	}
	defer f.Close()

	guess, err := morse.ReadGuess(f)
	if err != nil {
		return nil, &SetupError{Stage: StageGuess, Err: fmt.Errorf("%s: %w", cfg.Guess, err)}
	}

	confs := make([]*structure.Configuration, 0, len(cfg.Configurations))
	for _, path := range cfg.Configurations {
		c, err := structure.ReadConfiguration(path, cfg.Cutoff)
		if err != nil {
			return nil, &SetupError{Stage: StageConfiguration, Err: err}
		}
		confs = append(confs, c)
	}

	gen, err := residue.New(confs, guess)
	if err != nil {
		return nil, &SetupError{Stage: StageParameters, Err: err}
	}

	logger.Log.Infow("configurations and initial guess read",
		"configurations", len(confs),
		"pairs", guess.Len(),
		"parameters", guess.Dim(),
	)
	return &Session{
		Config:         cfg,
		Guess:          guess,
		Configurations: confs,
		Generator:      gen,
	}, nil
}

// Driver returns a driver configured from the session settings.
func (s *Session) Driver(solver Solver) *Driver {
	return NewDriver(solver).
		WithTrunkSize(s.Config.TrunkSize).
		WithMaxChunks(s.Config.Steps).
		WithFactor(s.Config.Factor).
		WithTolerance(s.Config.Tolerance)
}

// Run fits the session starting from the guess.
func (s *Session) Run(solver Solver, obs Observer) (*Summary, error) {
	res, err := s.Driver(solver).WithObserver(obs).Run(s.Generator, s.Guess.Flatten())
	if err != nil {
		return nil, err
	}
	return s.Summarize(res)
}

// Summarize turns a driver result into fitted parameters and energy rows.
func (s *Session) Summarize(res *Result) (*Summary, error) {
	fitted, err := s.Guess.Unflatten(res.X)
	if err != nil {
		return nil, err
	}

	residues := s.Generator.Residues(res.X)
	rows := make([]EnergyRow, len(s.Configurations))
	for i, c := range s.Configurations {
		rows[i] = EnergyRow{
			FileName: c.FileName,
			Tag:      c.Tag,
			AbInitio: c.AbInitio,
			Morse:    c.AbInitio + residues[i],
		}
	}
	return &Summary{
		Guess:    s.Guess,
		Fitted:   fitted,
		Energies: rows,
		Result:   res,
	}, nil
}
