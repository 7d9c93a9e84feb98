// Command morsefit fits pairwise Morse potential parameters to ab-initio
// energies of a set of atomic configurations.
//
// Usage:
//
//	morsefit [-c cutoff] [-g morse.inp] [-s 50] [-f 0.01] [-t 1e-8] conf.xyz ...
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/HamletTheHamster/morsefit/internal/config"
	"github.com/HamletTheHamster/morsefit/internal/fit"
	"github.com/HamletTheHamster/morsefit/internal/logger"
	"github.com/HamletTheHamster/morsefit/internal/report"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	cutoff      string
	guess       string
	steps       int
	factor      float64
	tolerance   float64
	trunk       int
	runFile     string
	xlsx        string
	parity      string
	convergence string
	gnuplot     bool
	logLevel    string
}

func flags(
	args []string,
	stderr io.Writer,
) (
	*options, *flag.FlagSet, error,
) {

	def := config.Default()
	var o options

	fs := flag.NewFlagSet("morsefit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.cutoff, "c", "", "the distance cut-off, default to no cut-off")
	fs.StringVar(&o.cutoff, "cutoff", "", "the distance cut-off, default to no cut-off")
	fs.StringVar(&o.guess, "g", def.Guess, "the file for the Morse parameter guesses")
	fs.StringVar(&o.guess, "guess", def.Guess, "the file for the Morse parameter guesses")
	fs.IntVar(&o.steps, "s", def.Steps, "the max number of optimization chunks")
	fs.IntVar(&o.steps, "steps", def.Steps, "the max number of optimization chunks")
	fs.Float64Var(&o.factor, "f", def.Factor, "the initial step factor, larger values take longer first steps")
	fs.Float64Var(&o.factor, "factor", def.Factor, "the initial step factor, larger values take longer first steps")
	fs.Float64Var(&o.tolerance, "t", def.Tolerance, "the tolerance for the solution")
	fs.Float64Var(&o.tolerance, "tolerance", def.Tolerance, "the tolerance for the solution")
	fs.IntVar(&o.trunk, "trunk", def.TrunkSize, "function evaluations per optimization chunk")
	fs.StringVar(&o.runFile, "config", "", "YAML run file; flags given explicitly override it")
	fs.StringVar(&o.xlsx, "xlsx", "", "write parameters, energies and progress to this xlsx file")
	fs.StringVar(&o.parity, "parity", "", "save the energy parity plot to this PNG file")
	fs.StringVar(&o.convergence, "convergence", "", "save the convergence plot to this PNG file")
	fs.BoolVar(&o.gnuplot, "gnuplot", false, "preview the fit in gnuplot")
	fs.StringVar(&o.logLevel, "log-level", def.LogLevel, "log level: debug, info, warn or error")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Fit the Morse potential\n\nusage: morsefit [flags] configuration...\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	return &o, fs, nil
}

// settings merges defaults, the run file and the flags set on the command line.
func settings(o *options, fs *flag.FlagSet) (config.Config, error) {
	cfg := config.Default()
	if o.runFile != "" {
		var err error
		if cfg, err = config.Load(o.runFile); err != nil {
			return cfg, err
		}
	}

	var cutoffErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "c", "cutoff":
			v, err := strconv.ParseFloat(o.cutoff, 64)
			if err != nil {
				cutoffErr = fmt.Errorf("invalid cut-off %q given", o.cutoff)
				return
			}
			cfg.Cutoff = &v
		case "g", "guess":
			cfg.Guess = o.guess
		case "s", "steps":
			cfg.Steps = o.steps
		case "f", "factor":
			cfg.Factor = o.factor
		case "t", "tolerance":
			cfg.Tolerance = o.tolerance
		case "trunk":
			cfg.TrunkSize = o.trunk
		case "xlsx":
			cfg.Output.XLSX = o.xlsx
		case "parity":
			cfg.Output.ParityPlot = o.parity
		case "convergence":
			cfg.Output.ConvergencePlot = o.convergence
		case "gnuplot":
			cfg.Output.Gnuplot = o.gnuplot
		case "log-level":
			cfg.LogLevel = o.logLevel
		}
	})
	if cutoffErr != nil {
		return cfg, cutoffErr
	}

	if fs.NArg() > 0 {
		cfg.Configurations = fs.Args()
	}
	return cfg, cfg.Validate()
}

func run(args []string, stdout, stderr io.Writer) int {
	o, fs, err := flags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := settings(o, fs)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if len(cfg.Configurations) == 0 {
		fmt.Fprintln(stderr, "at least one configuration file is required")
		fs.Usage()
		return 2
	}

	if err := logger.Init(cfg.LogLevel); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer logger.Sync()

	session, err := fit.Setup(cfg)
	if err != nil {
		var se *fit.SetupError
		if errors.As(err, &se) {
			logger.Log.Errorw("setup failed", "stage", se.Stage, "error", se.Err)
		}
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintln(stdout, "Configurations and the initial guess has been read...")
	fmt.Fprintln(stdout, "Residue and Jacobian generator built...")
	fmt.Fprintln(stdout, "Entering optimization main loop...")

	var writeErr error
	summary, err := session.Run(fit.LMSolver{}, func(p fit.Progress) {
		if err := report.WriteProgress(stdout, session.Guess, p); err != nil && writeErr == nil {
			writeErr = err
		}
	})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if writeErr != nil {
		logger.Log.Warnw("writing progress failed", "error", writeErr)
	}

	if err := report.WriteSummary(stdout, summary); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if w := summary.Result.Warning; w != nil {
		logger.Log.Warnw("best-effort parameters reported", "warning", w.Error())
	}

	return export(cfg.Output, summary, stderr)
}

// export writes the optional files. A failed export fails the run, a missing
// gnuplot only logs.
func export(out config.Output, s *fit.Summary, stderr io.Writer) int {
	status := 0
	if out.XLSX != "" {
		if err := report.SaveXLSX(out.XLSX, s); err != nil {
			fmt.Fprintln(stderr, err)
			status = 1
		} else {
			logger.Log.Infow("workbook written", "path", out.XLSX)
		}
	}
	if out.ParityPlot != "" {
		if err := report.SaveParityPlot(out.ParityPlot, s.Energies); err != nil {
			fmt.Fprintln(stderr, err)
			status = 1
		} else {
			logger.Log.Infow("parity plot written", "path", out.ParityPlot)
		}
	}
	if out.ConvergencePlot != "" {
		if err := report.SaveConvergencePlot(out.ConvergencePlot, s.Result.History); err != nil {
			fmt.Fprintln(stderr, err)
			status = 1
		} else {
			logger.Log.Infow("convergence plot written", "path", out.ConvergencePlot)
		}
	}
	if out.Gnuplot {
		if err := report.PreviewGnuplot(s); err != nil {
			logger.Log.Warnw("gnuplot preview unavailable", "error", err)
		}
	}
	return status
}
