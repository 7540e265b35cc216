// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"math/cmplx"
	"os"
	"path/filepath"

	m "github.com/mkhts/gojones"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {

	// Parse command line arguments
	args, err := parseArgs()
	if err != nil {
		m.PrintE(err)
		flag.Usage()
		os.Exit(1)
	}

	// Run the main application
	if err := runApplication(args); err != nil {
		m.PrintE(err)
		os.Exit(1)
	}
}

// Main application processing
func runApplication(args cmdOpt) error {

	// Load configuration
	cfg, err := loadConfig(args)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	m.SetDebug(cfg.Logging.Level)

	// Generate observation
	sc := cfg.ToScenario()
	sim, err := sc.Simulate()
	if err != nil {
		return fmt.Errorf("failed to simulate observation: %w", err)
	}
	if m.DBG_ >= 1 {
		m.PrintA("--- data ---\n")
		fmt.Fprintln(os.Stderr, sim.Vis)
	}

	// Solve
	opt := cfg.ToSolverOpt()
	reg := prometheus.NewRegistry()
	opt.Metrics = m.NewMetrics(reg)

	term := sim.NewTerm("G")
	g0 := complex(cfg.Solver.InitGain, 0)
	term.Fill(m.DiagJones(g0, g0))
	sol, err := m.SolveGains(sim.Vis, sim.Model, m.TermChain{term}, 0, opt)
	if err != nil {
		return fmt.Errorf("failed to solve gains: %w", err)
	}

	// Output results
	sig, err := m.GainErrors(sol.JHJ, sol.BlockLen)
	if err != nil {
		m.PrintD(1, "GainErrors(): %s\n", err)
	}
	printGains(os.Stdout, term, sim.Truth, sig)
	printReport(os.Stdout, sol, term)

	// Write metrics
	if len(cfg.Metrics.Textfile) > 0 {
		if err := prometheus.WriteToTextfile(cfg.Metrics.Textfile, reg); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

// Read the configuration file and apply command line overrides
func loadConfig(args cmdOpt) (*m.Config, error) {
	cfg := m.DefaultConfig()
	if len(args.cfgFn) > 0 {
		var err error
		cfg, err = m.LoadConfig(args.cfgFn)
		if err != nil {
			return nil, err
		}
	}
	if args.mode != 0 {
		cfg.Solver.Mode = int(args.mode)
	}
	if args.solvePerSet {
		cfg.Solver.SolvePer = args.solvePer
	}
	if args.maxIter > 0 {
		cfg.Solver.MaxIter = args.maxIter
	}
	if args.workers > 0 {
		cfg.Solver.Workers = args.workers
	}
	if args.dbg >= 0 {
		cfg.Logging.Level = args.dbg
	}
	if len(args.metricsFn) > 0 {
		cfg.Metrics.Textfile = args.metricsFn
	}
	return cfg, nil
}

// Print solved and true gains (phase referenced to antenna 0)
func printGains(w io.Writer, g, truth *m.GainTerm, sig []float64) {
	np, slots, names := 1, []int{0}, []string{"XX"}
	switch g.Mode {
	case m.Diagonal:
		np, slots, names = 2, []int{0, 1}, []string{"XX", "YY"}
	case m.Full:
		np, slots, names = 4, []int{m.XX, m.YY}, []string{"XX", "YY"}
	}
	fmt.Fprintf(w, "%%  t   f ant dir pol      amp    phase(deg)   amp(true) phase(true)       sigma flag\n")
	for t := range g.NTime {
		for f := range g.NFreq {
			for a := range g.NAnt {
				for d := range g.NDir {
					cell := g.Cell(t, f, a, d)
					ref := g.Cell(t, f, 0, d)
					for k, s := range slots {
						v, r := g.Slots(cell)[s], g.Slots(ref)[s]
						tv, tr := truth.Slots(cell)[s], truth.Slots(ref)[s]
						sd := math.NaN()
						if sig != nil {
							sd = sig[cell*np+s]
						}
						fmt.Fprintf(w, "%4d %3d %3d %3d %3s %10.6f %12.6f %11.6f %11.6f %11.3e %4t\n",
							t, f, a, d, names[k], cmplx.Abs(v), refPhase(v, r), cmplx.Abs(tv), refPhase(tv, tr), sd, g.Flags[cell])
					}
				}
			}
		}
	}
}

// Phase of v relative to r [deg]
func refPhase(v, r complex128) float64 {
	if r == 0 {
		return 0
	}
	return cmplx.Phase(v*cmplx.Conj(r)) * 180 / math.Pi
}

func printReport(w io.Writer, sol *m.SolverSol, g *m.GainTerm) {
	fmt.Fprintf(w, "%% iterations   : %d\n", sol.Iterations)
	fmt.Fprintf(w, "%% converged    : %.4f\n", sol.ConvergedFrac)
	fmt.Fprintf(w, "%% noinfo cells : %d\n", sol.NoInfo)
	fmt.Fprintf(w, "%% flagged cells: %d (new %d) / %d\n", g.NumFlagged(), sol.NewlyFlagged, g.NCell())
	fmt.Fprintf(w, "%% flagged corrs: %d\n", sol.FlaggedSample)
	fmt.Fprintf(w, "%% elapsed      : %s\n", sol.Elapsed)
}

// Structure to hold command line argument information
type cmdOpt struct {
	cfgFn       string
	metricsFn   string
	mode        m.CorrMode
	solvePer    m.SolvePer
	solvePerSet bool
	maxIter     int
	workers     int
	dbg         int
}

// Parse command line arguments
func parseArgs() (a cmdOpt, err error) {
	flag.Usage = func() {
		m.PrintA(`
[Usage]
	%s [Options]

[Options]
`, filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.StringVar(&a.cfgFn, "c", "", "YAML configuration file (scenario, solver, logging, metrics). Defaults are used if not specified.")
	flag.Var(&a.mode, "p", "Correlation mode. 1(scalar), 2(diagonal), 4(full 2x2). Overrides the configuration file.")
	flag.Func("s", "Solution granularity. antenna or array. Overrides the configuration file.", func(s string) error {
		a.solvePerSet = true
		return a.solvePer.Set(s)
	})
	flag.IntVar(&a.maxIter, "n", 0, "Maximum number of iterations. 0 means the value of the configuration file.")
	flag.IntVar(&a.workers, "w", 0, "Number of intervals solved concurrently. 0 means the value of the configuration file.")
	flag.StringVar(&a.metricsFn, "metrics", "", "Write Prometheus metrics to this textfile.")
	flag.IntVar(&a.dbg, "x", -1, "Debug information display. Specify level value. 0(OFF), 1(display), 2(detailed display), 3(more detailed), 4(most detailed)")
	flag.Parse()
	if flag.NArg() != 0 {
		return a, fmt.Errorf("too many arguments")
	}
	return
}
