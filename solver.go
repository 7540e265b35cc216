// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

// Implements the iterative complex gain solver for one active term of a chain.

package gojones

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	ErrPrecondition = errors.New("precondition violated")
	ErrSingular     = errors.New("singular normal equations")
)

// SolverOpt contains the parameters of one solver call
type SolverOpt struct {
	Mode      CorrMode   // Correlation mode (1, 2 or 4). Must match the data
	MaxIter   int        // Maximum number of iterations
	StopFrac  float64    // Stop when this fraction of unflagged cells has converged
	Tolerance float64    // Relative gain change regarded as converged
	SolvePer  SolvePer   // One solution per antenna or for the whole array
	DD        bool       // Active term is direction dependent
	Policy    FlagPolicy // Final flagging parameters
	Workers   int        // Number of intervals processed concurrently. 0 means GOMAXPROCS
	Metrics   *Metrics   // Collectors to observe the call (optional)
}

// NewSolverOpt creates a new SolverOpt with default values
func NewSolverOpt() *SolverOpt {
	return &SolverOpt{
		Mode:      Full,              // Full polarimetric
		MaxIter:   MAX_ITER_DEFAULT,  // Iteration limit
		StopFrac:  STOP_FRAC_DEFAULT, // Every unflagged cell converged
		Tolerance: TOLERANCE_DEFAULT, // Relative change
		SolvePer:  PerAntenna,        // Per antenna solutions
		DD:        false,             // Direction independent
		Policy:    NewFlagPolicy(),   // Default trend flagging
		Workers:   0,                 // All CPUs
		Metrics:   nil,               // No metrics
	}
}

// SolverSol contains the results of one solver call
type SolverSol struct {
	JHJ           []complex128  // Final JHJ blocks [time][freq][antenna][direction][block]
	BlockLen      int           // Number of values of one JHJ block (1, 2 or 16)
	Iterations    int           // Number of iterations used
	ConvergedFrac float64       // Converged fraction of unflagged cells after the last iteration
	NewlyFlagged  int           // Number of cells flagged by the final flagging pass
	FlaggedSample int           // Number of sample correlations flagged by propagation
	NoInfo        int           // Number of cells without information in the last iteration
	Elapsed       time.Duration // Wall time of the call
}

// SolveGains updates the gains and flags of chain[active] in place so that the
// chain reproduces the visibilities.
//
// Parameters:
//   - vis: Measured visibilities (flags are updated when the term is direction independent)
//   - model: Model visibilities per direction
//   - chain: All jointly solved terms, chain[active] is updated, the others are read-only
//   - active: Index of the term to solve
//   - opt: Solver options
//
// Returns:
//   - SolverSol: Final JHJ and convergence report
//   - error: Precondition violation. Nothing is modified in that case
func SolveGains(
	vis *VisibilityData, // Measured visibilities
	model *ModelData, // Model visibilities
	chain TermChain, // Terms solved jointly
	active int, // Index of the active term
	opt *SolverOpt, // Solver options
) (*SolverSol, error) {

	if opt == nil {
		opt = NewSolverOpt()
	}
	err := checkInputs(vis, model, chain, active, opt)
	if err != nil {
		return nil, fmt.Errorf("checkInputs() failed, err= %w", err)
	}

	start := time.Now()
	s := newSolver(vis, model, chain, active, opt)
	rslt := s.run()
	rslt.Elapsed = time.Since(start)

	if opt.Metrics != nil {
		opt.Metrics.Observe(s.g.Name, opt.Mode, rslt, opt.StopFrac)
	}
	Log.WithFields(log.Fields{
		"term":      s.g.Name,
		"mode":      int(opt.Mode),
		"iter":      rslt.Iterations,
		"converged": rslt.ConvergedFrac,
		"flagged":   rslt.NewlyFlagged,
		"noinfo":    rslt.NoInfo,
	}).Info("solve done")

	return rslt, nil
}

func checkInputs(vis *VisibilityData, model *ModelData, chain TermChain, active int, opt *SolverOpt) error {
	if vis == nil || model == nil {
		return fmt.Errorf("%w: nil data", ErrPrecondition)
	}
	if !opt.Mode.IsValid() {
		return fmt.Errorf("%w: correlation mode %d", ErrPrecondition, int(opt.Mode))
	}
	if opt.Mode != vis.Mode {
		return fmt.Errorf("%w: solver mode %d, data mode %d", ErrPrecondition, int(opt.Mode), int(vis.Mode))
	}
	if opt.MaxIter < 1 {
		return fmt.Errorf("%w: max iterations %d", ErrPrecondition, opt.MaxIter)
	}
	if !(opt.StopFrac >= 0 && opt.StopFrac <= 1) {
		return fmt.Errorf("%w: stop fraction %v", ErrPrecondition, opt.StopFrac)
	}
	if !(opt.Tolerance > 0) || !isFiniteF(opt.Tolerance) {
		return fmt.Errorf("%w: tolerance %v", ErrPrecondition, opt.Tolerance)
	}
	if opt.SolvePer != PerAntenna && opt.SolvePer != PerArray {
		return fmt.Errorf("%w: solve granularity %d", ErrPrecondition, int(opt.SolvePer))
	}
	if err := opt.Policy.validate(); err != nil {
		return err
	}
	if err := vis.Validate(); err != nil {
		return err
	}
	if err := model.Validate(vis); err != nil {
		return err
	}
	if active < 0 || active >= len(chain) {
		return fmt.Errorf("%w: active term %d of %d", ErrPrecondition, active, len(chain))
	}
	if err := chain.Validate(vis, model); err != nil {
		return err
	}
	if g := chain[active]; g.DD != opt.DD {
		Log.WithFields(log.Fields{"term": g.Name, "term_dd": g.DD, "opt_dd": opt.DD}).Warn("direction dependence of term and options differ")
	}
	return nil
}

// State of one solver call
type solver struct {
	opt     *SolverOpt
	eq      *normEq
	g       *GainTerm
	trk     *tracker
	red     *reducer // nil unless solving per array
	workers int
	bscr    []*buildScratch // Per interval
	cscr    []*cellScratch  // Per interval
}

func newSolver(vis *VisibilityData, model *ModelData, chain TermChain, active int, opt *SolverOpt) *solver {
	eq := newNormEq(vis, model, chain, active)
	g := eq.part.active
	s := &solver{
		opt:     opt,
		eq:      eq,
		g:       g,
		trk:     newTracker(g, opt.Tolerance, opt.Policy),
		workers: opt.Workers,
	}
	if s.workers <= 0 {
		s.workers = runtime.GOMAXPROCS(0)
	}
	if opt.SolvePer == PerArray {
		s.red = newReducer(eq)
	}
	n := g.NTime * g.NFreq
	s.bscr = make([]*buildScratch, n)
	s.cscr = make([]*cellScratch, n)
	for i := range n {
		s.bscr[i] = eq.newScratch()
		s.cscr[i] = &cellScratch{}
	}
	return s
}

// Run fn for every solution interval on the worker pool
func (p *solver) forEach(fn func(t, f, i int)) {
	var eg errgroup.Group
	eg.SetLimit(p.workers)
	for t := range p.g.NTime {
		for f := range p.g.NFreq {
			eg.Go(func() error {
				fn(t, f, t*p.g.NFreq+f)
				return nil
			})
		}
	}
	// Bounded worker pool only: fn never fails
	_ = eg.Wait()
}

func (p *solver) run() *SolverSol {
	opt := p.opt
	eq := p.eq

	// INIT: direction independent terms are estimated against the data itself
	if !opt.DD {
		eq.loadData()
	}

	iter := 0
	frac := 0.0
	for iter < opt.MaxIter {
		p.trk.snapshot()
		if p.red == nil {
			p.forEach(func(t, f, i int) {
				if opt.DD {
					eq.residual(t, f)
				}
				eq.build(t, f, p.bscr[i])
				eq.invert(t, f, p.cscr[i])
				eq.apply(t, f, iter, opt.DD)
			})
		} else {
			p.forEach(func(t, f, i int) {
				if opt.DD {
					eq.residual(t, f)
				}
				eq.build(t, f, p.bscr[i])
			})
			p.red.reduce(eq)
			p.red.solve(eq, p.cscr[0])
			p.forEach(func(t, f, i int) {
				p.red.broadcast(eq, t, f)
				eq.apply(t, f, iter, opt.DD)
			})
		}
		frac = p.trk.track(eq.noInfo)
		iter++
		PrintD(2, "%s: iter= %d, converged= %.3f\n", p.g.Name, iter, frac)
		if frac >= opt.StopFrac {
			break
		}
	}

	rslt := &SolverSol{
		JHJ:           eq.jhj,
		BlockLen:      eq.bl,
		Iterations:    iter,
		ConvergedFrac: frac,
	}
	for _, v := range eq.noInfo {
		if v {
			rslt.NoInfo++
		}
	}

	// FINALIZE_FLAGS
	rslt.NewlyFlagged = p.trk.finalize(eq.kern)
	// PROPAGATE_FLAGS
	if !opt.DD {
		rslt.FlaggedSample = propagateFlags(eq.vis, p.g)
	}
	if rslt.NewlyFlagged > 0 {
		PrintD(1, "%s: %d cells flagged, %d samples flagged\n", p.g.Name, rslt.NewlyFlagged, rslt.FlaggedSample)
	}
	return rslt
}
