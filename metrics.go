// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gojones

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors observed by SolveGains
type Metrics struct {
	SolvesTotal     *prometheus.CounterVec
	Iterations      *prometheus.HistogramVec
	ConvergedFrac   *prometheus.GaugeVec
	FlaggedCells    *prometheus.CounterVec
	FlaggedSamples  *prometheus.CounterVec
	NoInfoCells     *prometheus.GaugeVec
	SolveDuration   *prometheus.HistogramVec
	UnconvergedRuns *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg (nil: not registered)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SolvesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gojones_solves_total",
				Help: "Total number of solver calls by term and correlation mode.",
			},
			[]string{"term", "mode"},
		),
		Iterations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gojones_iterations",
				Help:    "Number of iterations used per solver call.",
				Buckets: []float64{1, 2, 3, 5, 8, 10, 15, 20, 30, 50, 100},
			},
			[]string{"term"},
		),
		ConvergedFrac: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gojones_converged_fraction",
				Help: "Converged fraction of unflagged cells after the last call.",
			},
			[]string{"term"},
		),
		FlaggedCells: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gojones_flagged_cells_total",
				Help: "Total number of gain cells flagged by the final flagging pass.",
			},
			[]string{"term"},
		),
		FlaggedSamples: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gojones_flagged_samples_total",
				Help: "Total number of sample correlations flagged by flag propagation.",
			},
			[]string{"term"},
		),
		NoInfoCells: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gojones_noinfo_cells",
				Help: "Number of cells without information in the last iteration of the last call.",
			},
			[]string{"term"},
		),
		SolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gojones_solve_duration_seconds",
				Help:    "Solver call latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"term"},
		),
		UnconvergedRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gojones_unconverged_total",
				Help: "Total number of calls that stopped at the iteration limit.",
			},
			[]string{"term"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.SolvesTotal,
			m.Iterations,
			m.ConvergedFrac,
			m.FlaggedCells,
			m.FlaggedSamples,
			m.NoInfoCells,
			m.SolveDuration,
			m.UnconvergedRuns,
		)
	}
	return m
}

// Observe records the result of one solver call
func (m *Metrics) Observe(term string, mode CorrMode, sol *SolverSol, stopFrac float64) {
	m.SolvesTotal.WithLabelValues(term, mode.String()).Inc()
	m.Iterations.WithLabelValues(term).Observe(float64(sol.Iterations))
	m.ConvergedFrac.WithLabelValues(term).Set(sol.ConvergedFrac)
	m.FlaggedCells.WithLabelValues(term).Add(float64(sol.NewlyFlagged))
	m.FlaggedSamples.WithLabelValues(term).Add(float64(sol.FlaggedSample))
	m.NoInfoCells.WithLabelValues(term).Set(float64(sol.NoInfo))
	m.SolveDuration.WithLabelValues(term).Observe(sol.Elapsed.Seconds())
	if sol.ConvergedFrac < stopFrac {
		m.UnconvergedRuns.WithLabelValues(term).Inc()
	}
}
