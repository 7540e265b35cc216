// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

// Implements generation of synthetic observations for a known gain solution.

package gojones

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand"
)

const (
	C_LIGHT    = 299792458.0 // Speed of light [m/s]
	FREQ0      = 1.4e9       // Frequency of the first channel [Hz]
	CHAN_WIDTH = 1e6         // Channel width [Hz]
	SLOT_DUR   = 10.0        // Duration of one timeslot [s]
	EARTH_RATE = 7.2921e-5   // Earth rotation rate [rad/s]
)

// Scenario describes a synthetic observation of point sources through one known gain term
type Scenario struct {
	NAnt        int       // Number of antennas
	NTime       int       // Number of timeslots
	NChan       int       // Number of channels
	NDir        int       // Number of source directions
	Mode        CorrMode  // Correlation mode
	TimeInt     int       // Solution interval [timeslots]. 0 means all timeslots
	FreqInt     int       // Solution interval [channels]. 0 means all channels
	DD          bool      // Gains differ per direction
	Gain        Jones     // Mean true gain
	AmpJitter   float64   // Relative amplitude scatter of the true gains
	PhaseJitter float64   // Phase scatter of the true gains [rad]
	Leakage     float64   // Off-diagonal scatter of the true gains (mode 4 only)
	Flux        []float64 // Flux per direction. nil means 1
	Extent      float64   // Maximum source offset from the phase centre [rad]
	Baseline    float64   // Maximum antenna offset from the array centre [m]
	Noise       float64   // Standard deviation of the complex noise per correlation
	FlagFrac    float64   // Fraction of samples flagged at random
	Seed        int64     // Random seed
}

// NewScenario creates a new Scenario with default values
func NewScenario() *Scenario {
	return &Scenario{
		NAnt:        8,                   // Antennas
		NTime:       4,                   // Timeslots
		NChan:       4,                   // Channels
		NDir:        1,                   // Single source
		Mode:        Full,                // Full polarimetric
		TimeInt:     0,                   // One time interval
		FreqInt:     0,                   // One frequency interval
		DD:          false,               // Direction independent
		Gain:        DiagJones(1.2, 0.9), // Mean gain
		AmpJitter:   0.1,                 // 10 % amplitude scatter
		PhaseJitter: 0.3,                 // Phase scatter [rad]
		Leakage:     0,                   // No leakage
		Flux:        nil,                 // Unit flux
		Extent:      0.01,                // Source offsets [rad]
		Baseline:    1000,                // Antenna offsets [m]
		Noise:       0,                   // Noiseless
		FlagFrac:    0,                   // No flags
		Seed:        1,                   // Random seed
	}
}

// Simulation holds the data generated from a Scenario
type Simulation struct {
	Vis   *VisibilityData // Corrupted visibilities
	Model *ModelData      // Uncorrupted model per direction
	Truth *GainTerm       // True gains
	Times []float64       // Timestamp of each row [s]
}

// Simulate generates visibilities V = G_p M G_q^H + noise for every
// cross-correlation of every timeslot
func (s *Scenario) Simulate() (*Simulation, error) {
	if !s.Mode.IsValid() {
		return nil, fmt.Errorf("%w: correlation mode %d", ErrPrecondition, int(s.Mode))
	}
	if s.NAnt < 2 || s.NTime < 1 || s.NChan < 1 || s.NDir < 1 {
		return nil, fmt.Errorf("%w: scenario shape ant=%d time=%d chan=%d dir=%d", ErrPrecondition, s.NAnt, s.NTime, s.NChan, s.NDir)
	}
	if s.Flux != nil && len(s.Flux) != s.NDir {
		return nil, fmt.Errorf("%w: %d fluxes for %d directions", ErrPrecondition, len(s.Flux), s.NDir)
	}
	rnd := rand.New(rand.NewSource(s.Seed))
	ly := newLayout(s.Mode)

	// Antenna positions (east, north) and source offsets (l, m)
	pos := make([][2]float64, s.NAnt)
	for a := range pos {
		pos[a] = [2]float64{(2*rnd.Float64() - 1) * s.Baseline, (2*rnd.Float64() - 1) * s.Baseline}
	}
	src := make([][2]float64, s.NDir)
	for d := range src {
		if d > 0 {
			src[d] = [2]float64{(2*rnd.Float64() - 1) * s.Extent, (2*rnd.Float64() - 1) * s.Extent}
		}
	}

	// Rows: cross-correlations of each timeslot
	nbl := s.NAnt * (s.NAnt - 1) / 2
	nrow := s.NTime * nbl
	vis := NewVisibilityData(nrow, s.NChan, s.NAnt, s.Mode)
	times := make([]float64, nrow)
	r := 0
	for t := range s.NTime {
		for p := range s.NAnt {
			for q := p + 1; q < s.NAnt; q++ {
				vis.Ant1[r], vis.Ant2[r] = p, q
				times[r] = float64(t) * SLOT_DUR
				r++
			}
		}
	}

	// Model: unpolarized point sources
	model := NewModelData(nrow, s.NChan, s.NDir, s.Mode)
	for r := range nrow {
		h := times[r] * EARTH_RATE
		p, q := vis.Ant1[r], vis.Ant2[r]
		dx, dy := pos[p][0]-pos[q][0], pos[p][1]-pos[q][1]
		u := dx*math.Cos(h) - dy*math.Sin(h)
		v := dx*math.Sin(h) + dy*math.Cos(h)
		for c := range s.NChan {
			lambda := C_LIGHT / (FREQ0 + float64(c)*CHAN_WIDTH)
			for d := range s.NDir {
				flux := 1.0
				if s.Flux != nil {
					flux = s.Flux[d]
				}
				phi := 2 * math.Pi * (u*src[d][0] + v*src[d][1]) / lambda
				m := complex(flux, 0) * cmplx.Exp(complex(0, -phi))
				ly.store(model.Model[model.Offset(r, c, d):], DiagJones(m, m))
			}
		}
	}

	// True gains
	var dirMap []int
	if s.DD {
		dirMap = IntervalMap(s.NDir, 1)
	}
	truth := NewGainTerm("truth", s.Mode, s.NAnt, TimeIntervalMap(times, s.TimeInt), IntervalMap(s.NChan, s.FreqInt), dirMap)
	for cell := range truth.NCell() {
		j := s.Gain
		for _, i := range []int{XX, YY} {
			amp := 1 + s.AmpJitter*rnd.NormFloat64()
			j[i] *= complex(amp, 0) * cmplx.Exp(complex(0, s.PhaseJitter*rnd.NormFloat64()))
		}
		if s.Mode == Full && s.Leakage > 0 {
			for _, i := range []int{XY, YX} {
				j[i] += complex(s.Leakage*rnd.NormFloat64(), s.Leakage*rnd.NormFloat64())
			}
		}
		ly.store(truth.Slots(cell), j)
	}

	// Corrupted data
	err := Predict(vis, model, TermChain{truth}, vis.Data)
	if err != nil {
		return nil, fmt.Errorf("Predict() failed, err= %v", err)
	}
	if s.Noise > 0 {
		sd := s.Noise / math.Sqrt2
		for i := range vis.Data {
			vis.Data[i] += complex(sd*rnd.NormFloat64(), sd*rnd.NormFloat64())
		}
	}

	if s.FlagFrac > 0 {
		nc := int(s.Mode)
		for i := 0; i < len(vis.Flags); i += nc {
			if rnd.Float64() < s.FlagFrac {
				for k := range nc {
					vis.Flags[i+k] = true
				}
			}
		}
	}

	PrintD(2, "simulated %s\n", vis)
	return &Simulation{Vis: vis, Model: model, Truth: truth, Times: times}, nil
}

// Solvable term with the same shape as the true gains, initialized to the identity
func (p *Simulation) NewTerm(name string) *GainTerm {
	return NewGainTerm(name, p.Truth.Mode, p.Truth.NAnt, p.Truth.TimeMap, p.Truth.FreqMap, p.Truth.DirMap)
}
