// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gojones

import (
	"fmt"
	"math"
	"math/cmplx"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/mat"
)

// ------------------------------------
// Mini functions
// ------------------------------------

// Squared magnitude of a complex value
func Abs2(z complex128) float64 {
	return real(z)*real(z) + imag(z)*imag(z)
}

func isFinite(z complex128) bool {
	return !cmplx.IsNaN(z) && !cmplx.IsInf(z)
}

func isFiniteF(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// ------------------------------------
// Debug print function
// ------------------------------------

// Logger used by the package. Writes to stderr like the rest of the debug output.
var Log = newLogger()

func newLogger() *log.Logger {
	l := log.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(log.WarnLevel)
	l.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	return l
}

// Debug display level
var DBG_ int

// SetDebug sets the debug display level and the matching logger level.
// 0(OFF), 1(info), 2(detailed), 3(more detailed), 4(most detailed)
func SetDebug(v int) {
	DBG_ = v
	switch {
	case v <= 0:
		Log.SetLevel(log.WarnLevel)
	case v == 1:
		Log.SetLevel(log.InfoLevel)
	case v <= 3:
		Log.SetLevel(log.DebugLevel)
	default:
		Log.SetLevel(log.TraceLevel)
	}
}

// Unconditional display to stderr (usage, banners)
func PrintA(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format, a...)
}

// Debug display
func PrintD(v int, format string, a ...any) {
	if DBG_ < v {
		return
	}
	format = strings.TrimRight(format, "\n")
	if v <= 1 {
		Log.Infof(format, a...)
	} else {
		Log.Debugf(format, a...)
	}
}

func PrintMat(X mat.Matrix) {
	r, c := X.Dims()
	fa := mat.Formatted(X, mat.Prefix(""), mat.Squeeze())
	Log.Debugf("(%d x %d)\n%v", r, c, fa)
}

func PrintE(err error) {
	Log.Errorf("err=%s", err.Error())
}

// ------------------------------------
// For command argument parsing
// ------------------------------------

// Correlation mode: number of correlations per sample (1: scalar, 2: diagonal, 4: full 2x2)
type CorrMode int

const (
	Scalar   CorrMode = 1
	Diagonal CorrMode = 2
	Full     CorrMode = 4
)

var validModes = []CorrMode{Scalar, Diagonal, Full}

func (p *CorrMode) IsValid() bool {
	return slices.Contains(validModes, *p)
}

func (p *CorrMode) Set(s string) error {
	i, err := strconv.ParseInt(s, 10, 0)
	if err != nil {
		return err
	}
	m := CorrMode(i)
	if !m.IsValid() {
		return fmt.Errorf("invalid correlation mode: %d (1, 2 or 4)", i)
	}
	*p = m
	return nil
}

func (p *CorrMode) String() string {
	switch *p {
	case Scalar:
		return "1"
	case Diagonal:
		return "2"
	case Full:
		return "4"
	default:
		return "UNKNOWN!"
	}
}

// Solve granularity: one solution per antenna or one shared by the whole array
type SolvePer int

const (
	PerAntenna SolvePer = iota
	PerArray
)

func (p *SolvePer) Set(s string) error {
	switch strings.ToLower(s) {
	case "antenna", "ant":
		*p = PerAntenna
	case "array":
		*p = PerArray
	default:
		return fmt.Errorf("invalid solve granularity: %q (antenna or array)", s)
	}
	return nil
}

func (p *SolvePer) String() string {
	switch *p {
	case PerAntenna:
		return "antenna"
	case PerArray:
		return "array"
	default:
		return "UNKNOWN!"
	}
}

func (p *SolvePer) UnmarshalText(text []byte) error {
	return p.Set(string(text))
}

func (p SolvePer) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
