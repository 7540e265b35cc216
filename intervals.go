// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gojones

import (
	"math"

	"golang.org/x/exp/slices"
)

// Map n consecutive indices into intervals of the given size (size <= 0: one interval)
func IntervalMap(n, size int) []int {
	m := make([]int, n)
	if size <= 0 {
		return m
	}
	for i := range n {
		m[i] = i / size
	}
	return m
}

// Number of intervals referenced by a map
func NumIntervals(m []int) int {
	if len(m) == 0 {
		return 0
	}
	return slices.Max(m) + 1
}

// Map per-row timestamps into intervals of size unique timestamps.
// Timestamps closer than 1 ms are regarded as the same timeslot.
func TimeIntervalMap(times []float64, size int) []int {
	u := make([]float64, len(times))
	for i, t := range times {
		u[i] = roundMs(t)
	}
	uniq := slices.Clone(u)
	slices.Sort(uniq)
	uniq = slices.Compact(uniq)
	m := make([]int, len(times))
	for i, t := range u {
		k, _ := slices.BinarySearch(uniq, t)
		if size > 0 {
			m[i] = k / size
		}
	}
	return m
}

func roundMs(t float64) float64 {
	return math.Round(t*1000) / 1000
}

// Rows belonging to each interval of a map
func intervalMembers(m []int, n int) [][]int {
	mem := make([][]int, n)
	for i, k := range m {
		mem[k] = append(mem[k], i)
	}
	return mem
}
