// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gojones

const (
	MAX_ITER_DEFAULT  = 50    // Default maximum number of solver iterations
	STOP_FRAC_DEFAULT = 1.0   // Default fraction of unflagged cells required to converge
	TOLERANCE_DEFAULT = 1e-5  // Default relative gain change regarded as converged
	SINGULAR_EPS      = 1e-12 // Relative pivot size below which a JHJ block is treated as singular
	TREND_WINDOW      = 4     // Default length of the per-cell change history (local choice, tune via FlagPolicy)
	STALL_RATIO       = 1.0   // Default newer/older change ratio regarded as never stabilized (local choice, tune via FlagPolicy)
)

// Correlation slots of a full 2x2 Jones matrix or sample (row-major)
const (
	XX = 0
	XY = 1
	YX = 2
	YY = 3
)
