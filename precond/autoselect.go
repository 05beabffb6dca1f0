// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package precond

import (
	"github.com/ediloren/fastercap-core/config"
	"github.com/ediloren/fastercap-core/runctx"
)

// AutoSelect implements spec.md §4.6's auto-preconditioner rule: "pick
// Jacobi below a complexity threshold (links x conductors), super-128 up
// to a higher threshold, super-512 beyond, and super-1024 above that."
// Logs a one-line summary of the decision and the counts behind it,
// carried from original_source/'s habit of logging solver-selection
// decisions (SPEC_FULL.md §4.1-4.9 supplement).
func AutoSelect(rc *runctx.RunContext, params config.Precond, numLinks, numConductors int) config.PrecondMode {
	complexity := numLinks * numConductors
	var mode config.PrecondMode
	var superDim int
	switch {
	case complexity < params.AutoLowLinks:
		mode = config.PrecondJacobi
	case complexity < params.AutoMidLinks:
		mode, superDim = config.PrecondTwoLevel, 128
	case complexity < params.AutoHiLinks:
		mode, superDim = config.PrecondTwoLevel, 512
	default:
		mode, superDim = config.PrecondTwoLevel, 1024
	}
	if superDim != 0 {
		rc.Log("preconditioner auto-select: complexity=%d (links=%d * conductors=%d) -> %s-%d",
			complexity, numLinks, numConductors, mode, superDim)
	} else {
		rc.Log("preconditioner auto-select: complexity=%d (links=%d * conductors=%d) -> %s",
			complexity, numLinks, numConductors, mode)
	}
	return mode
}

// AutoSuperDim returns the super_pre_dim AutoSelect implied for a
// two-level choice, so callers don't have to re-derive the threshold
// bucket from params a second time.
func AutoSuperDim(params config.Precond, numLinks, numConductors int) int {
	complexity := numLinks * numConductors
	switch {
	case complexity < params.AutoMidLinks:
		return 128
	case complexity < params.AutoHiLinks:
		return 512
	default:
		return 1024
	}
}
