// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package precond

import (
	"github.com/ediloren/fastercap-core/gmres"
	"github.com/ediloren/fastercap-core/runctx"
)

// Hierarchical is the preconditioner of spec.md §4.6 "Hierarchical": a
// coarser operator backs an *inner* GMRES solve nested inside each outer
// GMRES step. The caller (solve's buildCoarseOperator) builds that operator
// over the same trees and leaves as the outer one, with links regenerated
// at a relaxed link eps; no second, coarser tree is built. Because the inner
// solve's residual varies between outer iterations, the outer driver must
// run the flexible recurrence (gmres.Solve always does, see package doc).
type Hierarchical struct {
	CoarseOperator gmres.Operator
	RC             *runctx.RunContext
	InnerMaxIters  int
	InnerTol       float64
}

func NewHierarchical(rc *runctx.RunContext, coarseOperator gmres.Operator, innerMaxIters int, innerTol float64) *Hierarchical {
	if innerMaxIters <= 0 {
		innerMaxIters = 20
	}
	if innerTol <= 0 {
		innerTol = 1e-2
	}
	return &Hierarchical{CoarseOperator: coarseOperator, RC: rc, InnerMaxIters: innerMaxIters, InnerTol: innerTol}
}

// Apply runs the inner GMRES solve against the coarse operator. The inner
// solve stops at InnerTol or InnerMaxIters, so its result is not a fixed
// linear function of q and its residual varies between outer calls, which
// is precisely why the outer driver must be flexible GMRES (spec.md §4.6).
func (h *Hierarchical) Apply(q []complex128) ([]complex128, error) {
	res, err := gmres.Solve(h.RC, h.CoarseOperator, nil, q, h.InnerMaxIters, h.InnerTol)
	if err != nil {
		return nil, err
	}
	if !res.Converged {
		h.RC.Warn("hierarchical preconditioner: inner GMRES did not converge in %d iterations (residual %.3g)", res.Iterations, res.Residual)
	}
	return res.X, nil
}
