// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package matvec

import "github.com/ediloren/fastercap-core/cond"

// zeroTotalChargeScale is the constant spec.md §4.5 names without fixing a
// value ("v[last] = scale · Σ q"). 1.0 keeps the replaced row dimensionally
// consistent with the charge vector it sums; nothing in spec.md or
// original_source/ ties it to panel geometry.
const zeroTotalChargeScale = 1.0

// ApplyZeroTotalCharge implements spec.md §4.5's 2D integration-constant
// fix-up: the free-space 2D Green's function -log(r) is defined only up to
// an additive constant, which leaves each conductor's block of the matvec
// singular. For every real conductor (dielectric-interface groups are
// excluded — their rows never appear in the assembled matrix either), the
// last row of the block is replaced by the zero-total-charge condition and
// the pre-replacement value of that row is subtracted from the block's
// other rows, cancelling the undetermined constant.
func ApplyZeroTotalCharge(conductors []*cond.Conductor, q, out []complex128) {
	for _, c := range conductors {
		if c.IsDielectric || c.NumLeaf == 0 {
			continue
		}
		offset := c.ChargeOffset
		last := offset + c.NumLeaf - 1

		var sum complex128
		for i := offset; i <= last; i++ {
			sum += q[i]
		}

		orig := out[last]
		out[last] = zeroTotalChargeScale * sum
		for i := offset; i < last; i++ {
			out[i] -= orig
		}
	}
}
