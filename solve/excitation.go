// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solve

import "github.com/ediloren/fastercap-core/cond"

// ExcitationVector builds the right-hand side for the solve that drives
// column `active` of the capacitance matrix: unit potential on the active
// conductor's panels, zero everywhere else, including on every dielectric-
// interface panel (their boundary condition is carried by the operator's
// coefficients, not by the excitation). Supplemented from
// original_source/: the distilled spec does not restate how the per-
// conductor right-hand side is formed (SPEC_FULL.md §4.1-4.9 supplement).
func ExcitationVector(conductors []*cond.Conductor, n, active int) []complex128 {
	b := make([]complex128, n)
	c := conductors[active]
	for i := 0; i < c.NumLeaf; i++ {
		b[c.ChargeOffset+i] = 1
	}
	return b
}
