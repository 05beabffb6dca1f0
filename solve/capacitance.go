// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solve

import (
	"math"

	"github.com/ediloren/fastercap-core/cond"
)

// Capacitance is the N x N matrix spec.md §4.9/§6 emits: one row/column
// per real (non-dielectric) conductor, dielectric-interface groups
// excluded. Imag is nil for a real-permittivity problem.
type Capacitance struct {
	Names []string
	Real  [][]float64
	Imag  [][]float64
}

func newCapacitance(names []string, complexProblem bool) *Capacitance {
	n := len(names)
	c := &Capacitance{Names: append([]string(nil), names...), Real: make([][]float64, n)}
	for i := range c.Real {
		c.Real[i] = make([]float64, n)
	}
	if complexProblem {
		c.Imag = make([][]float64, n)
		for i := range c.Imag {
			c.Imag[i] = make([]float64, n)
		}
	}
	return c
}

// AssembleColumn folds one excitation's solved charge vector into column
// `active` of c: for every real conductor i, C[i][active] is the sum of
// the charge on conductor i's panels, every panel weighted by the same
// conductor-level outer permittivity (outerPermWeight); a panel's own
// dielectric index is not consulted. Dielectric-interface groups never
// contribute a row (spec.md §6).
func AssembleColumn(c *Capacitance, conductors []*cond.Conductor, q []complex128, active int) {
	for i, ci := range conductors {
		var sum complex128
		for k := 0; k < ci.NumLeaf; k++ {
			idx := ci.ChargeOffset + k
			sum += q[idx] * outerPermWeight(ci)
		}
		c.Real[i][active] = real(sum)
		if c.Imag != nil {
			c.Imag[i][active] = imag(sum)
		}
	}
}

// outerPermWeight returns the conductor's primary outer-permittivity
// value (dielectric-index 0), or OuterPerm (1 if unset) when the
// conductor has no dielectric-index entries. No per-panel permittivity
// weighting is applied here or in the potential kernel.
func outerPermWeight(c *cond.Conductor) complex128 {
	if c.NumDielEntries == 0 {
		if c.OuterPerm == 0 {
			return 1
		}
		return c.OuterPerm
	}
	return c.OuterPermByDielIndex[0]
}

// FrobeniusDelta computes the weighted Frobenius-norm delta of spec.md
// §4.8's termination test: ||C_k - C_{k-1}|| / ||C_k||.
func FrobeniusDelta(prev, cur *Capacitance) float64 {
	if prev == nil {
		return 1 // first iteration never converges on the delta test
	}
	var num, den float64
	for i := range cur.Real {
		for j := range cur.Real[i] {
			d := cur.Real[i][j] - prev.Real[i][j]
			num += d * d
			den += cur.Real[i][j] * cur.Real[i][j]
			if cur.Imag != nil {
				di := cur.Imag[i][j] - prev.Imag[i][j]
				num += di * di
				den += cur.Imag[i][j] * cur.Imag[i][j]
			}
		}
	}
	if den == 0 {
		return 0
	}
	return math.Sqrt(num / den)
}
