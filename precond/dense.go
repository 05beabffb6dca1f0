// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package precond

import (
	"github.com/ediloren/fastercap-core/errs"
)

// invertDense computes the inverse of a square complex matrix by Gauss-
// Jordan elimination with partial pivoting, mirroring the teacher's
// la.MatInv(dst, src, minDet) signature (shp/algos.go,
// msolid/princstrainsup.go) — generalized to complex128 because neither
// gosl/la nor gonum/mat exposes a dense complex LU/solve routine (DESIGN.md
// records this as the one hand-rolled linear-algebra routine in the
// module, the pack's two candidate libraries both being real-valued only).
// Used by the two-level and block preconditioner builders (spec.md §4.6) to
// invert the dense sub-operator formed from a coarse tree cut or a small
// leaf block.
func invertDense(m [][]complex128) ([][]complex128, error) {
	n := len(m)
	if n == 0 {
		return nil, nil
	}
	// augmented [A | I]
	aug := make([][]complex128, n)
	for i := range aug {
		aug[i] = make([]complex128, 2*n)
		copy(aug[i], m[i])
		aug[i][n+i] = 1
	}

	for col := 0; col < n; col++ {
		piv := col
		best := cabs(aug[col][col])
		for r := col + 1; r < n; r++ {
			if v := cabs(aug[r][col]); v > best {
				piv, best = r, v
			}
		}
		if best == 0 {
			return nil, errs.New(errs.Generic, "preconditioner matrix is singular at column %d", col)
		}
		if piv != col {
			aug[col], aug[piv] = aug[piv], aug[col]
		}
		pivot := aug[col][col]
		for k := 0; k < 2*n; k++ {
			aug[col][k] /= pivot
		}
		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			factor := aug[r][col]
			if factor == 0 {
				continue
			}
			for k := 0; k < 2*n; k++ {
				aug[r][k] -= factor * aug[col][k]
			}
		}
	}

	inv := make([][]complex128, n)
	for i := range inv {
		inv[i] = make([]complex128, n)
		copy(inv[i], aug[i][n:])
	}
	return inv, nil
}

func cabs(c complex128) float64 {
	re, im := real(c), imag(c)
	if re < 0 {
		re = -re
	}
	if im < 0 {
		im = -im
	}
	if re > im {
		return re + im*im/(2*re+1e-300)
	}
	if im == 0 {
		return 0
	}
	return im + re*re/(2*im+1e-300)
}
