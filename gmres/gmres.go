// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gmres implements the preconditioned and flexible-preconditioned
// GMRES driver of spec.md §4.7: modified Gram-Schmidt Arnoldi with Givens
// rotations, grown column-by-column up to a maximum iteration count,
// without restarts.
//
// Standard (fixed-preconditioner) and flexible (preconditioner-varies-per-
// iteration) GMRES are implemented as one right-preconditioned Arnoldi
// recurrence: at step j the driver always records Z[j] = P.Apply(Q[j]) and
// forms w = A(Z[j]). When P is the identity this degenerates to ordinary
// GMRES (x = x0 + Q*y, spec.md §4.7's "no preconditioner" case); when P is
// fixed across iterations, Z*y == P*(Q*y) by linearity (the "standard"
// case); when P genuinely varies per iteration (the hierarchical
// preconditioner's nested inner solve, spec.md §4.6), only the Z-vector
// form is algebraically correct, which is exactly the textbook definition
// of flexible GMRES. Carrying one code path instead of three avoids
// duplicating the Arnoldi loop for a case (standard) that is a special
// instance of the general one.
package gmres

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/ediloren/fastercap-core/errs"
	"github.com/ediloren/fastercap-core/runctx"
)

// Operator is the minimal matrix-vector product interface GMRES consumes;
// matvec.Operator satisfies it structurally.
type Operator interface {
	Apply(q []complex128) ([]complex128, error)
}

// Preconditioner is the minimal interface GMRES consumes; every variant in
// package precond satisfies it structurally.
type Preconditioner interface {
	Apply(q []complex128) ([]complex128, error)
}

// identity is used when no preconditioner is supplied.
type identity struct{}

func (identity) Apply(q []complex128) ([]complex128, error) {
	out := make([]complex128, len(q))
	copy(out, q)
	return out, nil
}

// Result holds one right-hand side's solve outcome.
type Result struct {
	X          []complex128
	Iterations int
	Residual   float64 // |g[iters]| / |b|
	Converged  bool    // false is a soft failure (spec.md §4.7): the current iterate is still returned
}

// Solve runs unrestarted (flexible) preconditioned GMRES for A*x=b.
// maxIters bounds the Krylov space size; tol is the relative-residual
// target. Non-convergence within maxIters is not an error — spec.md §4.7
// calls it a "soft failure": the current iterate is returned with
// Result.Converged false, and the caller (spec.md §9's RunContext ErrMsg)
// decides whether to warn.
func Solve(rc *runctx.RunContext, a Operator, p Preconditioner, b []complex128, maxIters int, tol float64) (*Result, error) {
	n := len(b)
	if p == nil {
		p = identity{}
	}
	bnorm := cnorm(b)
	if bnorm == 0 {
		return &Result{X: make([]complex128, n), Iterations: 0, Residual: 0, Converged: true}, nil
	}

	// x0 = P*b when a preconditioner is active, else zero (spec.md §4.7).
	var x0 []complex128
	if _, isIdentity := p.(identity); isIdentity {
		x0 = make([]complex128, n)
	} else {
		px, err := p.Apply(b)
		if err != nil {
			return nil, err
		}
		x0 = px
	}

	ax0, err := a.Apply(x0)
	if err != nil {
		return nil, err
	}
	r0 := subtract(b, ax0)
	beta := cnorm(r0)
	if beta == 0 {
		return &Result{X: x0, Iterations: 0, Residual: 0, Converged: true}, nil
	}

	if maxIters <= 0 {
		maxIters = 200
	}
	maxIters = min(maxIters, n)

	q := make([][]complex128, 0, maxIters+1)
	z := make([][]complex128, 0, maxIters)
	q = append(q, scale(r0, 1/beta))

	h := make([][]complex128, 0, maxIters+1) // H[j] is column j, length j+2
	cs := make([]complex128, maxIters)
	sn := make([]complex128, maxIters)
	g := make([]complex128, maxIters+1)
	g[0] = complex(beta, 0)

	iters := 0
	resid := 1.0
	for j := 0; j < maxIters; j++ {
		if rc.Cancelled() {
			return nil, errs.New(errs.UserBreak, "GMRES cancelled")
		}
		zj, err := p.Apply(q[j])
		if err != nil {
			return nil, err
		}
		z = append(z, zj)
		w, err := a.Apply(zj)
		if err != nil {
			return nil, err
		}

		col := make([]complex128, j+2)
		for i := 0; i <= j; i++ {
			hij := cdot(w, q[i]) // modified Gram-Schmidt
			col[i] = hij
			w = axpy(w, -hij, q[i])
		}
		// one optional reorthogonalisation pass (spec.md §4.7)
		for i := 0; i <= j; i++ {
			corr := cdot(w, q[i])
			if cmplx.Abs(corr) == 0 {
				continue
			}
			col[i] += corr
			w = axpy(w, -corr, q[i])
		}
		hNext := cnorm(w)
		col[j+1] = complex(hNext, 0)
		if hNext > 1e-300 {
			q = append(q, scale(w, 1/hNext))
		} else {
			q = append(q, make([]complex128, n))
		}

		// apply previously computed Givens rotations to the new column
		for i := 0; i < j; i++ {
			t1, t2 := col[i], col[i+1]
			col[i] = cmplx.Conj(cs[i])*t1 + cmplx.Conj(sn[i])*t2
			col[i+1] = -sn[i]*t1 + cs[i]*t2
		}
		// compute and apply the new rotation to zero col[j+1]
		c, s := givens(col[j], col[j+1])
		cs[j], sn[j] = c, s
		col[j] = cmplx.Conj(c)*col[j] + cmplx.Conj(s)*col[j+1]
		col[j+1] = 0
		h = append(h, col)

		t1, t2 := g[j], g[j+1]
		g[j] = cmplx.Conj(c)*t1 + cmplx.Conj(s)*t2
		g[j+1] = -s*t1 + c*t2

		iters = j + 1
		resid = cmplx.Abs(g[j+1]) / bnorm
		if resid < tol {
			break
		}
	}

	y := backSolve(h, g, iters)
	x := make([]complex128, n)
	copy(x, x0)
	for j := 0; j < iters; j++ {
		x = axpy(x, y[j], z[j])
	}

	return &Result{X: x, Iterations: iters, Residual: resid, Converged: resid < tol}, nil
}

// backSolve solves the k x k upper-triangular system H*y = g (g truncated
// to its first k entries). The system is held in a gonum mat.CDense for
// bounds-checked indexing; gonum/mat has no complex triangular solver of
// its own (DESIGN.md), so the elimination itself is the hand-written loop
// below against CDense's At/Set accessors — CDense is a container here,
// not a solver. This is what spec.md §4.7 calls "back-solve the
// upper-triangular system on H."
func backSolve(h [][]complex128, g []complex128, k int) []complex128 {
	if k == 0 {
		return nil
	}
	r := mat.NewCDense(k, k, nil)
	for j := 0; j < k; j++ {
		for i := 0; i <= j && i < k; i++ {
			r.Set(i, j, h[j][i])
		}
	}
	y := make([]complex128, k)
	for i := k - 1; i >= 0; i-- {
		sum := g[i]
		for j := i + 1; j < k; j++ {
			sum -= r.At(i, j) * y[j]
		}
		diag := r.At(i, i)
		if diag == 0 {
			y[i] = 0
			continue
		}
		y[i] = sum / diag
	}
	return y
}

// givens computes a Givens rotation (c,s), c real, such that
// [ conj(c)  conj(s) ] [a]   [r]
// [  -s        c     ] [b] = [0]
// (the r component need not be real: only its magnitude feeds the
// convergence check, and the same rotation is applied consistently to
// both H's column and the auxiliary vector g, spec.md §4.7).
func givens(a, b complex128) (c, s complex128) {
	if b == 0 {
		return complex(1, 0), 0
	}
	if a == 0 {
		return 0, complex(1, 0)
	}
	absA, absB := cmplx.Abs(a), cmplx.Abs(b)
	norm := math.Hypot(absA, absB)
	c = complex(absA/norm, 0)
	s = b * cmplx.Conj(a) / complex(norm*absA, 0)
	return c, s
}

func cnorm(v []complex128) float64 {
	var sum float64
	for _, x := range v {
		sum += real(x)*real(x) + imag(x)*imag(x)
	}
	return math.Sqrt(sum)
}

func cdot(a, b []complex128) complex128 {
	var sum complex128
	for i := range a {
		sum += a[i] * cmplx.Conj(b[i])
	}
	return sum
}

func subtract(a, b []complex128) []complex128 {
	out := make([]complex128, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

func scale(a []complex128, s float64) []complex128 {
	out := make([]complex128, len(a))
	for i := range a {
		out[i] = a[i] * complex(s, 0)
	}
	return out
}

// axpy returns a + alpha*b (not in-place: callers hold onto prior slices
// as basis vectors).
func axpy(a []complex128, alpha complex128, b []complex128) []complex128 {
	out := make([]complex128, len(a))
	for i := range a {
		out[i] = a[i] + alpha*b[i]
	}
	return out
}
