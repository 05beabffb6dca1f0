// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gmres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ediloren/fastercap-core/runctx"
)

// diagOperator applies a fixed diagonal matrix, letting tests check GMRES
// against a known closed-form solution.
type diagOperator struct{ diag []complex128 }

func (d diagOperator) Apply(q []complex128) ([]complex128, error) {
	out := make([]complex128, len(q))
	for i, v := range q {
		out[i] = d.diag[i] * v
	}
	return out, nil
}

func TestSolveDiagonalConvergesExactly(t *testing.T) {
	rc := runctx.NewDefault(false)
	a := diagOperator{diag: []complex128{complex(2, 0), complex(4, 0), complex(1, 0)}}
	b := []complex128{complex(2, 0), complex(4, 0), complex(1, 0)}

	res, err := Solve(rc, a, nil, b, 10, 1e-10)
	require.NoError(t, err)
	require.True(t, res.Converged)
	for _, xi := range res.X {
		assert.InDelta(t, 1.0, real(xi), 1e-6)
		assert.InDelta(t, 0.0, imag(xi), 1e-6)
	}
}

func TestSolveWithJacobiPreconditionerMatchesUnpreconditioned(t *testing.T) {
	rc := runctx.NewDefault(false)
	a := diagOperator{diag: []complex128{complex(3, 0), complex(5, 0)}}
	b := []complex128{complex(6, 0), complex(15, 0)}

	jp := precondFn(func(q []complex128) ([]complex128, error) {
		out := make([]complex128, len(q))
		for i, v := range q {
			out[i] = v / a.diag[i]
		}
		return out, nil
	})

	res, err := Solve(rc, a, jp, b, 10, 1e-10)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, real(res.X[0]), 1e-6)
	assert.InDelta(t, 3.0, real(res.X[1]), 1e-6)
}

// precondFn adapts a plain function to the Preconditioner interface.
type precondFn func([]complex128) ([]complex128, error)

func (f precondFn) Apply(q []complex128) ([]complex128, error) { return f(q) }

func TestSolveZeroRHS(t *testing.T) {
	rc := runctx.NewDefault(false)
	a := diagOperator{diag: []complex128{complex(1, 0)}}
	res, err := Solve(rc, a, nil, []complex128{0}, 5, 1e-8)
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Equal(t, complex(0, 0), res.X[0])
}
