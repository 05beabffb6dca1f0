// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package precond implements the five preconditioner-builder variants of
// spec.md §4.6 — none, Jacobi, two-level ("super"), block and hierarchical
// — plus the complexity-driven auto-selection between them. Every variant
// satisfies the small Preconditioner interface the gmres package consumes,
// so the GMRES driver never needs to know which mode built the operator it
// is applying.
package precond

import (
	"github.com/ediloren/fastercap-core/link"
	"github.com/ediloren/fastercap-core/runctx"
)

// Preconditioner approximates P^-1 (spec.md §4.6). Apply must not mutate q.
type Preconditioner interface {
	Apply(q []complex128) ([]complex128, error)
}

// None is the trivial preconditioner: identity.
type None struct{}

func (None) Apply(q []complex128) ([]complex128, error) {
	out := make([]complex128, len(q))
	copy(out, q)
	return out, nil
}

// Jacobi is `P = diag(self_coeff)^-1` (spec.md §4.6): immediate, no storage
// beyond the self-potential vectors the link package already keeps
// resident (spec.md §3: "never paged to disk").
type Jacobi struct {
	Self *link.SelfPotentials
	RC   *runctx.RunContext
}

func NewJacobi(rc *runctx.RunContext, self *link.SelfPotentials) *Jacobi {
	return &Jacobi{Self: self, RC: rc}
}

func (j *Jacobi) Apply(q []complex128) ([]complex128, error) {
	out := make([]complex128, len(q))
	for i, qi := range q {
		d := j.Self.At(i)
		if d == 0 {
			out[i] = qi
			continue
		}
		out[i] = qi / d
	}
	return out, nil
}
