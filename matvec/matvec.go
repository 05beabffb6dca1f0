// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package matvec implements the compressed matrix-vector product of spec.md
// §4.5: v = P·q over the hierarchical link structure the link package
// builds, in three phases (up-sweep, link application, down-sweep) plus the
// 2D zero-total-charge row rewrite.
//
// The source's real-arithmetic-only implementation represents a complex
// problem with a doubled real vector and the explicit block operator
// `[R -C; C R]`, multiplying twice per call. This package instead carries
// Charge/Potential as native complex128 throughout: off-diagonal link
// coefficients are always real (geometry only, spec.md §4.4), and the
// self-potential's real/imaginary split (link.SelfPotentials) already
// supplies exactly the block form's C diagonal. The two are mathematically
// identical.
package matvec

import (
	"github.com/ediloren/fastercap-core/cond"
	"github.com/ediloren/fastercap-core/link"
	"github.com/ediloren/fastercap-core/runctx"
	"github.com/ediloren/fastercap-core/tree"
)

// Operator bundles everything a matrix-vector product needs: the link
// structure, the self-potential diagonal, and how each tree's leaves map
// into the combined charge/potential vector.
type Operator struct {
	RC       *runctx.RunContext
	Universe *link.Universe
	Store    *link.Store
	Self     *link.SelfPotentials

	// Offsets maps each tree taking part in the solve to its first index in
	// q/v (spec.md §3's ChargeOffset, kept here instead of in cond so this
	// package never needs the registry for the plain complex multiply).
	Offsets map[*tree.Tree]int

	Dim2       bool
	Conductors []*cond.Conductor // only read when Dim2 is set
}

// Len returns the combined vector length (sum of every tree's leaf count).
func (op *Operator) Len() int {
	n := 0
	for t := range op.Offsets {
		n += t.LeafCount()
	}
	return n
}

// Apply computes v = P·q (spec.md §4.5).
func (op *Operator) Apply(q []complex128) ([]complex128, error) {
	for t := range op.Offsets {
		ResetScratch(t)
	}
	for t, offset := range op.Offsets {
		UpSweep(t, q, offset)
	}

	if err := ApplyLinks(op.RC, op.Universe, op.Store); err != nil {
		return nil, err
	}

	for t := range op.Offsets {
		DownSweep(t)
	}

	out := make([]complex128, op.Len())
	for t, offset := range op.Offsets {
		for _, ref := range t.Leaves() {
			e := &t.Nodes[ref]
			idx := offset + int(e.LeafSeq)
			out[idx] = e.Potential + op.Self.At(idx)*q[idx]
		}
	}

	if op.Dim2 {
		ApplyZeroTotalCharge(op.Conductors, q, out)
	}

	return out, nil
}
