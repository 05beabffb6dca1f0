// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package matvec

import "github.com/ediloren/fastercap-core/tree"

// ResetScratch clears a tree's per-node Charge/Potential scratch fields,
// run once before every matrix-vector product (spec.md §4.5).
func ResetScratch(t *tree.Tree) {
	for i := range t.Nodes {
		t.Nodes[i].Charge = 0
		t.Nodes[i].Potential = 0
	}
}

// UpSweep seeds every leaf's Charge from q (indexed by offset+LeafSeq) and
// accumulates it up through every super-node, post-order (spec.md §4.5
// phase 1): "accumulate charge up from leaves."
func UpSweep(t *tree.Tree, q []complex128, offset int) {
	for _, ref := range t.PostOrder() {
		e := &t.Nodes[ref]
		if e.IsLeaf() {
			e.Charge = q[offset+int(e.LeafSeq)]
			continue
		}
		e.Charge = t.Nodes[e.Left].Charge + t.Nodes[e.Right].Charge
	}
}

// DownSweep pushes every super-node's accumulated Potential down onto its
// children (spec.md §4.5 phase 3): "push accumulated potential down to
// leaves." Pre-order, so a parent's own Potential (set during the link
// application phase) is added to each child before that child is visited.
func DownSweep(t *tree.Tree) {
	for _, ref := range t.PreOrder() {
		e := &t.Nodes[ref]
		if !e.IsSuper() {
			continue
		}
		t.Nodes[e.Left].Potential += e.Potential
		t.Nodes[e.Right].Potential += e.Potential
	}
}
