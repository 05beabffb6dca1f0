// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tree

import (
	"github.com/ediloren/fastercap-core/geom"
	"github.com/ediloren/fastercap-core/internal/invariant"
)

// Ref indexes into a Tree's arena. Children are referenced by arena index
// rather than pointer (spec.md §9: "arena-allocate nodes by level; store
// children by index into the arena rather than by raw pointer. This
// sidesteps cyclic-ownership concerns and gives good cache locality during
// up/down sweeps").
type Ref int32

// NilRef marks an absent child/parent.
const NilRef Ref = -1

// Element is the polymorphic node of the interaction tree: either a leaf
// (a physical panel or segment) or a super-node (spec.md §3).
type Element struct {
	Left, Right, Parent Ref

	Shape geom.Shape // nil for a super-node's own geometry is derived from children on build

	// Bounding geometric summary, cached so the mesher/link-generator/matvec
	// hot paths never recompute it.
	Centroid  geom.Vec3
	Dimension float64 // area (3D) or length (2D)
	MaxSide   float64
	GeoNormal geom.Vec3
	DielNorm  geom.Vec3

	Flags     Flags
	DielIndex byte // which outer-permittivity entry applies (conductor panels only)

	// Per-hierarchy-level indices (spec.md §3).
	LinkStart, LinkEnd int32 // range into the link store's slice for this element
	LeafSeq            int32 // leaf-sequence number (only meaningful for leaves)
	NumLeaves          int32 // number of subtended leaves

	// Scratch scalars used during matvec (spec.md §3). Complex so a single
	// field serves both real and complex problems; the imaginary part is
	// simply zero for real-only runs.
	Charge    complex128
	Potential complex128
}

func (e *Element) IsLeaf() bool  { return !e.Flags.Has(IsSuperNode) }
func (e *Element) IsSuper() bool { return e.Flags.Has(IsSuperNode) }

// Tree owns one conductor's element arena. Index 0 need not be the root;
// Root records the arena index of the top-level element.
type Tree struct {
	Dim2  bool
	Nodes []Element
	Root  Ref
}

// LeafCount satisfies cond.TreeRoot.
func (t *Tree) LeafCount() int {
	if t.Root == NilRef {
		return 0
	}
	return int(t.Nodes[t.Root].NumLeaves)
}

// At returns a pointer into the arena for ref, valid only until the next
// NewLeaf or NewSuper (which may grow and reallocate the backing slice).
func (t *Tree) At(ref Ref) *Element {
	invariant.Check(ref != NilRef, "tree: dereferencing NilRef")
	return &t.Nodes[ref]
}

// NewLeaf appends a new leaf element wrapping shape and returns its Ref.
func (t *Tree) NewLeaf(shape geom.Shape) Ref {
	e := Element{
		Left: NilRef, Right: NilRef, Parent: NilRef,
		Shape:     shape,
		Centroid:  shape.Centroid3(),
		Dimension: shape.Dimension(),
		MaxSide:   shape.MaxSideLen(),
		GeoNormal: shape.GeoNormal3(),
		NumLeaves: 1,
	}
	t.Nodes = append(t.Nodes, e)
	ref := Ref(len(t.Nodes) - 1)
	t.Nodes[ref].LeafSeq = int32(ref) // reassigned densely by Linearize
	return ref
}

// NewSuper appends a new super-node with children left and right and
// returns its Ref. The super-node's bounding summary is derived from its
// children: dimension is their sum, centroid the leaf-count-weighted
// average, max-side the larger of the two.
func (t *Tree) NewSuper(left, right Ref) Ref {
	l, r := &t.Nodes[left], &t.Nodes[right]
	e := Element{
		Left: left, Right: right, Parent: NilRef,
		Dimension: l.Dimension + r.Dimension,
		MaxSide:   maxf(l.MaxSide, r.MaxSide),
		NumLeaves: l.NumLeaves + r.NumLeaves,
	}
	e.Flags.Set(IsSuperNode, true)
	wl := float64(l.NumLeaves) / float64(e.NumLeaves)
	wr := float64(r.NumLeaves) / float64(e.NumLeaves)
	e.Centroid = l.Centroid.Scale(wl).Add(r.Centroid.Scale(wr))
	t.Nodes = append(t.Nodes, e)
	ref := Ref(len(t.Nodes) - 1)
	// Re-derive pointers after append: it may have reallocated the backing
	// array, which would make the l/r pointers taken above stale.
	t.Nodes[left].Parent = ref
	t.Nodes[right].Parent = ref
	return ref
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
