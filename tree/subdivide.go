// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tree

import (
	"github.com/ediloren/fastercap-core/geom"
	"github.com/ediloren/fastercap-core/internal/invariant"
)

// SubdivideLeaf replaces the leaf at ref with its subtree expansion: two
// new leaf children are appended from shape.Subdivide(), and the original
// element is promoted in-place to a super-node joining them (spec.md
// §4.1/§4.3: "the original panels become super-nodes"). The new leaves
// inherit the parent's dielectric flag; callers that know the owning
// conductor's dielectric reference point should follow up with
// SetDielNormal to fix up the orientation-dependent fields.
func (t *Tree) SubdivideLeaf(ref Ref) (left, right Ref) {
	invariant.Check(t.Nodes[ref].IsLeaf(), "SubdivideLeaf called on a non-leaf element")
	shape := t.Nodes[ref].Shape
	invariant.Check(shape != nil, "SubdivideLeaf: leaf has no shape")

	ls, rs := shape.Subdivide()
	left = t.NewLeaf(ls)
	right = t.NewLeaf(rs)

	orig := &t.Nodes[ref]
	wasDiel := orig.Flags.Has(IsDiel)
	dielIdx := orig.DielIndex

	orig.Shape = nil
	orig.Left = left
	orig.Right = right
	orig.Flags.Set(IsSuperNode, true)
	orig.LinkStart, orig.LinkEnd = 0, 0

	t.Nodes[left].Parent = ref
	t.Nodes[right].Parent = ref
	t.Nodes[left].Flags.Set(IsDiel, wasDiel)
	t.Nodes[right].Flags.Set(IsDiel, wasDiel)
	t.Nodes[left].DielIndex = dielIdx
	t.Nodes[right].DielIndex = dielIdx

	orig.Dimension = t.Nodes[left].Dimension + t.Nodes[right].Dimension
	orig.MaxSide = maxf(t.Nodes[left].MaxSide, t.Nodes[right].MaxSide)
	orig.NumLeaves = t.Nodes[left].NumLeaves + t.Nodes[right].NumLeaves
	wl := float64(t.Nodes[left].NumLeaves) / float64(orig.NumLeaves)
	wr := float64(t.Nodes[right].NumLeaves) / float64(orig.NumLeaves)
	orig.Centroid = t.Nodes[left].Centroid.Scale(wl).Add(t.Nodes[right].Centroid.Scale(wr))

	// Propagate NumLeaves/Dimension/Centroid growth up the ancestor chain so
	// elements above ref reflect the new leaf count without a full rebuild.
	t.refreshAncestors(orig.Parent)

	return left, right
}

// refreshAncestors recomputes Dimension/MaxSide/NumLeaves/Centroid for
// every ancestor of start, bottom-up, after a leaf subdivision changes leaf
// counts below them.
func (t *Tree) refreshAncestors(start Ref) {
	for cur := start; cur != NilRef; cur = t.Nodes[cur].Parent {
		e := &t.Nodes[cur]
		l, r := &t.Nodes[e.Left], &t.Nodes[e.Right]
		e.NumLeaves = l.NumLeaves + r.NumLeaves
		e.Dimension = l.Dimension + r.Dimension
		e.MaxSide = maxf(l.MaxSide, r.MaxSide)
		wl := float64(l.NumLeaves) / float64(e.NumLeaves)
		wr := float64(r.NumLeaves) / float64(e.NumLeaves)
		e.Centroid = l.Centroid.Scale(wl).Add(r.Centroid.Scale(wr))
	}
}

// SetDielNormal fixes up the orientation-dependent fields of ref relative
// to a conductor's dielectric reference point (spec.md §3:
// "OUTPERM_NORMAL_DIR... iff the dielectric reference point lies on the
// same side of the panel as the geometric normal").
func (t *Tree) SetDielNormal(ref Ref, refPoint geom.Vec3) {
	e := &t.Nodes[ref]
	invariant.Check(e.Shape != nil, "SetDielNormal: element has no shape")
	n, sameSide := e.Shape.DielNormal3(refPoint)
	e.DielNorm = n
	e.Flags.Set(OutpermNormalDir, sameSide)
}
