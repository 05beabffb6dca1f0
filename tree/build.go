// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tree

import "github.com/ediloren/fastercap-core/geom"

// Build constructs the super-hierarchy of one conductor from its flat leaf
// shapes, following the median-split recursion of spec.md §4.2: select the
// longest axis of the centroid bounding box, split at the axis mean of
// min/max (ties go below), recurse on each non-singleton half, and create
// a super-node joining the two returned roots.
func Build(dim2 bool, shapes []geom.Shape) *Tree {
	t := &Tree{Dim2: dim2}
	if len(shapes) == 0 {
		t.Root = NilRef
		return t
	}
	refs := make([]Ref, len(shapes))
	for i, s := range shapes {
		refs[i] = t.NewLeaf(s)
	}
	t.Root = t.buildRecursive(refs)
	t.Linearize()
	return t
}

// buildRecursive implements the recursion over a slice of already-allocated
// leaf/super Refs, splitting on centroids.
func (t *Tree) buildRecursive(refs []Ref) Ref {
	if len(refs) == 1 {
		return refs[0]
	}

	box := EmptyBox()
	for _, r := range refs {
		box = box.Extend(t.Nodes[r].Centroid)
	}
	axis, _ := longestAxis(box, t.Dim2)
	mid := 0.5 * (box.Min[axis] + box.Max[axis])

	below := make([]Ref, 0, len(refs))
	above := make([]Ref, 0, len(refs))
	for _, r := range refs {
		if t.Nodes[r].Centroid[axis] <= mid { // ties go below, spec.md §4.2
			below = append(below, r)
		} else {
			above = append(above, r)
		}
	}

	// An axis split exactly on the median coordinate can leave one half
	// empty when every centroid shares that coordinate (spec.md §4.2 tie-
	// breaking note). Rotate through axes until a split actually divides
	// the set, or fall back to an arbitrary even split as a last resort so
	// the recursion always terminates.
	if len(below) == 0 || len(above) == 0 {
		below, above = rebalance(t, refs, axis, t.Dim2)
	}

	leftRoot := t.buildRecursive(below)
	rightRoot := t.buildRecursive(above)
	return t.NewSuper(leftRoot, rightRoot)
}

// rebalance retries the split on each remaining axis in turn, and if none
// separates the set (fully coincident centroids), falls back to a plain
// positional bisection.
func rebalance(t *Tree, refs []Ref, triedAxis int, dim2 bool) (below, above []Ref) {
	naxes := 3
	if dim2 {
		naxes = 2
	}
	for a := 0; a < naxes; a++ {
		if a == triedAxis {
			continue
		}
		box := EmptyBox()
		for _, r := range refs {
			box = box.Extend(t.Nodes[r].Centroid)
		}
		mid := 0.5 * (box.Min[a] + box.Max[a])
		var b, ab []Ref
		for _, r := range refs {
			if t.Nodes[r].Centroid[a] <= mid {
				b = append(b, r)
			} else {
				ab = append(ab, r)
			}
		}
		if len(b) > 0 && len(ab) > 0 {
			return b, ab
		}
	}
	half := len(refs) / 2
	return append([]Ref{}, refs[:half]...), append([]Ref{}, refs[half:]...)
}

// Box is the centroid bounding box used while building the hierarchy.
type Box struct {
	Min, Max geom.Vec3
}

func EmptyBox() Box {
	inf := 1e300
	return Box{Min: geom.Vec3{inf, inf, inf}, Max: geom.Vec3{-inf, -inf, -inf}}
}

func (b Box) Extend(p geom.Vec3) Box {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
	return b
}

func longestAxis(b Box, dim2 bool) (axis int, extent float64) {
	n := 3
	if dim2 {
		n = 2
	}
	axis = 0
	extent = b.Max[0] - b.Min[0]
	for i := 1; i < n; i++ {
		e := b.Max[i] - b.Min[i]
		if e > extent {
			axis, extent = i, e
		}
	}
	return axis, extent
}
