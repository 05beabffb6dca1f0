// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tree

import (
	"testing"

	"github.com/ediloren/fastercap-core/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gridShapes(n int) []geom.Shape {
	shapes := make([]geom.Shape, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			x, y := float64(i), float64(j)
			tri := geom.Triangle{V: [3]geom.Vec3{{x, y, 0}, {x + 1, y, 0}, {x, y + 1, 0}}}
			shapes = append(shapes, geom.Tri3{Triangle: tri})
		}
	}
	return shapes
}

// TestTreeWellFormedness checks invariant 1 of spec.md §8: every non-leaf
// has exactly two non-null children, every element's parent chain
// terminates at the root, and leaf counts are additive.
func TestTreeWellFormedness(t *testing.T) {
	shapes := gridShapes(4)
	tr := Build(false, shapes)
	require.NotEqual(t, NilRef, tr.Root)
	assert.Equal(t, len(shapes), tr.LeafCount())

	for i := range tr.Nodes {
		e := &tr.Nodes[i]
		if e.IsSuper() {
			assert.NotEqual(t, NilRef, e.Left)
			assert.NotEqual(t, NilRef, e.Right)
			l, r := &tr.Nodes[e.Left], &tr.Nodes[e.Right]
			assert.Equal(t, e.NumLeaves, l.NumLeaves+r.NumLeaves)
		} else {
			assert.Equal(t, NilRef, e.Left)
			assert.Equal(t, NilRef, e.Right)
		}
	}

	// every leaf's parent chain terminates at the root
	for _, ref := range tr.Leaves() {
		cur := ref
		for tr.Nodes[cur].Parent != NilRef {
			cur = tr.Nodes[cur].Parent
		}
		assert.Equal(t, tr.Root, cur)
	}
}

func TestTreeSingleLeafNoSplit(t *testing.T) {
	shapes := gridShapes(1)
	tr := Build(false, shapes)
	assert.Equal(t, 1, tr.LeafCount())
	assert.True(t, tr.Nodes[tr.Root].IsLeaf())
}

func TestPostOrderChildrenBeforeParents(t *testing.T) {
	shapes := gridShapes(3)
	tr := Build(false, shapes)
	order := tr.PostOrder()
	pos := make(map[Ref]int, len(order))
	for i, r := range order {
		pos[r] = i
	}
	for _, r := range order {
		e := &tr.Nodes[r]
		if e.IsSuper() {
			assert.Less(t, pos[e.Left], pos[r])
			assert.Less(t, pos[e.Right], pos[r])
		}
	}
}

func TestCoincidentCentroidsTerminate(t *testing.T) {
	// All centroids identical: the median split cannot separate them on
	// any axis, so Build must still terminate (spec.md §4.2 tie-breaking).
	shapes := make([]geom.Shape, 5)
	for i := range shapes {
		tri := geom.Triangle{V: [3]geom.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}}
		shapes[i] = geom.Tri3{Triangle: tri}
	}
	tr := Build(false, shapes)
	assert.Equal(t, 5, tr.LeafCount())
}
