// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package link

import (
	"testing"

	"github.com/ediloren/fastercap-core/config"
	"github.com/ediloren/fastercap-core/geom"
	"github.com/ediloren/fastercap-core/potential"
	"github.com/ediloren/fastercap-core/runctx"
	"github.com/ediloren/fastercap-core/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoTriPlate(z float64) *tree.Tree {
	tri1 := geom.Triangle{V: [3]geom.Vec3{{0, 0, z}, {1, 0, z}, {1, 1, z}}}
	tri2 := geom.Triangle{V: [3]geom.Vec3{{0, 0, z}, {1, 1, z}, {0, 1, z}}}
	return tree.Build(false, []geom.Shape{geom.Tri3{Triangle: tri1}, geom.Tri3{Triangle: tri2}})
}

func TestGenerateLinksAreSymmetric(t *testing.T) {
	a := twoTriPlate(0)
	b := twoTriPlate(0.01)
	u := NewUniverse([]*tree.Tree{a, b})

	rc := runctx.NewDefault(false)
	g := New(rc, potential.NewCollocation(), false, config.Link{Eps: 1.0, ChunkSize: 64}, 2.25)

	globalMax := 1.0 // plate triangles all have the same area here
	pairs := []Pair{{A: a, B: b, Same: false}}
	store, err := g.Generate(u, pairs, globalMax, "")
	require.NoError(t, err)
	require.NotNil(t, store)

	// Every accepted pair is recorded under both endpoints: walking any
	// owner's slice and following each Peer back must find an entry that
	// points back to the owner (spec.md §8's link-symmetry property).
	for _, tr := range []*tree.Tree{a, b} {
		for _, ref := range tr.Leaves() {
			e := &tr.Nodes[ref]
			owner := Owner{TreeID: u.IDOf(tr), Ref: ref}
			entries := store.Slice(e.LinkStart, e.LinkEnd)
			for _, entry := range entries {
				peerTree := u.TreeOf(entry.Peer.TreeID)
				peerElem := &peerTree.Nodes[entry.Peer.Ref]
				peerEntries := store.Slice(peerElem.LinkStart, peerElem.LinkEnd)
				found := false
				for _, pe := range peerEntries {
					if pe.Peer.TreeID == owner.TreeID && pe.Peer.Ref == owner.Ref {
						found = true
						break
					}
				}
				assert.True(t, found, "link from owner to peer has no reciprocal entry")
			}
		}
	}
}

func TestGenerateDescendsToLeavesUnderTightEps(t *testing.T) {
	a := twoTriPlate(0)
	b := twoTriPlate(1000)
	u := NewUniverse([]*tree.Tree{a, b})

	rc := runctx.NewDefault(false)
	g := New(rc, potential.NewCollocation(), false, config.Link{Eps: 1e-12, ChunkSize: 64}, 2.25)

	store, err := g.Generate(u, []Pair{{A: a, B: b}}, 1.0, "")
	require.NoError(t, err)
	// A tight enough eps forces the recursion past both super-roots, so the
	// recorded pairs are between actual leaves (2 per tree), each recorded
	// under both endpoints.
	assert.Greater(t, store.TotalEntries(), 0)
	assert.LessOrEqual(t, store.TotalEntries(), 2*2*2)
	assert.Equal(t, 0, store.TotalEntries()%2)
}

func TestDecideOOCHonorsForceFlags(t *testing.T) {
	rc := runctx.NewDefault(false)
	gForceOOC := New(rc, potential.NewCollocation(), false, config.Link{ForceOOC: true}, 2.25)
	assert.True(t, gForceOOC.decideOOC(1))

	gForceInCore := New(rc, potential.NewCollocation(), false, config.Link{ForceInCore: true, OOCRatio: 1e18}, 2.25)
	assert.False(t, gForceInCore.decideOOC(1_000_000_000))
}

func TestComputeSelfPotentialsPlacement(t *testing.T) {
	a := twoTriPlate(0)
	rc := runctx.NewDefault(false)
	g := New(rc, potential.NewCollocation(), false, config.Link{}, 2.25)

	offsets := map[*tree.Tree]int{a: 5}
	sp, err := g.ComputeSelfPotentials(offsets, 7)
	require.NoError(t, err)
	for _, ref := range a.Leaves() {
		e := &a.Nodes[ref]
		idx := LeafGlobalIndex(5, e.LeafSeq)
		assert.NotEqual(t, complex(0, 0), sp.At(idx))
	}
}
