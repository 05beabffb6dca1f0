// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mesh

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

func onePlate(z float64) *tree.Tree {
	tri1 := geom.Triangle{V: [3]geom.Vec3{{0, 0, z}, {1, 0, z}, {1, 1, z}}}
	tri2 := geom.Triangle{V: [3]geom.Vec3{{0, 0, z}, {1, 1, z}, {0, 1, z}}}
	return tree.Build(false, []geom.Shape{geom.Tri3{Triangle: tri1}, geom.Tri3{Triangle: tri2}})
}

func TestRefinePairSplitsCloseConductors(t *testing.T) {
	rc := runctx.NewDefault(false)
	a := onePlate(0)
	b := onePlate(0.01) // very close: strong mutual coupling should trigger refinement
	m := New(rc, potential.NewCollocation(), config.Mesh{MeshEps: 1e-6, CurvCoeff: 2.25}, false)
	globalMax := GlobalMaxMeasure(a, b)
	err := m.RefinePair(a, b, false, globalMax, RefPoints{A: geom.Vec3{0, 0, -1}, B: geom.Vec3{0, 0, 2}})
	require.NoError(t, err)
	assert.Greater(t, a.LeafCount(), 2)
}

func TestRefinePairLeavesFarConductorsAlone(t *testing.T) {
	rc := runctx.NewDefault(false)
	a := onePlate(0)
	b := onePlate(1000)
	m := New(rc, potential.NewCollocation(), config.Mesh{MeshEps: 0.5, CurvCoeff: 2.25}, false)
	globalMax := GlobalMaxMeasure(a, b)
	err := m.RefinePair(a, b, false, globalMax, RefPoints{A: geom.Vec3{0, 0, -1}, B: geom.Vec3{0, 0, 1001}})
	require.NoError(t, err)
	assert.Equal(t, 2, a.LeafCount())
	assert.Equal(t, 2, b.LeafCount())
}

func TestSeedTopLevel(t *testing.T) {
	tri := geom.Triangle{V: [3]geom.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}}
	tr := tree.Build(false, []geom.Shape{geom.Tri3{Triangle: tri}})
	require.Equal(t, 1, tr.LeafCount())
	ok := SeedTopLevel(tr, geom.Vec3{0, 0, 1})
	assert.True(t, ok)
	assert.Equal(t, 2, tr.LeafCount())
	ok2 := SeedTopLevel(tr, geom.Vec3{0, 0, 1})
	assert.False(t, ok2)
}

func TestChargeStatsMidpoint(t *testing.T) {
	var s ChargeStats
	s.Observe(1.0)
	s.Observe(3.0)
	assert.InDelta(t, 2.0, s.Midpoint(), 1e-12)
}
