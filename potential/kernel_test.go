// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package potential

import (
	"testing"

	"github.com/ediloren/fastercap-core/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollocationFarPairMatchesAnalytic(t *testing.T) {
	c := NewCollocation()
	src := Element{Centroid: geom.Vec3{0, 0, 0}, Dim: 1, MaxSide: 1}
	dst := Element{Centroid: geom.Vec3{100, 0, 0}, Dim: 1, MaxSide: 1}
	p, err := c.Potential(src, dst, DefaultOptions(false))
	require.NoError(t, err)
	assert.InDelta(t, 1.0/(4*3.141592653589793*100), real(p), 1e-9)
}

func TestCollocationNearPairTriangleQuadrature(t *testing.T) {
	c := NewCollocation()
	tri := geom.Triangle{V: [3]geom.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}}
	src := Element{Centroid: tri.Centroid(), Dim: tri.Area(), MaxSide: tri.MaxSide(), Tri: &tri}
	dst := Element{Centroid: geom.Vec3{2, 2, 0}, Dim: tri.Area(), MaxSide: tri.MaxSide()}
	p, err := c.Potential(src, dst, DefaultOptions(false))
	require.NoError(t, err)
	assert.Greater(t, real(p), 0.0)
}

func TestSelfPotentialPositive(t *testing.T) {
	c := NewCollocation()
	elem := Element{Dim: 1.0}
	p, err := c.SelfPotential(elem, DefaultOptions(false))
	require.NoError(t, err)
	assert.Greater(t, real(p), 0.0)
}

func TestCollocationZeroDistanceError(t *testing.T) {
	c := NewCollocation()
	src := Element{Centroid: geom.Vec3{0, 0, 0}, Dim: 1, MaxSide: 1}
	dst := Element{Centroid: geom.Vec3{0, 0, 0}, Dim: 1, MaxSide: 1}
	_, err := c.Potential(src, dst, DefaultOptions(false))
	assert.Error(t, err)
}
