// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitTriangle() Triangle {
	return Triangle{V: [3]Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}}
}

func TestTriangleAreaAndCentroid(t *testing.T) {
	tri := unitTriangle()
	assert.InDelta(t, 0.5, tri.Area(), 1e-12)
	c := tri.Centroid()
	assert.InDelta(t, 1.0/3.0, c[0], 1e-12)
	assert.InDelta(t, 1.0/3.0, c[1], 1e-12)
}

func TestTriangleGeoNormal(t *testing.T) {
	tri := unitTriangle()
	n := tri.GeoNormal()
	assert.InDelta(t, 0.0, n[0], 1e-12)
	assert.InDelta(t, 0.0, n[1], 1e-12)
	assert.InDelta(t, 1.0, n[2], 1e-12)
}

func TestTriangleSubdivideConservesArea(t *testing.T) {
	tri := unitTriangle()
	left, right := tri.Subdivide()
	require.InDelta(t, tri.Area(), left.Area()+right.Area(), 1e-12)
}

func TestTriangleIsThin(t *testing.T) {
	thin := Triangle{V: [3]Vec3{{0, 0, 0}, {10, 0, 0}, {5, 0.01, 0}}}
	assert.True(t, thin.IsThin())
	assert.False(t, unitTriangle().IsThin())
}

func TestQuadTriangulateRectanglePreservesArea(t *testing.T) {
	q := Quad{V: [4]Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}}
	t1, t2, warn := q.Triangulate(DefaultPlanarityTol)
	assert.Empty(t, warn)
	assert.InDelta(t, 1.0, t1.Area()+t2.Area(), 1e-12)
}

func TestQuadTriangulateNonPlanarWarns(t *testing.T) {
	q := Quad{V: [4]Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 1}, {0, 1, 0}}}
	_, _, warn := q.Triangulate(1e-6)
	assert.NotEmpty(t, warn)
}

func TestSegmentSubdivideAndLength(t *testing.T) {
	s := Segment{A: Vec2{0, 0}, B: Vec2{2, 0}}
	assert.InDelta(t, 2.0, s.Length(), 1e-12)
	l, r := s.Subdivide()
	assert.InDelta(t, 1.0, l.Length(), 1e-12)
	assert.InDelta(t, 1.0, r.Length(), 1e-12)
}

func TestSegmentIsDegenerate(t *testing.T) {
	s := Segment{A: Vec2{0, 0}, B: Vec2{1e-12, 0}}
	assert.True(t, s.IsDegenerate())
}
