// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package geom

// MinSegmentLength is the validation threshold of spec.md §4.1 for a
// degenerate 2D segment.
const MinSegmentLength = 1e-9

// Segment is a flat 2D panel: a line segment, the elementary
// unknown-carrying element of the 2D discretization.
type Segment struct {
	A, B Vec2
}

// Centroid is the segment's midpoint.
func (s Segment) Centroid() Vec2 { return Midpoint2(s.A, s.B) }

// Length is the segment's "dimension" (spec.md §3).
func (s Segment) Length() float64 { return s.A.Dist(s.B) }

// MaxSide in 2D is simply the segment's own length (spec.md §4.1).
func (s Segment) MaxSide() float64 { return s.Length() }

// GeoNormal is the unit normal implied by the A->B direction, rotated +90
// degrees (a fixed, consistent winding convention for 2D input).
func (s Segment) GeoNormal() Vec2 {
	d := s.B.Sub(s.A)
	return d.Perp().Scale(1 / d.Norm())
}

// DielNormal flips GeoNormal toward ref; sameSide mirrors
// OUTPERM_NORMAL_DIR as in the 3D case.
func (s Segment) DielNormal(ref Vec2) (n Vec2, sameSide bool) {
	gn := s.GeoNormal()
	c := s.Centroid()
	sameSide = gn.Dot(ref.Sub(c)) >= 0
	if sameSide {
		return gn, true
	}
	return gn.Scale(-1), false
}

// Subdivide splits the segment at its midpoint (spec.md §4.1).
func (s Segment) Subdivide() (left, right Segment) {
	m := s.Centroid()
	return Segment{A: s.A, B: m}, Segment{A: m, B: s.B}
}

// IsDegenerate reports whether the segment is shorter than
// MinSegmentLength.
func (s Segment) IsDegenerate() bool { return s.Length() < MinSegmentLength }
