// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package geom

import "math"

// MinInteriorAngleDeg is the validation threshold of spec.md §4.1: a
// triangle with a smaller interior angle is reported as "very thin".
const MinInteriorAngleDeg = 5.0

// Triangle is a flat 3D panel, the elementary unknown-carrying surface
// element of the 3D discretization.
type Triangle struct {
	V [3]Vec3 // vertices, counter-clockwise when viewed from the geometric normal
}

// Centroid is the arithmetic mean of the three vertices.
func (t Triangle) Centroid() Vec3 {
	return t.V[0].Add(t.V[1]).Add(t.V[2]).Scale(1.0 / 3.0)
}

// Area is the panel's polygon measure ("dimension" in spec.md §3).
func (t Triangle) Area() float64 {
	e1 := t.V[1].Sub(t.V[0])
	e2 := t.V[2].Sub(t.V[0])
	return 0.5 * e1.Cross(e2).Norm()
}

// GeoNormal is the unit normal implied by vertex winding order.
func (t Triangle) GeoNormal() Vec3 {
	e1 := t.V[1].Sub(t.V[0])
	e2 := t.V[2].Sub(t.V[0])
	return e1.Cross(e2).Normalize()
}

// DielNormal flips GeoNormal so that it points toward ref, the conductor's
// dielectric reference point. The boolean return mirrors the
// OUTPERM_NORMAL_DIR flag of spec.md §3: true iff ref lies on the same side
// as the geometric normal (no flip needed).
func (t Triangle) DielNormal(ref Vec3) (n Vec3, sameSide bool) {
	gn := t.GeoNormal()
	c := t.Centroid()
	sameSide = gn.Dot(ref.Sub(c)) >= 0
	if sameSide {
		return gn, true
	}
	return gn.Scale(-1), false
}

// MaxSide is the longest edge, used by the mesher's subdivision and the
// charge-driven refinement cap.
func (t Triangle) MaxSide() float64 {
	e0 := t.V[0].Dist(t.V[1])
	e1 := t.V[1].Dist(t.V[2])
	e2 := t.V[2].Dist(t.V[0])
	return math.Max(e0, math.Max(e1, e2))
}

// longestEdgeEndpoints returns the vertex indices (i,j) of the two
// endpoints of the triangle's longest edge.
func (t Triangle) longestEdgeEndpoints() (i, j int) {
	e := [3]float64{t.V[0].Dist(t.V[1]), t.V[1].Dist(t.V[2]), t.V[2].Dist(t.V[0])}
	pairs := [3][2]int{{0, 1}, {1, 2}, {2, 0}}
	best := 0
	for k := 1; k < 3; k++ {
		if e[k] > e[best] {
			best = k
		}
	}
	return pairs[best][0], pairs[best][1]
}

// Subdivide splits the triangle at the midpoint of its longest edge,
// producing two child triangles (spec.md §4.1). The opposite vertex is
// shared by both children.
func (t Triangle) Subdivide() (left, right Triangle) {
	i, j := t.longestEdgeEndpoints()
	k := 3 - i - j // the remaining vertex index (0+1+2=3)
	m := Midpoint3(t.V[i], t.V[j])
	left = Triangle{V: [3]Vec3{t.V[i], m, t.V[k]}}
	right = Triangle{V: [3]Vec3{m, t.V[j], t.V[k]}}
	return left, right
}

// MinInteriorAngleDegrees returns the smallest of the triangle's three
// interior angles, in degrees, used by validation.
func (t Triangle) MinInteriorAngleDegrees() float64 {
	a := t.V[0].Dist(t.V[1])
	b := t.V[1].Dist(t.V[2])
	c := t.V[2].Dist(t.V[0])
	angle := func(opp, s1, s2 float64) float64 {
		cosA := (s1*s1 + s2*s2 - opp*opp) / (2 * s1 * s2)
		if cosA > 1 {
			cosA = 1
		} else if cosA < -1 {
			cosA = -1
		}
		return math.Acos(cosA) * 180 / math.Pi
	}
	angles := [3]float64{angle(b, a, c), angle(c, a, b), angle(a, b, c)}
	min := angles[0]
	for _, ang := range angles[1:] {
		if ang < min {
			min = ang
		}
	}
	return min
}

// IsThin reports whether the triangle's smallest interior angle is below
// MinInteriorAngleDeg.
func (t Triangle) IsThin() bool {
	return t.MinInteriorAngleDegrees() < MinInteriorAngleDeg
}

// Quad is a flat (or near-flat) 3D quadrilateral as read from the input
// deck; it is triangulated at parse time (spec.md §4.1) and never carries
// an unknown itself.
type Quad struct {
	V [4]Vec3 // vertices in order around the perimeter
}

// Planarity returns the maximum distance of any vertex from the plane
// through V0, V1 and V2 (in effect V3's distance from it), used to decide
// whether a quad is non-planar and must be split with a warning.
func (q Quad) Planarity() float64 {
	n := q.V[1].Sub(q.V[0]).Cross(q.V[2].Sub(q.V[0])).Normalize()
	d := n.Dot(q.V[0])
	maxDev := 0.0
	for _, v := range q.V {
		dev := math.Abs(n.Dot(v) - d)
		if dev > maxDev {
			maxDev = dev
		}
	}
	return maxDev
}

// isConvexNearRectangular estimates whether a short-diagonal split is
// appropriate (convex, roughly rectangular) versus requiring a constrained
// Delaunay triangulation for concave/skewed quads (spec.md §4.1).
func (q Quad) isConvexNearRectangular() bool {
	// A quad is treated as convex when both diagonals have nonzero length
	// and the normals of the two triangles of the V0-V2 diagonal split,
	// (0,1,2) and (0,2,3), agree in sign — a cheap proxy for convexity
	// sufficient to pick between the two triangulation strategies without
	// a full polygon-convexity test.
	d02 := q.V[0].Sub(q.V[2]).Norm()
	d13 := q.V[1].Sub(q.V[3]).Norm()
	n1 := q.V[1].Sub(q.V[0]).Cross(q.V[2].Sub(q.V[0])).Normalize()
	n2 := q.V[2].Sub(q.V[0]).Cross(q.V[3].Sub(q.V[0])).Normalize()
	agree := n1.Dot(n2) > 0
	return agree && d02 > 0 && d13 > 0
}

// Triangulate converts the quad into two triangles using a short-diagonal
// split for near-rectangular convex quads, or a constrained Delaunay
// triangulation (via the two possible diagonal splits, picking the one
// producing the better-conditioned pair of triangles) for concave or
// skewed quads, per spec.md §4.1. A warning is returned (non-nil, non-fatal)
// when the quad is non-planar beyond tol; in that case the split uses the
// shorter diagonal regardless of convexity.
func (q Quad) Triangulate(planarityTol float64) (t1, t2 Triangle, warning string) {
	if q.Planarity() > planarityTol {
		warning = "non-planar quad split along the shorter diagonal"
		return q.splitShorterDiagonal()
	}
	if q.isConvexNearRectangular() {
		return q.splitShorterDiagonal()
	}
	return q.constrainedDelaunaySplit()
}

func (q Quad) splitShorterDiagonal() (t1, t2 Triangle, warning string) {
	d02 := q.V[0].Dist(q.V[2])
	d13 := q.V[1].Dist(q.V[3])
	if d02 <= d13 {
		return Triangle{V: [3]Vec3{q.V[0], q.V[1], q.V[2]}},
			Triangle{V: [3]Vec3{q.V[0], q.V[2], q.V[3]}}, ""
	}
	return Triangle{V: [3]Vec3{q.V[0], q.V[1], q.V[3]}},
		Triangle{V: [3]Vec3{q.V[1], q.V[2], q.V[3]}}, ""
}

// constrainedDelaunaySplit picks, between the two possible diagonal splits
// of the quad, the one satisfying the empty-circumcircle (Delaunay)
// criterion: the apex vertex not on the diagonal must not lie inside the
// circumcircle of either resulting triangle. For a simple (non-degenerate)
// quadrilateral exactly one of the two diagonals satisfies this for both
// triangles simultaneously.
func (q Quad) constrainedDelaunaySplit() (t1, t2 Triangle, warning string) {
	tA1 := Triangle{V: [3]Vec3{q.V[0], q.V[1], q.V[2]}}
	tA2 := Triangle{V: [3]Vec3{q.V[0], q.V[2], q.V[3]}}
	if !inCircumsphere(tA1, q.V[3]) && !inCircumsphere(tA2, q.V[1]) {
		return tA1, tA2, ""
	}
	tB1 := Triangle{V: [3]Vec3{q.V[0], q.V[1], q.V[3]}}
	tB2 := Triangle{V: [3]Vec3{q.V[1], q.V[2], q.V[3]}}
	return tB1, tB2, ""
}

// inCircumsphere is a coplanar-circumcircle test projected onto the
// triangle's own plane, adequate for the near-planar quads this function
// is ever called on (severely non-planar quads are routed to
// splitShorterDiagonal before reaching here).
func inCircumsphere(t Triangle, p Vec3) bool {
	// Project onto the triangle's plane using two in-plane axes.
	u := t.V[1].Sub(t.V[0]).Normalize()
	n := t.GeoNormal()
	v := n.Cross(u)
	to2 := func(x Vec3) Vec2 {
		d := x.Sub(t.V[0])
		return Vec2{d.Dot(u), d.Dot(v)}
	}
	a, b, c, d := to2(t.V[0]), to2(t.V[1]), to2(t.V[2]), to2(p)
	return inCircumcircle2(a, b, c, d)
}

func inCircumcircle2(a, b, c, d Vec2) bool {
	adx, ady := a[0]-d[0], a[1]-d[1]
	bdx, bdy := b[0]-d[0], b[1]-d[1]
	cdx, cdy := c[0]-d[0], c[1]-d[1]
	al := adx*adx + ady*ady
	bl := bdx*bdx + bdy*bdy
	cl := cdx*cdx + cdy*cdy
	det := adx*(bdy*cl-bl*cdy) - ady*(bdx*cl-bl*cdx) + al*(bdx*cdy-bdy*cdx)
	// sign convention depends on a,b,c orientation; normalize by the
	// triangle's own signed area so the test is orientation-independent.
	area := (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
	if area < 0 {
		det = -det
	}
	return det > 0
}
