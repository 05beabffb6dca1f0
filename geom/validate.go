// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package geom

import "github.com/ediloren/fastercap-core/runctx"

// DefaultPlanarityTol is the default absolute deviation, in model length
// units, beyond which a quad is considered non-planar (spec.md §4.1).
const DefaultPlanarityTol = 1e-6

// ValidateTriangle reports (via rc.Warn, never an error — validation
// failures here are warnings per spec.md §7) a very thin triangle.
func ValidateTriangle(rc *runctx.RunContext, t Triangle, label string) {
	if t.IsThin() {
		rc.Warn("panel %s is very thin: min interior angle %.2f deg < %.2f deg",
			label, t.MinInteriorAngleDegrees(), MinInteriorAngleDeg)
	}
}

// ValidateSegment reports a degenerate 2D segment.
func ValidateSegment(rc *runctx.RunContext, s Segment, label string) {
	if s.IsDegenerate() {
		rc.Warn("segment %s is degenerate: length %.3e < %.3e", label, s.Length(), MinSegmentLength)
	}
}

// TriangulateQuad triangulates q, surfacing a planarity warning through rc
// rather than failing the run (spec.md §4.1: "non-planar quads are split
// along the shorter diagonal with a warning").
func TriangulateQuad(rc *runctx.RunContext, q Quad, label string) (t1, t2 Triangle) {
	t1, t2, warning := q.Triangulate(DefaultPlanarityTol)
	if warning != "" {
		rc.Warn("quad %s: %s", label, warning)
	}
	return t1, t2
}
