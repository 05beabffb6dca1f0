// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package geom

// Shape is the sealed-variant dispatch surface spec.md §9's design notes
// call for ("a small vtable of function pointers or a sealed set of
// cases") in place of a virtual-inheritance hierarchy: every leaf element
// in the tree holds exactly one Shape, either a Tri3 (3D triangle) or a
// Seg2 (2D segment), and all geometry queries go through this interface so
// the tree/mesh/link/matvec packages never need to know which dimension
// they are working in.
type Shape interface {
	Centroid3() Vec3
	Dimension() float64 // area (3D) or length (2D)
	MaxSideLen() float64
	GeoNormal3() Vec3
	DielNormal3(ref Vec3) (n Vec3, sameSide bool)
	Subdivide() (left, right Shape)
	Is2D() bool
}

// Tri3 adapts Triangle to Shape.
type Tri3 struct{ Triangle }

func (t Tri3) Centroid3() Vec3     { return t.Triangle.Centroid() }
func (t Tri3) Dimension() float64  { return t.Triangle.Area() }
func (t Tri3) MaxSideLen() float64 { return t.Triangle.MaxSide() }
func (t Tri3) GeoNormal3() Vec3    { return t.Triangle.GeoNormal() }
func (t Tri3) DielNormal3(ref Vec3) (Vec3, bool) { return t.Triangle.DielNormal(ref) }
func (t Tri3) Is2D() bool          { return false }
func (t Tri3) Subdivide() (Shape, Shape) {
	l, r := t.Triangle.Subdivide()
	return Tri3{l}, Tri3{r}
}

// Seg2 adapts Segment to Shape, embedding the 2D point in the x/y plane of
// Vec3 with z=0 so 2D and 3D elements can share the same tree and matvec
// code (spec.md §9: "a single struct holding the 3D-or-2D vertices
// union'd").
type Seg2 struct{ Segment }

func to3(v Vec2) Vec3 { return Vec3{v[0], v[1], 0} }

func (s Seg2) Centroid3() Vec3     { return to3(s.Segment.Centroid()) }
func (s Seg2) Dimension() float64  { return s.Segment.Length() }
func (s Seg2) MaxSideLen() float64 { return s.Segment.MaxSide() }
func (s Seg2) GeoNormal3() Vec3    { return to3(s.Segment.GeoNormal()) }
func (s Seg2) DielNormal3(ref Vec3) (Vec3, bool) {
	n, same := s.Segment.DielNormal(Vec2{ref[0], ref[1]})
	return to3(n), same
}
func (s Seg2) Is2D() bool { return true }
func (s Seg2) Subdivide() (Shape, Shape) {
	l, r := s.Segment.Subdivide()
	return Seg2{l}, Seg2{r}
}
