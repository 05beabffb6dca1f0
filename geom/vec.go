// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package geom provides the geometry primitives of spec.md §4.1: flat
// triangular/quadrilateral panels in 3D and line segments in 2D, with
// centroid, dimension (area/length), normal and subdivision operations.
package geom

import "math"

// Vec3 is a point or direction in 3D space.
type Vec3 [3]float64

func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func (a Vec3) Scale(s float64) Vec3 { return Vec3{a[0] * s, a[1] * s, a[2] * s} }

func (a Vec3) Dot(b Vec3) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func (a Vec3) Norm() float64 { return math.Sqrt(a.Dot(a)) }

func (a Vec3) Normalize() Vec3 {
	n := a.Norm()
	if n == 0 {
		return a
	}
	return a.Scale(1 / n)
}

func (a Vec3) Dist(b Vec3) float64 { return a.Sub(b).Norm() }

func Midpoint3(a, b Vec3) Vec3 { return a.Add(b).Scale(0.5) }

// Vec2 is a point or direction in 2D space.
type Vec2 [2]float64

func (a Vec2) Add(b Vec2) Vec2     { return Vec2{a[0] + b[0], a[1] + b[1]} }
func (a Vec2) Sub(b Vec2) Vec2     { return Vec2{a[0] - b[0], a[1] - b[1]} }
func (a Vec2) Scale(s float64) Vec2 { return Vec2{a[0] * s, a[1] * s} }
func (a Vec2) Dot(b Vec2) float64  { return a[0]*b[0] + a[1]*b[1] }
func (a Vec2) Norm() float64       { return math.Sqrt(a.Dot(a)) }
func (a Vec2) Dist(b Vec2) float64 { return a.Sub(b).Norm() }

func Midpoint2(a, b Vec2) Vec2 { return a.Add(b).Scale(0.5) }

// Perp returns the 2D normal direction (rotate 90 degrees).
func (a Vec2) Perp() Vec2 { return Vec2{-a[1], a[0]} }
