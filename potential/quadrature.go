// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package potential

import (
	"math"

	"github.com/ediloren/fastercap-core/errs"
)

// Point is a quadrature point in a panel's natural coordinates plus weight,
// generalizing the teacher's shp.Ipoint (integration point) pattern
// (shp/shp.go, shp/algos.go) from FEM shape-function quadrature to
// panel-potential quadrature.
type Point struct {
	R, S float64 // natural (area/length) coordinates
	W    float64 // integration weight
}

// triGaussPoints returns a fixed-order Gauss quadrature rule over the unit
// triangle (r,s >= 0, r+s <= 1): order 1 and 4 select the 1- and 4-point
// rules, every other order the 3-point rule.
func triGaussPoints(order int) []Point {
	switch order {
	case 1:
		return []Point{{1.0 / 3, 1.0 / 3, 0.5}}
	case 4:
		return []Point{
			{1.0 / 3, 1.0 / 3, -27.0 / 96},
			{1.0 / 5, 1.0 / 5, 25.0 / 96},
			{3.0 / 5, 1.0 / 5, 25.0 / 96},
			{1.0 / 5, 3.0 / 5, 25.0 / 96},
		}
	default: // 3-point rule
		return []Point{
			{1.0 / 6, 1.0 / 6, 1.0 / 6},
			{2.0 / 3, 1.0 / 6, 1.0 / 6},
			{1.0 / 6, 2.0 / 3, 1.0 / 6},
		}
	}
}

// segGaussPoints returns a Gauss-Legendre rule on [0,1]: one point for
// order <= 1, two points for orders 2-3, three points above that.
func segGaussPoints(order int) []Point {
	switch {
	case order <= 1:
		return []Point{{0.5, 0, 1.0}}
	case order <= 3:
		a := 0.5 - 0.5/math.Sqrt(3)
		b := 0.5 + 0.5/math.Sqrt(3)
		return []Point{{a, 0, 0.5}, {b, 0, 0.5}}
	default:
		a := 0.5 - 0.5*math.Sqrt(3.0/5)
		b := 0.5
		c := 0.5 + 0.5*math.Sqrt(3.0/5)
		return []Point{
			{a, 0, 5.0 / 18},
			{b, 0, 8.0 / 18},
			{c, 0, 5.0 / 18},
		}
	}
}

// triPointAt maps natural coordinates (r,s) to a physical point on the
// triangle with vertices v0,v1,v2.
func triPointAt(v0, v1, v2 [3]float64, r, s float64) [3]float64 {
	var p [3]float64
	for i := 0; i < 3; i++ {
		p[i] = (1-r-s)*v0[i] + r*v1[i] + s*v2[i]
	}
	return p
}

func dist3(a, b [3]float64) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// quadraturePotential integrates the free-space Green's function over the
// source panel against the destination's collocation point (spec.md §4.3
// near-pair path). 2D segments use a 1D rule, 3D triangles a 2D simplex
// rule.
func quadraturePotential(src, dst Element, opts Options, order int) (complex128, error) {
	dstPt := [3]float64{dst.Centroid[0], dst.Centroid[1], dst.Centroid[2]}
	var total float64
	if opts.Dim2 && src.Seg != nil {
		a := [3]float64{src.Seg.A[0], src.Seg.A[1], 0}
		b := [3]float64{src.Seg.B[0], src.Seg.B[1], 0}
		length := src.Seg.Length()
		for _, pt := range segGaussPoints(order) {
			var p [3]float64
			for i := 0; i < 3; i++ {
				p[i] = (1-pt.R)*a[i] + pt.R*b[i]
			}
			r := dist3(p, dstPt)
			if r < 1e-14 {
				return 0, zeroDistErr()
			}
			total += -math.Log(r) / (2 * math.Pi) * pt.W * length
		}
		return complex(total, 0), nil
	}
	if src.Tri != nil {
		v0 := [3]float64{src.Tri.V[0][0], src.Tri.V[0][1], src.Tri.V[0][2]}
		v1 := [3]float64{src.Tri.V[1][0], src.Tri.V[1][1], src.Tri.V[1][2]}
		v2 := [3]float64{src.Tri.V[2][0], src.Tri.V[2][1], src.Tri.V[2][2]}
		area := src.Dim
		for _, pt := range triGaussPoints(order) {
			p := triPointAt(v0, v1, v2, pt.R, pt.S)
			r := dist3(p, dstPt)
			if r < 1e-14 {
				return 0, zeroDistErr()
			}
			total += pt.W / (4 * math.Pi * r) * 2 * area // 2*area: unit-triangle-to-physical Jacobian
		}
		return complex(total, 0), nil
	}
	// Neither Tri nor Seg set: fall back to the point-to-point analytic
	// form rather than failing the whole evaluation.
	return analyticPotential(src, dst, opts), nil
}

func zeroDistErr() error {
	return errs.New(errs.ErrorSmallDist, "quadrature point coincides with destination collocation point")
}

// selfPotentialAnalytic gives the self-potential of a panel on itself:
// the standard constant-charge-density self-term for a triangle/segment,
// used when the diagonal is requested directly via SelfPotential rather
// than through the (rejected) Potential(src==dst) path.
func selfPotentialAnalytic(elem Element, opts Options) complex128 {
	if opts.Dim2 {
		// Self-term of a constant-density segment against its own
		// midpoint: integral of -log|x| dx over [-L/2, L/2], normalized.
		L := elem.Dim
		if L <= 0 {
			return 0
		}
		val := L * (1 - math.Log(L/2)) / (2 * math.Pi)
		return complex(val, 0)
	}
	// Equivalent-radius disk approximation for a triangle's self-potential:
	// a disk of the same area has self-potential 8/(3*pi) * sqrt(area/pi)
	// in Gaussian units (standard collocation BEM approximation).
	area := elem.Dim
	if area <= 0 {
		return 0
	}
	req := math.Sqrt(area / math.Pi)
	val := 8.0 / (3.0 * math.Pi) * req
	return complex(val, 0)
}
