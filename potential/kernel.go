// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package potential defines the Green's-function oracle P(·,·) that the
// mesher, link generator and preconditioner call to estimate or compute
// panel-to-panel potential coefficients. spec.md §1 treats the low-level
// numerical integrators as an external oracle; this package fixes the
// interface boundary and supplies a default collocation implementation so
// the module is runnable standalone (SPEC_FULL.md §4.0).
package potential

import (
	"math"

	"github.com/ediloren/fastercap-core/errs"
	"github.com/ediloren/fastercap-core/geom"
)

// Options carries the few knobs the oracle needs that are not already part
// of the shape itself: whether the problem is 2D (switches 1/r to -log r)
// and a near/far classification threshold.
type Options struct {
	Dim2          bool
	NearFarRatio  float64 // src/dst separated by less than NearFarRatio*size => near
}

// DefaultOptions mirrors the thresholds the teacher's shape-function
// quadrature selection uses for "close enough to need more integration
// points".
func DefaultOptions(dim2 bool) Options {
	return Options{Dim2: dim2, NearFarRatio: 3.0}
}

// Kernel is the oracle the core consumes, never a concrete integrator
// (spec.md §1). The Element values passed in describe just enough of each
// panel for the oracle to work without depending on the tree package (avoids an import cycle: tree does not
// need to know about potential, but potential must not need tree).
type Kernel interface {
	// Potential estimates/computes p(src -> dst): the potential induced at
	// dst's collocation point by a unit charge density on src.
	Potential(src, dst Element, opts Options) (complex128, error)

	// SelfPotential computes the diagonal coefficient of elem against
	// itself. Potential has no notion of element identity: any two
	// elements with coincident centroids, src==dst included, are rejected
	// with errs.ErrorZeroDist, and errs.ErrorAutocap is never returned.
	// SelfPotential is the only sanctioned path for the diagonal.
	SelfPotential(elem Element, opts Options) (complex128, error)
}

// Element is the minimal per-panel description the oracle needs.
type Element struct {
	Centroid geom.Vec3
	Normal   geom.Vec3
	Dim      float64 // area (3D) or length (2D)
	MaxSide  float64
	Tri      *geom.Triangle // non-nil in 3D
	Seg      *geom.Segment  // non-nil in 2D
}

// Collocation is the default Kernel: analytic 1/r (3D) or -log r (2D) for
// far pairs, a low-order Gauss quadrature (quadrature.go) for near pairs,
// matching spec.md §4.3's "analytic 1/r or -log r for far pairs and a
// low-order numerical quadrature for near pairs".
type Collocation struct {
	Order int // quadrature order for near pairs (default 3)
}

func NewCollocation() *Collocation { return &Collocation{Order: 3} }

func (c *Collocation) Potential(src, dst Element, opts Options) (complex128, error) {
	d := src.Centroid.Dist(dst.Centroid)
	if d == 0 {
		return 0, errs.New(errs.ErrorZeroDist, "zero distance between distinct elements")
	}
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, errs.New(errs.ErrorNaNOrInf, "non-finite distance in potential evaluation")
	}
	near := d < opts.NearFarRatio*math.Max(src.MaxSide, dst.MaxSide)
	if near {
		return quadraturePotential(src, dst, opts, c.order())
	}
	return analyticPotential(src, dst, opts), nil
}

func (c *Collocation) order() int {
	if c.Order <= 0 {
		return 3
	}
	return c.Order
}

func (c *Collocation) SelfPotential(elem Element, opts Options) (complex128, error) {
	return selfPotentialAnalytic(elem, opts), nil
}

// analyticPotential evaluates the free-space Green's function at the two
// centroids, scaled by the source panel's measure: 1/(4*pi*r) in 3D,
// -log(r)/(2*pi) in 2D (up to the additive constant matvec's 2D
// zero-total-charge row handles, spec.md §4.5).
func analyticPotential(src, dst Element, opts Options) complex128 {
	r := src.Centroid.Dist(dst.Centroid)
	if opts.Dim2 {
		return complex(-math.Log(r)/(2*math.Pi)*src.Dim, 0)
	}
	return complex(src.Dim/(4*math.Pi*r), 0)
}
