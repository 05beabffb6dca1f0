// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cond implements the conductor registry of spec.md §3/§4.2: named
// groups of panels, dielectric-interface bookkeeping, per-surface
// permittivities and the dielectric reference point.
package cond

import (
	"math/cmplx"

	"github.com/ediloren/fastercap-core/config"
	"github.com/ediloren/fastercap-core/geom"
)

// BBox is an axis-aligned bounding box over element centroids, held by
// Conductor. The super-hierarchy builder uses its own tree.Box instead.
type BBox struct {
	Min, Max geom.Vec3
}

func EmptyBBox() BBox {
	inf := 1e300
	return BBox{Min: geom.Vec3{inf, inf, inf}, Max: geom.Vec3{-inf, -inf, -inf}}
}

func (b BBox) Extend(p geom.Vec3) BBox {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
	return b
}

// LongestAxis returns the index (0=x,1=y,2=z) of the box's longest axis
// and that axis's extent. In 2D only axes 0 and 1 are considered.
func (b BBox) LongestAxis(dim2 bool) (axis int, extent float64) {
	n := 3
	if dim2 {
		n = 2
	}
	axis = 0
	extent = b.Max[0] - b.Min[0]
	for i := 1; i < n; i++ {
		e := b.Max[i] - b.Min[i]
		if e > extent {
			axis, extent = i, e
		}
	}
	return axis, extent
}

// TreeRoot is the minimal interface the cond package needs from tree.Tree
// (avoiding an import cycle: tree imports cond for this interface, so cond
// cannot import tree back). The concrete *tree.Tree satisfies this.
type TreeRoot interface {
	LeafCount() int

	// Merge folds other's leaves into the receiver's geometry, returning
	// the tree to use as the surviving conductor's new Root (spec.md §6
	// `N` directive merge; spec.md §8 "rank-1 update" scenario).
	Merge(other TreeRoot) TreeRoot
}

// Conductor is a named group of leaves (spec.md §3).
type Conductor struct {
	Name string // decorated to disambiguate identically-named groups across nested sub-files

	IsDielectric bool

	InnerPerm complex128 // inner complex permittivity
	OuterPerm complex128 // outer complex permittivity (primary / index 0)

	// OuterPermByDielIndex holds up to config.AutopanelMaxDielNum distinct
	// outer-permittivity values, indexed by a panel's dielectric-index
	// byte (spec.md §3: "a conductor may border several media").
	OuterPermByDielIndex [config.AutopanelMaxDielNum]complex128
	NumDielEntries       int

	DielRefPoint geom.Vec3
	Box          BBox

	Root     TreeRoot
	NumLeaf  int

	// ChargeOffset is the index of this conductor's first unknown in the
	// combined charge vector (supplemented from original_source/: FasterCap
	// keeps a per-conductor "first charge index" to slice q/v by
	// conductor without a linear scan).
	ChargeOffset int

	// Seeded records whether the top-level single-panel seeding subdivision
	// of spec.md §4.3 has already run for this conductor.
	Seeded bool
}

// IsComplex reports whether this conductor's permittivities carry a
// nonzero imaginary part, promoting the whole problem to complex (spec.md
// §6).
func (c *Conductor) IsComplex() bool {
	if cmplx.Abs(complex(0, imag(c.InnerPerm))) > 0 || cmplx.Abs(complex(0, imag(c.OuterPerm))) > 0 {
		return true
	}
	for i := 0; i < c.NumDielEntries; i++ {
		if imag(c.OuterPermByDielIndex[i]) != 0 {
			return true
		}
	}
	return false
}

// AddOuterPerm registers a (possibly new) outer-permittivity value this
// conductor borders, returning its dielectric-index byte. Returns an error
// if the conductor already borders config.AutopanelMaxDielNum distinct
// media.
func (c *Conductor) AddOuterPerm(perm complex128) (idx byte, err error) {
	for i := 0; i < c.NumDielEntries; i++ {
		if c.OuterPermByDielIndex[i] == perm {
			return byte(i), nil
		}
	}
	if c.NumDielEntries >= config.AutopanelMaxDielNum {
		return 0, errTooManyDielectrics(c.Name)
	}
	c.OuterPermByDielIndex[c.NumDielEntries] = perm
	idx = byte(c.NumDielEntries)
	c.NumDielEntries++
	return idx, nil
}
