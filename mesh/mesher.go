// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mesh implements the adaptive mesher of spec.md §4.3: recursive
// subdivision of leaf panels driven by potential-estimate thresholds
// (curvature/proximity mode) or by post-solve charge density (charge-driven
// mode).
package mesh

import (
	"math"

	"github.com/ediloren/fastercap-core/config"
	"github.com/ediloren/fastercap-core/errs"
	"github.com/ediloren/fastercap-core/geom"
	"github.com/ediloren/fastercap-core/potential"
	"github.com/ediloren/fastercap-core/runctx"
	"github.com/ediloren/fastercap-core/tree"
)

// Mesher drives both refinement modes over a pair of conductor trees.
type Mesher struct {
	Kernel   potential.Kernel
	Params   config.Mesh
	RC       *runctx.RunContext
	Dim2     bool

	// MaxMeshEps records the maximum per-pair threshold that did NOT
	// trigger a subdivision (spec.md §4.3 termination). solve.Run does not
	// read it: the auto-loop halves its own mesh_eps between iterations.
	MaxMeshEps float64
}

func New(rc *runctx.RunContext, kernel potential.Kernel, params config.Mesh, dim2 bool) *Mesher {
	return &Mesher{Kernel: kernel, Params: params, RC: rc, Dim2: dim2}
}

// RefPoints maps conductor trees to the dielectric reference point used to
// fix up orientation on new leaves after a subdivision; mesh is
// conductor-agnostic otherwise (it only ever sees two tree.Tree values).
type RefPoints struct {
	A, B geom.Vec3
}

// RefinePair refines trees a and b against each other (same=true for a
// conductor's self-interaction pair). globalMaxMeasure is the largest
// element dimension across the whole problem, used by the curvature
// criterion's normalization (spec.md §4.3).
func (m *Mesher) RefinePair(a, b *tree.Tree, same bool, globalMaxMeasure float64, refs RefPoints) error {
	if a.Root == tree.NilRef || b.Root == tree.NilRef {
		return nil
	}
	return m.refineRec(a, b, a.Root, b.Root, same, globalMaxMeasure, refs)
}

func (m *Mesher) refineRec(a, b *tree.Tree, ra, rb tree.Ref, same bool, globalMax float64, refs RefPoints) error {
	if m.RC.Cancelled() {
		return errs.New(errs.UserBreak, "mesh refinement cancelled")
	}
	ea, eb := &a.Nodes[ra], &b.Nodes[rb]
	if same && ra == rb && ea.IsSuper() {
		// An element is never compared with itself; a super-node's children
		// are refined against themselves and against each other instead.
		l, r := ea.Left, ea.Right
		if err := m.refineRec(a, b, l, l, same, globalMax, refs); err != nil {
			return err
		}
		if err := m.refineRec(a, b, l, r, same, globalMax, refs); err != nil {
			return err
		}
		return m.refineRec(a, b, r, r, same, globalMax, refs)
	}
	if same && ra == rb {
		return nil // a leaf against itself: the diagonal is handled by SelfPotential
	}

	curvCoeff := 1.0
	if same {
		curvCoeff = (m.Params.CurvCoeff-1)*(ea.GeoNormal.Dot(eb.GeoNormal)+1) + 1
	}

	pAB, err := m.Kernel.Potential(toPotentialElement(ea), toPotentialElement(eb), potential.DefaultOptions(m.Dim2))
	if err != nil {
		return err
	}
	pBA, err := m.Kernel.Potential(toPotentialElement(eb), toPotentialElement(ea), potential.DefaultOptions(m.Dim2))
	if err != nil {
		return err
	}

	ratioAB := math.Abs(real(pAB)) * eb.Dimension / (globalMax * curvCoeff)
	ratioBA := math.Abs(real(pBA)) * ea.Dimension / (globalMax * curvCoeff)

	triggerAB := ratioAB > m.Params.MeshEps
	triggerBA := ratioBA > m.Params.MeshEps
	if !triggerAB && !triggerBA {
		observed := math.Max(ratioAB, ratioBA)
		if observed > m.MaxMeshEps {
			m.MaxMeshEps = observed
		}
		return nil
	}
	if same && ra == rb {
		// a self-pair of an element against itself never subdivides here;
		// the diagonal is handled by SelfPotential elsewhere.
		return nil
	}

	// Subdivide the larger of the two triggering elements and recurse
	// (spec.md §4.3).
	if ea.IsLeaf() && eb.IsLeaf() {
		if ea.Dimension >= eb.Dimension {
			return m.subdivideAndRecurse(a, b, ra, rb, same, globalMax, refs, true)
		}
		return m.subdivideAndRecurse(a, b, ra, rb, same, globalMax, refs, false)
	}
	if ea.Dimension >= eb.Dimension {
		return m.subdivideAndRecurse(a, b, ra, rb, same, globalMax, refs, true)
	}
	return m.subdivideAndRecurse(a, b, ra, rb, same, globalMax, refs, false)
}

// subdivideAndRecurse subdivides the element in tree a (subdivideA=true) or
// tree b, then recurses into both resulting children against the other
// side's element.
func (m *Mesher) subdivideAndRecurse(a, b *tree.Tree, ra, rb tree.Ref, same bool, globalMax float64, refs RefPoints, subdivideA bool) error {
	if subdivideA {
		ea := &a.Nodes[ra]
		if ea.IsSuper() {
			if err := m.refineRec(a, b, ea.Left, rb, same, globalMax, refs); err != nil {
				return err
			}
			return m.refineRec(a, b, ea.Right, rb, same, globalMax, refs)
		}
		l, r := a.SubdivideLeaf(ra)
		a.SetDielNormal(l, refs.A)
		a.SetDielNormal(r, refs.A)
		if err := m.refineRec(a, b, l, rb, same, globalMax, refs); err != nil {
			return err
		}
		return m.refineRec(a, b, r, rb, same, globalMax, refs)
	}
	eb := &b.Nodes[rb]
	if eb.IsSuper() {
		if err := m.refineRec(a, b, ra, eb.Left, same, globalMax, refs); err != nil {
			return err
		}
		return m.refineRec(a, b, ra, eb.Right, same, globalMax, refs)
	}
	l, r := b.SubdivideLeaf(rb)
	b.SetDielNormal(l, refs.B)
	b.SetDielNormal(r, refs.B)
	if err := m.refineRec(a, b, ra, l, same, globalMax, refs); err != nil {
		return err
	}
	return m.refineRec(a, b, ra, r, same, globalMax, refs)
}

func toPotentialElement(e *tree.Element) potential.Element {
	pe := potential.Element{
		Centroid: e.Centroid,
		Normal:   e.GeoNormal,
		Dim:      e.Dimension,
		MaxSide:  e.MaxSide,
	}
	if e.IsLeaf() {
		switch s := e.Shape.(type) {
		case geom.Tri3:
			t := s.Triangle
			pe.Tri = &t
		case geom.Seg2:
			sg := s.Segment
			pe.Seg = &sg
		}
	}
	return pe
}

// SeedTopLevel implements the unconditional single subdivision of spec.md
// §4.3: "a conductor consisting of a single input panel whose children
// have not yet been generated gets subdivided once unconditionally so the
// mutual-refinement step has material to work with."
func SeedTopLevel(t *tree.Tree, refPoint geom.Vec3) bool {
	if t.Root == tree.NilRef || t.LeafCount() != 1 || !t.Nodes[t.Root].IsLeaf() {
		return false
	}
	l, r := t.SubdivideLeaf(t.Root)
	t.SetDielNormal(l, refPoint)
	t.SetDielNormal(r, refPoint)
	return true
}
