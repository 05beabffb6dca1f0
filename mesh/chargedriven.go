// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mesh

import (
	"math/cmplx"

	"github.com/ediloren/fastercap-core/geom"
	"github.com/ediloren/fastercap-core/tree"
)

// ChargeStats tracks the running min/max charge density across leaves
// between auto-loop iterations (supplemented from original_source/:
// FasterCap's link generator keeps exactly this running pair to feed the
// charge-driven mesher's midpoint threshold, spec.md §4.3).
type ChargeStats struct {
	Min, Max float64
	any      bool
}

// Observe folds a leaf's charge density (|charge|/dimension) into the
// running min/max.
func (s *ChargeStats) Observe(density float64) {
	if !s.any {
		s.Min, s.Max = density, density
		s.any = true
		return
	}
	if density < s.Min {
		s.Min = density
	}
	if density > s.Max {
		s.Max = density
	}
}

// Midpoint returns the threshold the charge-driven mode splits against.
func (s *ChargeStats) Midpoint() float64 {
	return 0.5 * (s.Min + s.Max)
}

// ChargeDensity computes |charge|/dimension for leaf ref.
func ChargeDensity(t *tree.Tree, ref tree.Ref) float64 {
	e := &t.Nodes[ref]
	if e.Dimension == 0 {
		return 0
	}
	return cmplx.Abs(e.Charge) / e.Dimension
}

// RefineChargeDriven implements the second-pass mode of spec.md §4.3:
// "split any leaf whose max_side exceeds a cap AND whose charge density is
// above the midpoint between the run's min and max." maxSideCap<=0 means
// no cap is active (no splits occur). refPoint is used to fix up the
// orientation of any new leaves.
func RefineChargeDriven(t *tree.Tree, maxSideCap float64, stats ChargeStats, refPoint geom.Vec3) int {
	if maxSideCap <= 0 {
		return 0
	}
	mid := stats.Midpoint()
	splits := 0
	// Collect candidates first: Leaves() walks the current arena and
	// SubdivideLeaf appends to it, so mutating while iterating the live
	// leaf set would both miss new leaves (fine, they don't need a second
	// pass this round) and risk indexing into a growing/reallocating slice
	// mid-iteration.
	candidates := t.Leaves()
	for _, ref := range candidates {
		e := &t.Nodes[ref]
		if e.MaxSide <= maxSideCap {
			continue
		}
		if ChargeDensity(t, ref) <= mid {
			continue
		}
		l, r := t.SubdivideLeaf(ref)
		t.SetDielNormal(l, refPoint)
		t.SetDielNormal(r, refPoint)
		splits++
	}
	return splits
}

// GlobalMaxMeasure returns the largest element Dimension across trees,
// used as the curvature criterion's normalizer (spec.md §4.3).
func GlobalMaxMeasure(trees ...*tree.Tree) float64 {
	maxDim := 0.0
	for _, t := range trees {
		if t.Root == tree.NilRef {
			continue
		}
		for _, ref := range t.Leaves() {
			if d := t.Nodes[ref].Dimension; d > maxDim {
				maxDim = d
			}
		}
	}
	return maxDim
}
