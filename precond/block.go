// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package precond

import (
	"github.com/ediloren/fastercap-core/geom"
	"github.com/ediloren/fastercap-core/potential"
	"github.com/ediloren/fastercap-core/runctx"
	"github.com/ediloren/fastercap-core/tree"
)

// blockEntry is one diagonal block: the global charge-vector indices it
// covers and the inverse of its dense mutual/self-potential submatrix
// (spec.md §4.6 "Block").
type blockEntry struct {
	indices []int
	inv     [][]complex128
}

// Block recurses each conductor tree, and on the first subtree whose leaf
// count is <= MaxLeaf collects its leaves into one diagonal block (spec.md
// §4.6): "recurse the tree; on the first subtree whose leaf count fits a
// configurable size (<=128), collect its leaves, build the dense submatrix
// of exact mutual/self potentials, invert it, store the inverse as a
// diagonal block of P." Every leaf falls in exactly one block; a maxLeaf of
// 0 or less is replaced by 128.
type Block struct {
	blocks []blockEntry
	n      int
}

// BuildBlock walks every tree in offsets and partitions it into disjoint
// leaf blocks no larger than maxLeaf, building and inverting each block's
// dense submatrix via kernel.
func BuildBlock(rc *runctx.RunContext, kernel potential.Kernel, dim2 bool, offsets map[*tree.Tree]int, totalLeaves, maxLeaf int) (*Block, error) {
	if maxLeaf <= 0 {
		maxLeaf = 128
	}
	b := &Block{n: totalLeaves}
	for t, offset := range offsets {
		if t.Root == tree.NilRef {
			continue
		}
		groups := partitionByLeafCap(t, t.Root, maxLeaf)
		for _, refs := range groups {
			indices := make([]int, len(refs))
			for i, r := range refs {
				indices[i] = offset + int(t.Nodes[r].LeafSeq)
			}
			m, err := denseSubmatrix(kernel, dim2, t, refs)
			if err != nil {
				return nil, err
			}
			inv, err := invertDense(m)
			if err != nil {
				rc.Warn("block preconditioner: %v; falling back to identity for this block", err)
				inv = identity(len(m))
			}
			b.blocks = append(b.blocks, blockEntry{indices: indices, inv: inv})
		}
	}
	rc.Log("block preconditioner: %d blocks, max size %d", len(b.blocks), maxLeaf)
	return b, nil
}

// partitionByLeafCap returns, in left-to-right order, the leaf refs of
// every maximal subtree rooted at ref whose leaf count is <= cap.
func partitionByLeafCap(t *tree.Tree, ref tree.Ref, maxLeaf int) [][]tree.Ref {
	e := &t.Nodes[ref]
	if int(e.NumLeaves) <= maxLeaf || e.IsLeaf() {
		leaves := make([]tree.Ref, 0, e.NumLeaves)
		collectLeaves(t, ref, &leaves)
		return [][]tree.Ref{leaves}
	}
	left := partitionByLeafCap(t, e.Left, maxLeaf)
	right := partitionByLeafCap(t, e.Right, maxLeaf)
	return append(left, right...)
}

func collectLeaves(t *tree.Tree, ref tree.Ref, out *[]tree.Ref) {
	e := &t.Nodes[ref]
	if e.IsLeaf() {
		*out = append(*out, ref)
		return
	}
	collectLeaves(t, e.Left, out)
	collectLeaves(t, e.Right, out)
}

func denseSubmatrix(kernel potential.Kernel, dim2 bool, t *tree.Tree, refs []tree.Ref) ([][]complex128, error) {
	n := len(refs)
	m := make([][]complex128, n)
	opts := potential.DefaultOptions(dim2)
	for i := range m {
		m[i] = make([]complex128, n)
	}
	for i, ri := range refs {
		ei := toPotentialElement(&t.Nodes[ri])
		for j, rj := range refs {
			if i == j {
				v, err := kernel.SelfPotential(ei, opts)
				if err != nil {
					return nil, err
				}
				m[i][j] = v
				continue
			}
			ej := toPotentialElement(&t.Nodes[rj])
			v, err := kernel.Potential(ej, ei, opts) // potential at i induced by j
			if err != nil {
				return nil, err
			}
			m[i][j] = v
		}
	}
	return m, nil
}

func identity(n int) [][]complex128 {
	m := make([][]complex128, n)
	for i := range m {
		m[i] = make([]complex128, n)
		m[i][i] = 1
	}
	return m
}

func (b *Block) Apply(q []complex128) ([]complex128, error) {
	out := make([]complex128, len(q))
	copy(out, q) // leaves outside any block pass through unchanged
	for _, blk := range b.blocks {
		n := len(blk.indices)
		sub := make([]complex128, n)
		for i, idx := range blk.indices {
			sub[i] = q[idx]
		}
		res := make([]complex128, n)
		for i := 0; i < n; i++ {
			var acc complex128
			for j := 0; j < n; j++ {
				acc += blk.inv[i][j] * sub[j]
			}
			res[i] = acc
		}
		for i, idx := range blk.indices {
			out[idx] = res[i]
		}
	}
	return out, nil
}

// toPotentialElement mirrors the mesh/link packages' helper of the same
// name (spec.md §9 polymorphic-element dispatch); duplicated here rather
// than exported from potential, matching the existing mesh/link split so
// neither package depends on the other for this conversion.
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
			tr := s.Triangle
			pe.Tri = &tr
		case geom.Seg2:
			sg := s.Segment
			pe.Seg = &sg
		}
	}
	return pe
}
