// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package precond

import (
	"github.com/ediloren/fastercap-core/link"
	"github.com/ediloren/fastercap-core/potential"
	"github.com/ediloren/fastercap-core/runctx"
	"github.com/ediloren/fastercap-core/tree"
)

// cutNode is one node of the tree-cut the two-level preconditioner
// operates on, plus the gather weights of the leaves it subtends.
type cutNode struct {
	leafIdx    []int     // global charge-vector indices of the subtended leaves
	leafWeight []float64 // leaf area/length fraction of the node's Dimension (spec.md §4.6 gather)
}

// TwoLevel is the "super" preconditioner of spec.md §4.6: a dense matrix
// between high-level tree-cut nodes, inverted once, applied by gather-
// multiply-scatter plus an unscattered per-leaf diagonal contribution.
type TwoLevel struct {
	nodes []cutNode
	inv   [][]complex128 // with diagonal zeroed, per spec.md §4.6 Apply rule
	self  *link.SelfPotentials
	n     int
}

// BuildTwoLevel chooses the deepest tree-cut depth such that the total
// number of cut nodes across every tree in offsets is <= superPreDim (the
// roots alone when even they exceed it), builds the
// dense inter-node potential-estimate matrix and inverts it (spec.md
// §4.6).
func BuildTwoLevel(rc *runctx.RunContext, kernel potential.Kernel, dim2 bool, offsets map[*tree.Tree]int, self *link.SelfPotentials, superPreDim int) (*TwoLevel, error) {
	if superPreDim <= 0 {
		superPreDim = 400
	}
	var cuts []tree.Ref
	var cutTrees []*tree.Tree
	for depth := 0; ; depth++ {
		var next []tree.Ref
		var nextTrees []*tree.Tree
		for t := range offsets {
			if t.Root == tree.NilRef {
				continue
			}
			collectCutAtDepth(t, t.Root, depth, &next, &nextTrees)
		}
		if depth > 0 && len(next) > superPreDim {
			break // keep the previous depth's cut, the deepest that fits
		}
		cuts, cutTrees = next, nextTrees
		if len(cuts) > superPreDim || allLeaves(cutTrees, cuts) {
			break
		}
	}

	tl := &TwoLevel{self: self}
	for t := range offsets {
		tl.n += t.LeafCount()
	}

	nodes := make([]cutNode, len(cuts))
	mat := make([][]complex128, len(cuts))
	opts := potential.DefaultOptions(dim2)
	for i := range mat {
		mat[i] = make([]complex128, len(cuts))
	}
	for i, ri := range cuts {
		ti := cutTrees[i]
		ei := &ti.Nodes[ri]
		offi := offsets[ti]
		nodes[i] = gatherWeights(ti, ri, offi)
		for j, rj := range cuts {
			tj := cutTrees[j]
			ej := &tj.Nodes[rj]
			if i == j {
				v, err := kernel.SelfPotential(toPotentialElement(ei), opts)
				if err != nil {
					return nil, err
				}
				mat[i][j] = v
				continue
			}
			v, err := kernel.Potential(toPotentialElement(ej), toPotentialElement(ei), opts)
			if err != nil {
				return nil, err
			}
			mat[i][j] = v
		}
	}
	inv, err := invertDense(mat)
	if err != nil {
		return nil, err
	}
	for i := range inv {
		inv[i][i] = 0 // "multiply by the inverted matrix with the diagonal zeroed out"
	}
	tl.nodes = nodes
	tl.inv = inv
	rc.Log("two-level preconditioner: %d cut nodes", len(cuts))
	return tl, nil
}

// collectCutAtDepth appends, for the subtree rooted at ref, the refs at
// exactly depth levels down (or the leaf itself, if the subtree is
// shallower than depth).
func collectCutAtDepth(t *tree.Tree, ref tree.Ref, depth int, out *[]tree.Ref, outTrees *[]*tree.Tree) {
	e := &t.Nodes[ref]
	if depth == 0 || e.IsLeaf() {
		*out = append(*out, ref)
		*outTrees = append(*outTrees, t)
		return
	}
	collectCutAtDepth(t, e.Left, depth-1, out, outTrees)
	collectCutAtDepth(t, e.Right, depth-1, out, outTrees)
}

func allLeaves(trees []*tree.Tree, refs []tree.Ref) bool {
	for i, r := range refs {
		if !trees[i].Nodes[r].IsLeaf() {
			return false
		}
	}
	return true
}

func gatherWeights(t *tree.Tree, ref tree.Ref, offset int) cutNode {
	var leaves []tree.Ref
	collectLeaves(t, ref, &leaves)
	e := &t.Nodes[ref]
	cn := cutNode{leafIdx: make([]int, len(leaves)), leafWeight: make([]float64, len(leaves))}
	for i, lr := range leaves {
		le := &t.Nodes[lr]
		cn.leafIdx[i] = offset + int(le.LeafSeq)
		if e.Dimension != 0 {
			cn.leafWeight[i] = le.Dimension / e.Dimension
		}
	}
	return cn
}

// Apply gathers leaf charges into their owning cut node weighted by area
// fraction, multiplies by the (diagonal-zeroed) inverted matrix, scatters
// weighted back to leaves, then adds the unscattered diagonal contribution
// diag^-1*q[leaf] directly per leaf (spec.md §4.6).
func (tl *TwoLevel) Apply(q []complex128) ([]complex128, error) {
	gathered := make([]complex128, len(tl.nodes))
	for i, cn := range tl.nodes {
		var acc complex128
		for k, idx := range cn.leafIdx {
			acc += cn.leafWeight[k] * q[idx]
		}
		gathered[i] = acc
	}
	scattered := make([]complex128, len(tl.nodes))
	for i := range tl.nodes {
		var acc complex128
		for j := range tl.nodes {
			acc += tl.inv[i][j] * gathered[j]
		}
		scattered[i] = acc
	}
	out := make([]complex128, len(q))
	copy(out, q)
	for i, cn := range tl.nodes {
		for k, idx := range cn.leafIdx {
			out[idx] = cn.leafWeight[k] * scattered[i]
		}
	}
	for i := range out {
		d := tl.self.At(i)
		if d != 0 {
			out[i] += q[i] / d
		}
	}
	return out, nil
}
