// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tree

// PostOrder returns the arena refs of the subtree rooted at root in
// post-order (children before parents), the order the up-sweep phase of
// matvec walks in (spec.md §4.5). Implemented as a non-recursive stack
// walk so it is safe for the deep, unbalanced trees an adversarial input
// can produce (spec.md §4.5: "a non-recursive post-order stack walk").
func (t *Tree) PostOrder() []Ref {
	if t.Root == NilRef {
		return nil
	}
	order := make([]Ref, 0, len(t.Nodes))
	type frame struct {
		ref     Ref
		visited bool
	}
	stack := []frame{{t.Root, false}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		e := &t.Nodes[top.ref]
		if e.IsLeaf() || top.visited {
			order = append(order, top.ref)
			stack = stack[:len(stack)-1]
			continue
		}
		top.visited = true
		stack = append(stack, frame{e.Right, false}, frame{e.Left, false})
	}
	return order
}

// PreOrder returns refs in pre-order (parents before children), the order
// the down-sweep phase walks in (spec.md §4.5).
func (t *Tree) PreOrder() []Ref {
	if t.Root == NilRef {
		return nil
	}
	order := make([]Ref, 0, len(t.Nodes))
	stack := []Ref{t.Root}
	for len(stack) > 0 {
		ref := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, ref)
		e := &t.Nodes[ref]
		if e.IsSuper() {
			stack = append(stack, e.Right, e.Left)
		}
	}
	return order
}

// Linearize assigns dense leaf-sequence numbers (spec.md §3: "leaf-sequence
// number") in left-to-right leaf order and returns the node array: the
// tree linearized in the post-order-like sequence used by the parallel
// matvec loops (spec.md §3 "Node array").
func (t *Tree) Linearize() []Ref {
	seq := int32(0)
	var assign func(ref Ref)
	assign = func(ref Ref) {
		e := &t.Nodes[ref]
		if e.IsLeaf() {
			e.LeafSeq = seq
			seq++
			return
		}
		assign(e.Left)
		assign(e.Right)
	}
	if t.Root != NilRef {
		assign(t.Root)
	}
	return t.PostOrder()
}

// Leaves returns the refs of every leaf in the tree, in arena order (not
// LeafSeq order).
func (t *Tree) Leaves() []Ref {
	leaves := make([]Ref, 0, (len(t.Nodes)+1)/2)
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			leaves = append(leaves, Ref(i))
		}
	}
	return leaves
}
