// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package link implements the link generator and link store of spec.md
// §3/§4.4: the recorded pair-wise interactions between tree elements,
// packed into chunked arrays optionally paged to disk (out-of-core mode).
package link

import "github.com/ediloren/fastercap-core/tree"

// Universe assigns a small integer id to each conductor tree taking part
// in a solve, so a Peer can reference an element in any tree with a
// compact (TreeID, Ref) pair instead of a raw pointer — required both for
// the OOC on-disk encoding (spec.md §6: an "8-byte pointer" per link
// record) and so Peer values remain valid across GC.
type Universe struct {
	trees []*tree.Tree
	index map[*tree.Tree]int32
}

func NewUniverse(trees []*tree.Tree) *Universe {
	u := &Universe{trees: trees, index: make(map[*tree.Tree]int32, len(trees))}
	for i, t := range trees {
		u.index[t] = int32(i)
	}
	return u
}

func (u *Universe) IDOf(t *tree.Tree) int32 { return u.index[t] }
func (u *Universe) TreeOf(id int32) *tree.Tree { return u.trees[id] }

// Trees returns every tree registered in the universe, in assigned-id order.
func (u *Universe) Trees() []*tree.Tree { return u.trees }

// Peer identifies the element on the other end of a link.
type Peer struct {
	TreeID int32
	Ref    tree.Ref
}

// Encode packs a Peer into the 8-byte record spec.md §6 specifies for
// chunk pointer files: the high 32 bits are the tree id, the low 32 bits
// the element ref.
func (p Peer) Encode() uint64 {
	return uint64(uint32(p.TreeID))<<32 | uint64(uint32(p.Ref))
}

func DecodePeer(v uint64) Peer {
	return Peer{TreeID: int32(int32(v >> 32)), Ref: tree.Ref(int32(v & 0xffffffff))}
}

// Entry is one half of a Link: a reference to the peer element plus the
// coefficient P(owner, peer) (spec.md §3). Physically stored twice, once
// under each endpoint's slice (spec.md §3 "Link").
type Entry struct {
	Peer  Peer
	Coeff complex128
}

// Owner identifies the element that owns a slice of entries — the element
// whose LinkStart/LinkEnd the slice corresponds to.
type Owner struct {
	TreeID int32
	Ref    tree.Ref
}
