// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package matvec

import (
	"golang.org/x/sync/errgroup"

	"github.com/ediloren/fastercap-core/errs"
	"github.com/ediloren/fastercap-core/link"
	"github.com/ediloren/fastercap-core/runctx"
)

// ApplyLinks runs phase 2 of spec.md §4.5: for every node with a non-empty
// link slice, Potential += sum(Coeff * peer.Charge). One block of the store
// is made resident at a time; within a resident block the per-node sums
// fan out across goroutines, each one only writing its own node's Potential
// field (spec.md §5: "each thread writes only to itself").
func ApplyLinks(rc *runctx.RunContext, u *link.Universe, store *link.Store) error {
	for _, blk := range store.Blocks() {
		store.LoadBlock(blk)
		if err := applyBlock(rc, u, store, blk); err != nil {
			return err
		}
	}
	return nil
}

func applyBlock(rc *runctx.RunContext, u *link.Universe, store *link.Store, blk link.Block) error {
	var eg errgroup.Group
	for _, t := range u.Trees() {
		t := t
		for i := range t.Nodes {
			e := &t.Nodes[i]
			if e.LinkEnd <= e.LinkStart || e.LinkEnd <= blk.Start || e.LinkStart >= blk.End {
				continue
			}
			e := e
			eg.Go(func() error {
				if rc.Cancelled() {
					return errs.New(errs.UserBreak, "matvec link application cancelled")
				}
				var acc complex128
				store.ForEachResidentInRange(e.LinkStart, e.LinkEnd, blk.Start, blk.End, func(_ int32, entry *link.Entry) {
					peer := &u.TreeOf(entry.Peer.TreeID).Nodes[entry.Peer.Ref]
					acc += entry.Coeff * peer.Charge
				})
				e.Potential += acc
				return nil
			})
		}
	}
	return eg.Wait()
}
