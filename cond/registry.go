// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cond

import (
	"github.com/ediloren/fastercap-core/config"
	"github.com/ediloren/fastercap-core/errs"
)

func errTooManyDielectrics(name string) *errs.Error {
	return errs.New(errs.Generic, "conductor %q borders more than %d distinct media", name, config.AutopanelMaxDielNum)
}

// Registry holds the ordered sequence of conductors parsed from an input
// deck. spec.md §3 requires all dielectric-interface groups to precede all
// real conductors: "this ordering is load-bearing for the 2D
// zero-total-charge enforcement below" (matvec's per-conductor row
// rewrite walks conductors in registry order and needs dielectrics
// excluded from the start).
type Registry struct {
	diels       []*Conductor
	conductors  []*Conductor
	byName      map[string]*Conductor
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Conductor)}
}

// Add registers c, appending it to the dielectric or conductor sequence
// according to c.IsDielectric. A directive ending without '+' closes the
// group, so a later identically-named directive is a *distinct* group
// (spec.md §6) — callers must therefore pass a Conductor each time a new
// group starts, never look one up by name to append to silently.
func (r *Registry) Add(c *Conductor) {
	r.byName[c.Name] = c
	if c.IsDielectric {
		r.diels = append(r.diels, c)
	} else {
		r.conductors = append(r.conductors, c)
	}
}

// Lookup finds a conductor by its (possibly decorated) name.
func (r *Registry) Lookup(name string) (*Conductor, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// Conductors returns the real (non-dielectric) conductors in registration
// order — the order that becomes the capacitance matrix's row/column order.
func (r *Registry) Conductors() []*Conductor { return r.conductors }

// Dielectrics returns the dielectric-interface groups.
func (r *Registry) Dielectrics() []*Conductor { return r.diels }

// All returns dielectrics first, then conductors — the load-bearing order
// of spec.md §3.
func (r *Registry) All() []*Conductor {
	out := make([]*Conductor, 0, len(r.diels)+len(r.conductors))
	out = append(out, r.diels...)
	out = append(out, r.conductors...)
	return out
}

// AssignChargeOffsets walks All() in order and stamps each conductor's
// ChargeOffset to the running total of leaves seen so far, so the combined
// charge vector can be sliced per conductor without a scan.
func (r *Registry) AssignChargeOffsets() {
	offset := 0
	for _, c := range r.All() {
		c.ChargeOffset = offset
		offset += c.NumLeaf
	}
}

// Rename renames oldName to newName. If a conductor already named newName
// exists, the two groups merge: oldName's panels are folded into newName's
// tree via TreeRoot.Merge and oldName is removed from the registry (spec.md
// §6 `N` directive; spec.md §8 "Rank-1 update" scenario — the merged
// conductor's row count drops by one, and its self-capacitance becomes
// C11+C22+2·C12 of the two original groups).
func (r *Registry) Rename(oldName, newName string) (surviving *Conductor, merged bool, err error) {
	oldC, ok := r.byName[oldName]
	if !ok {
		return nil, false, errs.New(errs.Generic, "rename: unknown conductor %q", oldName)
	}
	if newC, exists := r.byName[newName]; exists && newC != oldC {
		if oldC.Root != nil {
			if newC.Root == nil {
				newC.Root = oldC.Root
			} else {
				newC.Root = newC.Root.Merge(oldC.Root)
			}
			newC.NumLeaf = newC.Root.LeafCount()
		}
		r.removeConductor(oldC)
		delete(r.byName, oldName)
		return newC, true, nil
	}
	delete(r.byName, oldName)
	oldC.Name = newName
	r.byName[newName] = oldC
	return oldC, false, nil
}

func (r *Registry) removeConductor(c *Conductor) {
	filter := func(list []*Conductor) []*Conductor {
		out := list[:0]
		for _, x := range list {
			if x != c {
				out = append(out, x)
			}
		}
		return out
	}
	if c.IsDielectric {
		r.diels = filter(r.diels)
	} else {
		r.conductors = filter(r.conductors)
	}
}
