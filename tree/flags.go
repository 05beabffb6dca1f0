// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tree implements the Element data model, the arena-allocated
// binary-tree arena, and the super-hierarchy builder of spec.md §3/§4.2:
// a kd-like binary tree over panel centroids ("super-panels") built
// top-down per conductor.
package tree

// Flags is the per-element type bitset of spec.md §3.
type Flags uint8

const (
	IsDiel              Flags = 1 << iota // panel belongs to a dielectric-interface conductor
	OutpermNormalDir                      // set iff the dielectric reference point lies on the
	                                       // same side of the panel as the geometric normal
	OutpermElementLevel                   // the panel's dielectric-index byte applies at element (not conductor) level
	IsSuperNode                           // internal node representing the union of its two children
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

func (f *Flags) Set(bit Flags, v bool) {
	if v {
		*f |= bit
	} else {
		*f &^= bit
	}
}
