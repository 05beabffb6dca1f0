// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tree

import (
	"github.com/ediloren/fastercap-core/cond"
	"github.com/ediloren/fastercap-core/geom"
)

// Merge satisfies cond.TreeRoot: it folds other's leaves into t's, returning
// a freshly built super-hierarchy over the union of both trees' leaf
// shapes. A from-scratch Build is simpler than splicing two hierarchies
// together and gives the merged conductor the same median-split structure
// it would have had if its panels had been read as one group from the
// start (spec.md §6 `N` directive merge).
func (t *Tree) Merge(other cond.TreeRoot) cond.TreeRoot {
	o, ok := other.(*Tree)
	if !ok || o == nil || o.Root == NilRef {
		return t
	}
	if t.Root == NilRef {
		return o
	}

	shapes := make([]geom.Shape, 0, t.LeafCount()+o.LeafCount())
	for _, ref := range t.Leaves() {
		shapes = append(shapes, t.Nodes[ref].Shape)
	}
	for _, ref := range o.Leaves() {
		shapes = append(shapes, o.Nodes[ref].Shape)
	}
	return Build(t.Dim2, shapes)
}
