// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package matvec

import (
	"testing"

	"github.com/ediloren/fastercap-core/config"
	"github.com/ediloren/fastercap-core/geom"
	"github.com/ediloren/fastercap-core/link"
	"github.com/ediloren/fastercap-core/potential"
	"github.com/ediloren/fastercap-core/runctx"
	"github.com/ediloren/fastercap-core/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func onePanel(z float64) *tree.Tree {
	tri := geom.Triangle{V: [3]geom.Vec3{{0, 0, z}, {1, 0, z}, {0, 1, z}}}
	return tree.Build(false, []geom.Shape{geom.Tri3{Triangle: tri}})
}

func TestApplySingleIsolatedLeafMatchesSelfPotential(t *testing.T) {
	a := onePanel(0)
	u := link.NewUniverse([]*tree.Tree{a})
	rc := runctx.NewDefault(false)
	kernel := potential.NewCollocation()

	store := link.NewStore(u, 64, 0) // no links: a single leaf has nothing to pair against
	offsets := map[*tree.Tree]int{a: 0}
	gen := link.New(rc, kernel, false, config.Link{}, 2.25)
	self, err := gen.ComputeSelfPotentials(offsets, a.LeafCount())
	require.NoError(t, err)

	op := &Operator{RC: rc, Universe: u, Store: store, Self: self, Offsets: offsets}
	q := []complex128{complex(2.0, 0)}
	v, err := op.Apply(q)
	require.NoError(t, err)
	require.Len(t, v, 1)
	assert.InDelta(t, real(self.At(0))*2.0, real(v[0]), 1e-9)
}

func TestApplyLinksAccumulatesAcrossTwoConductors(t *testing.T) {
	a := onePanel(0)
	b := onePanel(1)
	u := link.NewUniverse([]*tree.Tree{a, b})
	rc := runctx.NewDefault(false)
	kernel := potential.NewCollocation()

	gen := link.New(rc, kernel, false, config.Link{Eps: 1.0, ChunkSize: 64}, 2.25)
	store, err := gen.Generate(u, []link.Pair{{A: a, B: b}}, 1.0, "")
	require.NoError(t, err)

	offsets := map[*tree.Tree]int{a: 0, b: 1}
	self, err := gen.ComputeSelfPotentials(offsets, 2)
	require.NoError(t, err)

	op := &Operator{RC: rc, Universe: u, Store: store, Self: self, Offsets: offsets}
	q := []complex128{complex(1.0, 0), complex(0, 0)}
	v, err := op.Apply(q)
	require.NoError(t, err)
	require.Len(t, v, 2)
	// b carries no charge of its own, but a's unit charge couples into it
	// through the generated link, so b's potential should be nonzero.
	assert.NotEqual(t, complex(0, 0), v[1])
}
