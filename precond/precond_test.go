// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package precond

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ediloren/fastercap-core/config"
	"github.com/ediloren/fastercap-core/geom"
	"github.com/ediloren/fastercap-core/link"
	"github.com/ediloren/fastercap-core/potential"
	"github.com/ediloren/fastercap-core/runctx"
	"github.com/ediloren/fastercap-core/tree"
)

func onePanel(z float64) *tree.Tree {
	tri := geom.Triangle{V: [3]geom.Vec3{{0, 0, z}, {1, 0, z}, {0, 1, z}}}
	return tree.Build(false, []geom.Shape{geom.Tri3{Triangle: tri}})
}

func TestJacobyInvertsSelfPotential(t *testing.T) {
	self := link.NewSelfPotentials(2)
	self.Set(0, complex(2, 0))
	self.Set(1, complex(4, 0))
	j := NewJacobi(runctx.NewDefault(false), self)

	out, err := j.Apply([]complex128{complex(6, 0), complex(8, 0)})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, real(out[0]), 1e-9)
	assert.InDelta(t, 2.0, real(out[1]), 1e-9)
}

func TestBlockPreconditionerSingleLeafIsExactInverseOfSelfPotential(t *testing.T) {
	a := onePanel(0)
	rc := runctx.NewDefault(false)
	kernel := potential.NewCollocation()
	offsets := map[*tree.Tree]int{a: 0}

	b, err := BuildBlock(rc, kernel, false, offsets, a.LeafCount(), 128)
	require.NoError(t, err)

	self, err := kernel.SelfPotential(toPotentialElement(&a.Nodes[a.Root]), potential.DefaultOptions(false))
	require.NoError(t, err)

	out, err := b.Apply([]complex128{complex(1, 0)})
	require.NoError(t, err)
	assert.InDelta(t, 1/real(self), real(out[0]), 1e-6)
}

func TestInvertDenseRoundTrips(t *testing.T) {
	m := [][]complex128{
		{complex(2, 0), complex(0, 0)},
		{complex(0, 0), complex(4, 0)},
	}
	inv, err := invertDense(m)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, real(inv[0][0]), 1e-9)
	assert.InDelta(t, 0.25, real(inv[1][1]), 1e-9)
}

func TestAutoSelectPicksJacobiBelowThreshold(t *testing.T) {
	rc := runctx.NewDefault(false)
	params := config.Default().Precond
	mode := AutoSelect(rc, params, 10, 2)
	assert.Equal(t, config.PrecondJacobi, mode)
}

func TestAutoSelectPicksSuperAboveThreshold(t *testing.T) {
	rc := runctx.NewDefault(false)
	params := config.Default().Precond
	mode := AutoSelect(rc, params, 10_000_000, 10)
	assert.Equal(t, config.PrecondTwoLevel, mode)
	assert.Equal(t, 1024, AutoSuperDim(params, 10_000_000, 10))
}
