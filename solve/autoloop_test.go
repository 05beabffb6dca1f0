// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ediloren/fastercap-core/cond"
	"github.com/ediloren/fastercap-core/config"
	"github.com/ediloren/fastercap-core/geom"
	"github.com/ediloren/fastercap-core/potential"
	"github.com/ediloren/fastercap-core/runctx"
	"github.com/ediloren/fastercap-core/tree"
)

func unitSquarePlate(z float64) *tree.Tree {
	tri1 := geom.Triangle{V: [3]geom.Vec3{{0, 0, z}, {1, 0, z}, {1, 1, z}}}
	tri2 := geom.Triangle{V: [3]geom.Vec3{{0, 0, z}, {1, 1, z}, {0, 1, z}}}
	return tree.Build(false, []geom.Shape{geom.Tri3{Triangle: tri1}, geom.Tri3{Triangle: tri2}})
}

func twoPlateRegistry() *cond.Registry {
	r := cond.NewRegistry()
	a := &cond.Conductor{Name: "A", OuterPerm: 1, DielRefPoint: geom.Vec3{0, 0, -1}, Root: unitSquarePlate(0)}
	b := &cond.Conductor{Name: "B", OuterPerm: 1, DielRefPoint: geom.Vec3{0, 0, 2}, Root: unitSquarePlate(1)}
	r.Add(a)
	r.Add(b)
	return r
}

func oneOuterIterationParams() *config.Params {
	p := config.Default()
	p.Precond.Mode = config.PrecondNone
	p.GMRES.Tolerance = 1e-2
	p.GMRES.MaxIters = 50
	p.AutoLoop.MaxIterations = 1
	return p
}

func TestRunProducesSymmetricCapacitanceForTwoPlates(t *testing.T) {
	rc := runctx.NewDefault(false)
	registry := twoPlateRegistry()
	kernel := potential.NewCollocation()
	params := oneOuterIterationParams()

	res, err := Run(rc, registry, kernel, params, Options{TempDir: t.TempDir()})
	require.NoError(t, err)
	require.NotNil(t, res.Capacitance)
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, []string{"A", "B"}, res.Capacitance.Names)

	c := res.Capacitance
	assert.InDelta(t, c.Real[0][1], c.Real[1][0], 1e-6)
	assert.Less(t, c.Real[0][1], 0.0)
	assert.Greater(t, c.Real[0][0], 0.0)
	assert.Greater(t, c.Real[1][1], 0.0)
}

func TestRunStopsAtIterationCapWhenNotConverged(t *testing.T) {
	rc := runctx.NewDefault(false)
	registry := twoPlateRegistry()
	kernel := potential.NewCollocation()
	params := oneOuterIterationParams()
	params.AutoLoop.MaxError = 0 // unreachable, forces the iteration-cap exit path

	res, err := Run(rc, registry, kernel, params, Options{TempDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, StateDone, res.State)
}
