// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cond

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRoot struct{ n int }

func (f fakeRoot) LeafCount() int { return f.n }

func TestRegistryOrderingDielectricsFirst(t *testing.T) {
	r := NewRegistry()
	r.Add(&Conductor{Name: "A", NumLeaf: 3})
	r.Add(&Conductor{Name: "D1", IsDielectric: true, NumLeaf: 2})
	r.Add(&Conductor{Name: "B", NumLeaf: 5})

	all := r.All()
	require.Len(t, all, 3)
	assert.True(t, all[0].IsDielectric)
	assert.False(t, all[1].IsDielectric)
	assert.False(t, all[2].IsDielectric)
}

func TestAssignChargeOffsets(t *testing.T) {
	r := NewRegistry()
	d := &Conductor{Name: "D1", IsDielectric: true, NumLeaf: 2}
	a := &Conductor{Name: "A", NumLeaf: 3}
	b := &Conductor{Name: "B", NumLeaf: 5}
	r.Add(d)
	r.Add(a)
	r.Add(b)
	r.AssignChargeOffsets()

	assert.Equal(t, 0, d.ChargeOffset)
	assert.Equal(t, 2, a.ChargeOffset)
	assert.Equal(t, 5, b.ChargeOffset)
}

func TestRenameMergesWhenTargetExists(t *testing.T) {
	r := NewRegistry()
	a := &Conductor{Name: "A", NumLeaf: 3}
	b := &Conductor{Name: "B", NumLeaf: 5}
	r.Add(a)
	r.Add(b)

	surviving, merged, err := r.Rename("A", "B")
	require.NoError(t, err)
	assert.True(t, merged)
	assert.Same(t, b, surviving)
	assert.Len(t, r.Conductors(), 1)
}

func TestRenamePlainRename(t *testing.T) {
	r := NewRegistry()
	a := &Conductor{Name: "A", NumLeaf: 3}
	r.Add(a)

	surviving, merged, err := r.Rename("A", "Z")
	require.NoError(t, err)
	assert.False(t, merged)
	assert.Equal(t, "Z", surviving.Name)
	_, ok := r.Lookup("A")
	assert.False(t, ok)
}

func TestAddOuterPermLimitsDistinctEntries(t *testing.T) {
	c := &Conductor{Name: "A"}
	for i := 0; i < 16; i++ {
		_, err := c.AddOuterPerm(complex(float64(i), 0))
		require.NoError(t, err)
	}
	_, err := c.AddOuterPerm(complex(99, 0))
	assert.Error(t, err)
}
