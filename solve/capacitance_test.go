// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ediloren/fastercap-core/cond"
)

func twoConductors() []*cond.Conductor {
	a := &cond.Conductor{Name: "A", OuterPerm: 1, NumLeaf: 2, ChargeOffset: 0}
	b := &cond.Conductor{Name: "B", OuterPerm: 1, NumLeaf: 1, ChargeOffset: 2}
	return []*cond.Conductor{a, b}
}

func TestAssembleColumnSumsChargePerConductor(t *testing.T) {
	conductors := twoConductors()
	c := newCapacitance(conductorNames(conductors), false)
	q := []complex128{complex(1, 0), complex(2, 0), complex(-3, 0)}
	AssembleColumn(c, conductors, q, 0)
	assert.InDelta(t, 3.0, c.Real[0][0], 1e-12)
	assert.InDelta(t, -3.0, c.Real[1][0], 1e-12)
}

func TestAssembleColumnKeepsImaginaryPartForComplexProblems(t *testing.T) {
	conductors := twoConductors()
	c := newCapacitance(conductorNames(conductors), true)
	q := []complex128{complex(1, 1), complex(0, 0), complex(0, 2)}
	AssembleColumn(c, conductors, q, 1)
	assert.InDelta(t, 1.0, c.Real[0][1], 1e-12)
	assert.InDelta(t, 1.0, c.Imag[0][1], 1e-12)
	assert.InDelta(t, 0.0, c.Real[1][1], 1e-12)
	assert.InDelta(t, 2.0, c.Imag[1][1], 1e-12)
}

func TestFrobeniusDeltaIsOneOnFirstIteration(t *testing.T) {
	c := newCapacitance([]string{"A"}, false)
	assert.Equal(t, 1.0, FrobeniusDelta(nil, c))
}

func TestFrobeniusDeltaShrinksAsMatricesConverge(t *testing.T) {
	prev := newCapacitance([]string{"A", "B"}, false)
	prev.Real = [][]float64{{10, -1}, {-1, 8}}
	cur := newCapacitance([]string{"A", "B"}, false)
	cur.Real = [][]float64{{10.5, -1.1}, {-1.1, 8.2}}
	delta := FrobeniusDelta(prev, cur)
	assert.Greater(t, delta, 0.0)

	closer := newCapacitance([]string{"A", "B"}, false)
	closer.Real = [][]float64{{10.01, -1.01}, {-1.01, 8.01}}
	deltaCloser := FrobeniusDelta(prev, closer)
	assert.Less(t, deltaCloser, delta)
}
