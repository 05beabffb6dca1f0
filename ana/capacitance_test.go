// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ana

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParallelPlatesMatchesScenarioOrderOfMagnitude(t *testing.T) {
	c11, c12 := ParallelPlates(1.0, 1.0, 1.0)
	assert.InDelta(t, 1.42*Eps0, c11, 0.5*Eps0) // plane estimate, fringing not modelled here
	assert.InDelta(t, -1.1*Eps0, c12, 0.5*Eps0)
	assert.Less(t, c12, 0.0)
}

func TestConcentricSpheresMatchesClosedForm(t *testing.T) {
	c := ConcentricSpheres(1.0, 2.0, 1.0)
	assert.InDelta(t, 8*math.Pi*Eps0, c, 1e-6*Eps0)
}

func TestCoaxialCylinders2DMatchesClosedForm(t *testing.T) {
	c := CoaxialCylinders2D(1.0, 2.0, 1.0)
	assert.InDelta(t, 2*math.Pi*Eps0/math.Log(2), c, 1e-6*Eps0)
}

func TestCubeSelfCapacitanceUsesTabulatedCoefficient(t *testing.T) {
	c := CubeSelfCapacitance(1.0)
	assert.InDelta(t, 0.6606782*4*math.Pi*Eps0, c, 1e-9)
}

func TestMergedSelfCapacitanceSumsPlusTwiceMutual(t *testing.T) {
	got := MergedSelfCapacitance(2.0, 3.0, -0.5)
	assert.InDelta(t, 4.0, got, 1e-12)
}
