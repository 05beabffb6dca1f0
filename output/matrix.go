// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package output implements the emitter of spec.md §4.9: printing the
// capacitance matrix with conductor row labels, flagging the diagonal-
// dominance and off-diagonal-sign properties of spec.md §8, and, on
// request, writing a CSV copy and a geometry dump.
package output

import (
	"math"

	"github.com/ediloren/fastercap-core/solve"
)

// Matrix is the row-labeled capacitance matrix handed to an emitter.
// Complex is nil for a real-permittivity problem (spec.md §6: "an N×N
// real matrix for real-permittivity problems; an N×N complex matrix
// otherwise").
type Matrix struct {
	Names   []string
	Real    [][]float64
	Complex [][]float64 // imaginary part, parallel to Real; nil if real-only
}

// FromCapacitance adapts a solve.Capacitance into the emitter's view.
func FromCapacitance(c *solve.Capacitance) Matrix {
	return Matrix{Names: c.Names, Real: c.Real, Complex: c.Imag}
}

// Warning is a single diagnostic raised by Check.
type Warning struct {
	Row int // conductor index the warning concerns
	Msg string
}

// Check evaluates the two warning-only invariants of spec.md §8 (5 and 6)
// against m: diagonal dominance per row, and off-diagonal sign. Neither
// failure aborts anything — the caller decides whether to print, log, or
// ignore the returned warnings.
func Check(m Matrix) []Warning {
	var warnings []Warning
	n := len(m.Names)
	for i := 0; i < n; i++ {
		diag := magnitude(m, i, i)
		var offSum float64
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			offSum += magnitude(m, i, j)
			if m.Real[i][j] > 0 {
				warnings = append(warnings, Warning{Row: i, Msg: "C[" + m.Names[i] + "][" + m.Names[j] + "] is positive, expected <= 0"})
			}
		}
		if diag < offSum {
			warnings = append(warnings, Warning{Row: i, Msg: "row " + m.Names[i] + " is not diagonally dominant"})
		}
	}
	return warnings
}

func magnitude(m Matrix, i, j int) float64 {
	re := m.Real[i][j]
	if m.Complex == nil {
		return math.Abs(re)
	}
	return math.Hypot(re, m.Complex[i][j])
}
