// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package solve implements the auto-refinement loop controller of spec.md
// §4.8: it drives the mesher, link generator, preconditioner builder and
// GMRES driver in sequence, once per outer iteration, until the
// capacitance matrix stops changing beyond the user's tolerance. It also
// supplies the per-conductor excitation vector and the final capacitance
// assembly (spec.md §2 data flow).
package solve

// State is the auto-loop's explicit state machine (spec.md §9 design
// note: "model as an explicit enum ... avoids the goto-like flow in the
// source").
type State int

const (
	StateInit State = iota
	StateRefining
	StateSolving
	StateCheckConv
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateRefining:
		return "REFINING"
	case StateSolving:
		return "SOLVING"
	case StateCheckConv:
		return "CHECK_CONV"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}
