// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package invariant holds the small panic helper used for conditions that
// indicate a bug in the core itself (a malformed tree, a nil child) rather
// than a data- or resource-dependent failure. Such conditions are never
// data dependent, so they are not modeled as errs.Error: spec.md reserves
// returned errors for long-running, resource-dependent routines and panics
// for "this should never happen" assertions, matching the teacher's
// chk.Panic idiom. Never used across a goroutine boundary.
package invariant

import "fmt"

// Check panics with a formatted message if cond is false.
func Check(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

// Fail panics unconditionally with a formatted message.
func Fail(format string, args ...any) {
	panic(fmt.Sprintf(format, args...))
}
