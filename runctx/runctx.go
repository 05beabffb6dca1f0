// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package runctx provides the RunContext handle threaded through every core
// call in place of process-global state (spec.md §9 design note: "Global
// mutable state ... inject a RunContext handle through every call"). It
// carries the cooperative cancellation flag, per-subsystem memory counters,
// and the two logging callbacks the source calls LogMsg/ErrMsg.
package runctx

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Level mirrors the verbosity levels the source's LogMsg/ErrMsg accept.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelVerbose
)

// Record is the structured message passed to the injected callbacks.
type Record struct {
	Level Level
	Text  string
}

// Subsystem names a memory counter bucket (spec.md §9: "per-subsystem
// memory counters").
type Subsystem int

const (
	SubsystemMesh Subsystem = iota
	SubsystemLinks
	SubsystemPrecond
	SubsystemGMRES
	subsystemCount
)

func (s Subsystem) String() string {
	switch s {
	case SubsystemMesh:
		return "mesh"
	case SubsystemLinks:
		return "links"
	case SubsystemPrecond:
		return "precond"
	case SubsystemGMRES:
		return "gmres"
	default:
		return "unknown"
	}
}

// RunContext is passed by pointer through every subsystem. It is safe for
// concurrent use: Cancel/Cancelled use an atomic flag and the memory
// counters use atomic adds, matching the "no process-global statics"
// design note while still being reachable from the matvec fork-join region.
type RunContext struct {
	cancelled atomic.Bool
	memBytes  [subsystemCount]atomic.Int64

	// LogMsg and ErrMsg model the source's two injected UI callbacks.
	// NewDefault sets both to write through slog; a nil callback drops its
	// records.
	LogMsg func(Record)
	ErrMsg func(Record)

	Verbose bool
}

// NewDefault returns a RunContext that logs through the standard slog
// logger — the idiomatic replacement for the teacher's io.Pf*/gosl-era
// console colour helpers.
func NewDefault(verbose bool) *RunContext {
	rc := &RunContext{Verbose: verbose}
	rc.LogMsg = func(r Record) { rc.logSlog(slog.LevelInfo, r) }
	rc.ErrMsg = func(r Record) { rc.logSlog(slog.LevelError, r) }
	return rc
}

func (rc *RunContext) logSlog(base slog.Level, r Record) {
	if r.Level == LevelVerbose && !rc.Verbose {
		return
	}
	lvl := base
	if r.Level == LevelWarn {
		lvl = slog.LevelWarn
	}
	slog.Log(nil, lvl, r.Text)
}

// Log emits an info-level record.
func (rc *RunContext) Log(format string, args ...any) {
	if rc.LogMsg != nil {
		rc.LogMsg(Record{Level: LevelInfo, Text: fmt.Sprintf(format, args...)})
	}
}

// Warn emits a warning-level record through ErrMsg, matching the source's
// habit of surfacing numerical anomalies as non-fatal warnings (spec.md §7).
func (rc *RunContext) Warn(format string, args ...any) {
	if rc.ErrMsg != nil {
		rc.ErrMsg(Record{Level: LevelWarn, Text: fmt.Sprintf(format, args...)})
	}
}

// VerboseLog emits only when rc.Verbose is set.
func (rc *RunContext) VerboseLog(format string, args ...any) {
	if rc.LogMsg != nil {
		rc.LogMsg(Record{Level: LevelVerbose, Text: fmt.Sprintf(format, args...)})
	}
}

// Cancel trips the cooperative cancel flag. Safe to call from any goroutine.
func (rc *RunContext) Cancel() { rc.cancelled.Store(true) }

// Cancelled reports whether Cancel has been called. Polled at every
// suspension point enumerated in spec.md §5.
func (rc *RunContext) Cancelled() bool { return rc.cancelled.Load() }

// AddMem adds delta bytes (may be negative, on free) to a subsystem's
// memory counter.
func (rc *RunContext) AddMem(s Subsystem, delta int64) {
	rc.memBytes[s].Add(delta)
}

// Mem reads a subsystem's current memory counter.
func (rc *RunContext) Mem(s Subsystem) int64 {
	return rc.memBytes[s].Load()
}
