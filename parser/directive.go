// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package parser implements the input-geometry directive grammar of
// spec.md §6: a line-oriented ASCII format whose directives are handed,
// one at a time, to a caller-supplied Sink. It does not itself build
// conductors or trees — spec.md §1 scopes that to the core's collaborator
// contract — it only tokenizes and type-checks each line.
package parser

import "github.com/ediloren/fastercap-core/geom"

// Directive is the sealed variant over every recognized input-deck line
// (spec.md §9 design note: a small set of cases rather than a class
// hierarchy). A Sink type-switches over the concrete cases it cares about.
type Directive interface {
	isDirective()
}

// ConductorInclude is a `C <file> <outerperm> <x> <y> <z> [+]` directive.
type ConductorInclude struct {
	File          string
	OuterPerm     complex128
	Offset        geom.Vec3
	MergeWithNext bool // trailing '+'
	Line          int
}

// DielectricInclude is a `D <file> <outer> <inner> <x> <y> <z> <refx> <refy> <refz> [-]` directive.
type DielectricInclude struct {
	File       string
	OuterPerm  complex128
	InnerPerm  complex128
	Offset     geom.Vec3
	RefPoint   geom.Vec3
	SwapInOut  bool // trailing '-'
	Line       int
}

// Triangle is a `T <cond> x1 y1 z1 x2 y2 z2 x3 y3 z3 [refx refy refz]` directive.
type Triangle struct {
	Conductor string
	Tri       geom.Triangle
	HasRef    bool
	Ref       geom.Vec3
	Line      int
}

// Quad is a `Q <cond> x1..z4 [refx refy refz]` directive.
type Quad struct {
	Conductor string
	Quad      geom.Quad
	HasRef    bool
	Ref       geom.Vec3
	Line      int
}

// Segment is an `S <cond> x1 y1 x2 y2 [refx refy]` directive (2D input).
type Segment struct {
	Conductor string
	Seg       geom.Segment
	HasRef    bool
	Ref       geom.Vec3
	Line      int
}

// Rename is an `N <old> <new>` directive.
type Rename struct {
	Old, New string
	Line     int
}

// AnchorFile is an `F <filename>` directive anchoring in-line content so
// later C/D directives can reference it by name instead of re-reading a
// file from disk.
type AnchorFile struct {
	Name string
	Line int
}

// End is the `E`/`e` end-of-file directive.
type End struct {
	Line int
}

func (ConductorInclude) isDirective()  {}
func (DielectricInclude) isDirective() {}
func (Triangle) isDirective()          {}
func (Quad) isDirective()              {}
func (Segment) isDirective()           {}
func (Rename) isDirective()            {}
func (AnchorFile) isDirective()        {}
func (End) isDirective()               {}

// Sink receives directives in file order as Parse walks the deck. Returning
// a non-nil error aborts the parse; Parse wraps it with the offending line
// number if the Sink did not already attach one via errs.
type Sink interface {
	Accept(d Directive) error
}
