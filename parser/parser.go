// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package parser

import (
	"strconv"
	"strings"

	"github.com/cpmech/gosl/io"

	"github.com/ediloren/fastercap-core/errs"
	"github.com/ediloren/fastercap-core/geom"
)

// Parse reads path and feeds every directive it contains to sink, in file
// order, stopping at the first E/e directive or at end of file (spec.md
// §6: the deck is a flat sequence of C/D/T/Q/S/N/F/E lines, comments
// starting with '*' or '%', blank lines ignored).
func Parse(path string, sink Sink) error {
	b, err := io.ReadFile(path)
	if err != nil {
		return errs.Wrap(errs.CannotOpenFile, err, "cannot read %q", path)
	}
	return parseBytes(b, sink)
}

func parseBytes(b []byte, sink Sink) (err error) {
	lines := strings.Split(string(b), "\n")
	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "*") || strings.HasPrefix(line, "%") {
			continue
		}
		d, perr := parseLine(line, lineNo)
		if perr != nil {
			return perr
		}
		if d == nil {
			continue
		}
		if serr := sink.Accept(d); serr != nil {
			return serr
		}
		if _, isEnd := d.(End); isEnd {
			return nil
		}
	}
	return nil
}

// parseLine tokenizes and type-checks one non-blank, non-comment line.
// Malformed numeric fields are reported as errs.FileError rather than
// propagated as a panic: io.Atof/io.Atob abort on bad input in the
// corpus's own usage (fem/keycodes.go, fem/essenbcs.go), which this
// package cannot allow to cross into a caller driving a long-running
// extraction (spec.md §7: the caller must check and unwind).
func parseLine(line string, lineNo int) (d Directive, err error) {
	defer func() {
		if r := recover(); r != nil {
			d = nil
			err = errs.New(errs.FileError, "line %d: malformed field: %v", lineNo, r)
		}
	}()

	fields := strings.Fields(line)
	key := fields[0]
	switch key {
	case "C", "c":
		return parseConductorInclude(fields, lineNo), nil
	case "D", "d":
		return parseDielectricInclude(fields, lineNo), nil
	case "T", "t":
		return parseTriangle(fields, lineNo), nil
	case "Q", "q":
		return parseQuad(fields, lineNo), nil
	case "S", "s":
		return parseSegment(fields, lineNo), nil
	case "N", "n":
		if len(fields) < 3 {
			return nil, errs.New(errs.FileError, "line %d: N directive needs old and new names", lineNo)
		}
		return Rename{Old: fields[1], New: fields[2], Line: lineNo}, nil
	case "F", "f":
		if len(fields) < 2 {
			return nil, errs.New(errs.FileError, "line %d: F directive needs a filename", lineNo)
		}
		return AnchorFile{Name: fields[1], Line: lineNo}, nil
	case "E", "e":
		return End{Line: lineNo}, nil
	default:
		return nil, errs.New(errs.FileError, "line %d: unrecognized directive %q", lineNo, key)
	}
}

func parseConductorInclude(f []string, lineNo int) ConductorInclude {
	merge := false
	if f[len(f)-1] == "+" {
		merge = true
		f = f[:len(f)-1]
	}
	return ConductorInclude{
		File:          f[1],
		OuterPerm:     ParsePermittivity(f[2]),
		Offset:        geom.Vec3{io.Atof(f[3]), io.Atof(f[4]), io.Atof(f[5])},
		MergeWithNext: merge,
		Line:          lineNo,
	}
}

func parseDielectricInclude(f []string, lineNo int) DielectricInclude {
	swap := false
	if f[len(f)-1] == "-" {
		swap = true
		f = f[:len(f)-1]
	}
	return DielectricInclude{
		File:      f[1],
		OuterPerm: ParsePermittivity(f[2]),
		InnerPerm: ParsePermittivity(f[3]),
		Offset:    geom.Vec3{io.Atof(f[4]), io.Atof(f[5]), io.Atof(f[6])},
		RefPoint:  geom.Vec3{io.Atof(f[7]), io.Atof(f[8]), io.Atof(f[9])},
		SwapInOut: swap,
		Line:      lineNo,
	}
}

func parseTriangle(f []string, lineNo int) Triangle {
	cond := f[1]
	v := readVec3s(f[2:], 3)
	t := Triangle{Conductor: cond, Tri: geom.Triangle{V: [3]geom.Vec3{v[0], v[1], v[2]}}, Line: lineNo}
	if rest := f[2+9:]; len(rest) >= 3 {
		t.HasRef = true
		t.Ref = geom.Vec3{io.Atof(rest[0]), io.Atof(rest[1]), io.Atof(rest[2])}
	}
	return t
}

func parseQuad(f []string, lineNo int) Quad {
	cond := f[1]
	v := readVec3s(f[2:], 4)
	q := Quad{Conductor: cond, Quad: geom.Quad{V: [4]geom.Vec3{v[0], v[1], v[2], v[3]}}, Line: lineNo}
	if rest := f[2+12:]; len(rest) >= 3 {
		q.HasRef = true
		q.Ref = geom.Vec3{io.Atof(rest[0]), io.Atof(rest[1]), io.Atof(rest[2])}
	}
	return q
}

func parseSegment(f []string, lineNo int) Segment {
	cond := f[1]
	a := geom.Vec2{io.Atof(f[2]), io.Atof(f[3])}
	bv := geom.Vec2{io.Atof(f[4]), io.Atof(f[5])}
	s := Segment{Conductor: cond, Seg: geom.Segment{A: a, B: bv}, Line: lineNo}
	if rest := f[6:]; len(rest) >= 2 {
		s.HasRef = true
		s.Ref = geom.Vec3{io.Atof(rest[0]), io.Atof(rest[1]), 0}
	}
	return s
}

// readVec3s reads n consecutive (x,y,z) triples starting at fields[0].
func readVec3s(fields []string, n int) []geom.Vec3 {
	out := make([]geom.Vec3, n)
	for i := 0; i < n; i++ {
		base := i * 3
		out[i] = geom.Vec3{io.Atof(fields[base]), io.Atof(fields[base+1]), io.Atof(fields[base+2])}
	}
	return out
}

// ParsePermittivity parses the `a`, `a+jb` or `a-jb` complex-permittivity
// grammar of spec.md §6. A bare real value yields a zero imaginary part.
func ParsePermittivity(s string) complex128 {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, "jJ") {
		return complex(io.Atof(s), 0)
	}
	sign := 1.0
	splitAt := strings.LastIndexAny(s, "+-")
	if splitAt <= 0 {
		// leading sign only, e.g. "-3j" with no real part
		return complex(0, parseImagPart(s))
	}
	reStr := s[:splitAt]
	imStr := s[splitAt:]
	if strings.HasPrefix(imStr, "-") {
		sign = -1
	}
	re := io.Atof(reStr)
	im := sign * parseImagPart(imStr[1:])
	return complex(re, im)
}

func parseImagPart(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSuffix(s, "j"), "J")
	s = strings.TrimPrefix(s, "j")
	s = strings.TrimPrefix(s, "J")
	if s == "" {
		return 1
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		panic(err)
	}
	return v
}
