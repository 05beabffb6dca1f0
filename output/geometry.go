// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package output

import (
	"bytes"
	"path"

	"github.com/cpmech/gosl/io"

	"github.com/ediloren/fastercap-core/errs"
	"github.com/ediloren/fastercap-core/geom"
)

// PanelGroup is the refined leaf geometry of one (conductor, outer-
// permittivity) group, the unit spec.md §4.9's geometry dump iterates over
// ("one file per (conductor, outer-permittivity) pair").
type PanelGroup struct {
	Conductor string
	OuterPerm complex128
	Tris      []geom.Triangle
	Segs      []geom.Segment
}

// DumpGeometry writes one directive-format file per group in dir, plus a
// master list file naming them all, mirroring the grammar parser.Parse
// reads (spec.md §4.9, §6).
func DumpGeometry(dir string, groups []PanelGroup) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.New(errs.FileError, "cannot dump geometry to %q: %v", dir, r)
		}
	}()
	var master bytes.Buffer
	io.Ff(&master, "* refined geometry master list\n")
	for i, g := range groups {
		fn := io.Sf("%s_%03d.fastcap", sanitizeName(g.Conductor), i)
		var buf bytes.Buffer
		io.Ff(&buf, "* refined geometry for conductor %s\n", g.Conductor)
		for _, t := range g.Tris {
			io.Ff(&buf, "T %s %.12e %.12e %.12e %.12e %.12e %.12e %.12e %.12e %.12e\n",
				g.Conductor,
				t.V[0][0], t.V[0][1], t.V[0][2],
				t.V[1][0], t.V[1][1], t.V[1][2],
				t.V[2][0], t.V[2][1], t.V[2][2])
		}
		for _, s := range g.Segs {
			io.Ff(&buf, "S %s %.12e %.12e %.12e %.12e\n", g.Conductor, s.A[0], s.A[1], s.B[0], s.B[1])
		}
		io.Ff(&buf, "E\n")
		full := path.Join(dir, fn)
		io.WriteFile(full, &buf)
		io.Ff(&master, "C %s %s 0 0 0\n", fn, formatPerm(g.OuterPerm))
	}
	io.Ff(&master, "E\n")
	io.WriteFile(path.Join(dir, "master.lst"), &master)
	return nil
}

func sanitizeName(name string) string {
	out := []byte(name)
	for i, c := range out {
		if c == '/' || c == ' ' {
			out[i] = '_'
		}
	}
	return string(out)
}

func formatPerm(p complex128) string {
	if imag(p) == 0 {
		return io.Sf("%.6g", real(p))
	}
	if imag(p) < 0 {
		return io.Sf("%.6g-j%.6g", real(p), -imag(p))
	}
	return io.Sf("%.6g+j%.6g", real(p), imag(p))
}
