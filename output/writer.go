// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package output

import (
	"bytes"

	"github.com/cpmech/gosl/io"

	"github.com/ediloren/fastercap-core/errs"
)

// PrintTable renders m as an aligned text table with conductor row/column
// labels, matching the teacher's fixed-width field convention (spec.md
// §4.9: "prints C_k with row labels equal to conductor names").
func PrintTable(m Matrix) string {
	var buf bytes.Buffer
	n := len(m.Names)
	io.Ff(&buf, "%16s", "")
	for j := 0; j < n; j++ {
		io.Ff(&buf, "%16s", m.Names[j])
	}
	io.Ff(&buf, "\n")
	for i := 0; i < n; i++ {
		io.Ff(&buf, "%16s", m.Names[i])
		for j := 0; j < n; j++ {
			if m.Complex == nil {
				io.Ff(&buf, "%16.6e", m.Real[i][j])
			} else {
				io.Ff(&buf, "%7.3e%+7.3ej", m.Real[i][j], m.Complex[i][j])
			}
		}
		io.Ff(&buf, "\n")
	}
	return buf.String()
}

// WriteCSV writes m to path as a comma-separated copy, one header row of
// conductor names followed by one data row per conductor (spec.md §4.9:
// "on request, writes a CSV copy"). io.WriteFile aborts the process on an
// unwritable path in the corpus's own usage (tools/PlotLrm.go), so the
// write is wrapped in a recover and reported as errs.FileError instead.
func WriteCSV(path string, m Matrix) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.New(errs.FileError, "cannot write CSV %q: %v", path, r)
		}
	}()
	var buf bytes.Buffer
	for j, name := range m.Names {
		if j > 0 {
			io.Ff(&buf, ",")
		}
		io.Ff(&buf, "%s", name)
	}
	io.Ff(&buf, "\n")
	for i := range m.Names {
		for j := range m.Names {
			if j > 0 {
				io.Ff(&buf, ",")
			}
			if m.Complex == nil {
				io.Ff(&buf, "%.12e", m.Real[i][j])
			} else {
				io.Ff(&buf, "%.12e%+.12ej", m.Real[i][j], m.Complex[i][j])
			}
		}
		io.Ff(&buf, "\n")
	}
	io.WriteFile(path, &buf)
	return nil
}
