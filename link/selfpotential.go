// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package link

import "github.com/ediloren/fastercap-core/tree"

// SelfPotentials holds the two dense length-N_leaves vectors of spec.md §3:
// real and imaginary diagonal coefficients, kept separate from off-diagonal
// links "so that a Jacobi preconditioner is always available and so that
// they are never paged to disk."
type SelfPotentials struct {
	Real, Imag []float64
}

// NewSelfPotentials allocates a SelfPotentials sized for n leaves.
func NewSelfPotentials(n int) *SelfPotentials {
	return &SelfPotentials{Real: make([]float64, n), Imag: make([]float64, n)}
}

// At returns the complex self-coefficient for leaf sequence index i.
func (s *SelfPotentials) At(i int) complex128 {
	return complex(s.Real[i], s.Imag[i])
}

// Set stores the self-coefficient for leaf sequence index i.
func (s *SelfPotentials) Set(i int, v complex128) {
	s.Real[i] = real(v)
	s.Imag[i] = imag(v)
}

// LeafGlobalIndex maps a leaf's (conductor charge offset + local leaf
// sequence) to its position in the combined charge/self-potential vectors.
func LeafGlobalIndex(chargeOffset int, leafSeq int32) int {
	return chargeOffset + int(leafSeq)
}

// EnsureLinearized is a small convenience so callers never forget to
// (re)compute LeafSeq numbers before indexing SelfPotentials — the leaf
// sequence is only valid immediately after Tree.Linearize/Build.
func EnsureLinearized(t *tree.Tree) {
	t.Linearize()
}
