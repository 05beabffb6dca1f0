// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package link

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// pointerRecordBytes is the on-disk size of one pointer record (spec.md §6: "an
// 8-byte pointer for link files"). Each coefficient is stored as two
// consecutive 8-byte IEEE-754 doubles (real, imag): the source's format
// stores one double per real-only coefficient, generalized here to the
// complex case the rest of this module supports.
const pointerRecordBytes = 8
const coeffRecordBytes = 16

// oocState pages a Store's chunks between memory and per-chunk temporary
// files, keeping only one block (a contiguous run of chunks) resident at a
// time (spec.md §4.4/§5).
type oocState struct {
	dir             string
	chunkLens       []int
	linkPaths       []string // frcl<hex>.tmp per chunk
	coeffPaths      []string // frcp<hex>.tmp per chunk
	residentStart   int      // first chunk index of the resident block, -1 if none
	blockSizeChunks int
}

// newOOCState creates one pair of temp files per chunk (named per spec.md
// §6); it writes no chunk contents into them.
func newOOCState(dir string, nchunks, _ int) (*oocState, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	o := &oocState{dir: dir, residentStart: -1}
	o.chunkLens = make([]int, nchunks)
	o.linkPaths = make([]string, nchunks)
	o.coeffPaths = make([]string, nchunks)
	for i := 0; i < nchunks; i++ {
		lp, err := createUniqueTemp(dir, "frcl", ".tmp")
		if err != nil {
			return nil, err
		}
		cp, err := createUniqueTemp(dir, "frcp", ".tmp")
		if err != nil {
			return nil, err
		}
		o.linkPaths[i] = lp
		o.coeffPaths[i] = cp
	}
	return o, nil
}

// createUniqueTemp books a unique temp file name using O_CREATE|O_EXCL with
// retry-on-collision (spec.md §9 design note: "use O_CREAT|O_EXCL atomic
// creation plus retry-with-random-suffix to 'book' the name").
func createUniqueTemp(dir, prefix, ext string) (string, error) {
	const maxAttempts = 64
	for attempt := 0; attempt < maxAttempts; attempt++ {
		suffix, err := randomHex(8)
		if err != nil {
			return "", err
		}
		path := filepath.Join(dir, prefix+suffix+ext)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
		if err == nil {
			f.Close()
			return path, nil
		}
		if !os.IsExist(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("could not book a unique temp file name under %s after %d attempts", dir, maxAttempts)
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", buf), nil
}

// persistChunk writes chunk i's current in-memory content to its temp
// files.
func (o *oocState) persistChunk(i int, chunk Chunk) error {
	lf, err := os.OpenFile(o.linkPaths[i], os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer lf.Close()
	cf, err := os.OpenFile(o.coeffPaths[i], os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer cf.Close()

	lbuf := make([]byte, len(chunk)*pointerRecordBytes)
	cbuf := make([]byte, len(chunk)*coeffRecordBytes)
	for j, e := range chunk {
		binary.LittleEndian.PutUint64(lbuf[j*pointerRecordBytes:], e.Peer.Encode())
		binary.LittleEndian.PutUint64(cbuf[j*coeffRecordBytes:], math.Float64bits(real(e.Coeff)))
		binary.LittleEndian.PutUint64(cbuf[j*coeffRecordBytes+8:], math.Float64bits(imag(e.Coeff)))
	}
	if _, err := lf.Write(lbuf); err != nil {
		return err
	}
	if _, err := cf.Write(cbuf); err != nil {
		return err
	}
	o.chunkLens[i] = len(chunk)
	return nil
}

// loadChunk reads chunk i back from its temp files.
func (o *oocState) loadChunk(i int) (Chunk, error) {
	n := o.chunkLens[i]
	chunk := make(Chunk, n)
	if n == 0 {
		return chunk, nil
	}
	lbuf, err := os.ReadFile(o.linkPaths[i])
	if err != nil {
		return nil, err
	}
	cbuf, err := os.ReadFile(o.coeffPaths[i])
	if err != nil {
		return nil, err
	}
	for j := 0; j < n; j++ {
		ptr := binary.LittleEndian.Uint64(lbuf[j*pointerRecordBytes:])
		re := math.Float64frombits(binary.LittleEndian.Uint64(cbuf[j*coeffRecordBytes:]))
		im := math.Float64frombits(binary.LittleEndian.Uint64(cbuf[j*coeffRecordBytes+8:]))
		chunk[j] = Entry{Peer: DecodePeer(ptr), Coeff: complex(re, im)}
	}
	return chunk, nil
}

// fault ensures chunkIdx's containing block is resident in s.chunks,
// evicting (with a write-back) the previously resident block first. Block
// faults scan link slices sequentially (owners are visited in arena
// order), so eviction is predictable, per spec.md §4.4.
func (o *oocState) fault(s *Store, chunkIdx int) {
	blockStart := (chunkIdx / o.blockSizeChunks) * o.blockSizeChunks
	if blockStart == o.residentStart {
		return
	}
	if o.residentStart >= 0 {
		end := o.residentStart + o.blockSizeChunks
		if end > len(s.chunks) {
			end = len(s.chunks)
		}
		for i := o.residentStart; i < end; i++ {
			if s.chunks[i] != nil {
				_ = o.persistChunk(i, s.chunks[i])
				s.chunks[i] = nil
			}
		}
	}
	end := blockStart + o.blockSizeChunks
	if end > len(s.chunks) {
		end = len(s.chunks)
	}
	for i := blockStart; i < end; i++ {
		chunk, err := o.loadChunk(i)
		if err != nil {
			// A read failure here means the temp file vanished out from
			// under us; fall back to a fresh empty chunk rather than
			// panicking out of a hot matvec/fill loop.
			chunk = make(Chunk, o.chunkLens[i])
		}
		s.chunks[i] = chunk
	}
	o.residentStart = blockStart
}

// close removes every temp file; it does not persist the resident block.
func (o *oocState) close() error {
	var firstErr error
	for i := range o.linkPaths {
		if err := os.Remove(o.linkPaths[i]); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
		if err := os.Remove(o.coeffPaths[i]); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
