// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package link

import (
	"github.com/ediloren/fastercap-core/errs"
	"github.com/ediloren/fastercap-core/tree"
)

// Chunk is a fixed-size group of Entry records — spec.md §4.4's "fixed
// count (e.g., 2^20) of (coefficient, pointer) pairs". The last chunk of
// the store may be partially filled.
type Chunk []Entry

// Store holds every element's link slice, packed into Chunks and
// optionally paged to disk in Blocks (groups of chunks sized to fit an
// in-core budget, spec.md §4.4). Store owns the chunk memory; a tree
// element's LinkStart/LinkEnd fields index into the store's logical flat
// entry space (chunk index = pos/ChunkSize, offset = pos%ChunkSize).
type Store struct {
	Universe  *Universe
	ChunkSize int
	chunks    []Chunk

	ooc   *oocState // nil unless out-of-core mode is active
	blockSize int    // chunks per block, only meaningful in OOC mode

	// cursor[ownerKey] gives the next free write position within the
	// owner's [LinkStart,LinkEnd) range during the fill pass.
	cursor map[ownerKey]int32
}

type ownerKey struct {
	tree int32
	ref  tree.Ref
}

// NewStore allocates a Store with total capacity for n entries, split into
// ChunkSize-sized chunks. Capacity is fixed at construction: spec.md §4.4
// counts links in a first pass specifically so the total size is known
// before any chunk is allocated.
func NewStore(u *Universe, chunkSize, totalEntries int) *Store {
	if chunkSize <= 0 {
		chunkSize = 1 << 20
	}
	nchunks := (totalEntries + chunkSize - 1) / chunkSize
	if nchunks == 0 {
		nchunks = 0
	}
	s := &Store{
		Universe:  u,
		ChunkSize: chunkSize,
		chunks:    make([]Chunk, nchunks),
		cursor:    make(map[ownerKey]int32),
	}
	remaining := totalEntries
	for i := range s.chunks {
		n := chunkSize
		if remaining < n {
			n = remaining
		}
		s.chunks[i] = make(Chunk, n)
		remaining -= n
	}
	return s
}

// TotalEntries returns the store's fixed total capacity.
func (s *Store) TotalEntries() int {
	total := 0
	for _, c := range s.chunks {
		total += len(c)
	}
	return total
}

func (s *Store) entryAt(pos int32) *Entry {
	chunkIdx := int(pos) / s.ChunkSize
	off := int(pos) % s.ChunkSize
	if s.ooc != nil {
		s.ooc.fault(s, chunkIdx)
	}
	return &s.chunks[chunkIdx][off]
}

// entryAtResident indexes a position without ever triggering a fault: the
// caller must already have made the containing block resident via
// LoadBlock. Used by the parallel coefficient-fill phase, where concurrent
// calls into oocState.fault would race (spec.md §5: link-slice writes
// during generation are partitioned by owning node, but block residency
// itself is not — it is the one part of fill/apply that stays sequential).
func (s *Store) entryAtResident(pos int32) *Entry {
	chunkIdx := int(pos) / s.ChunkSize
	off := int(pos) % s.ChunkSize
	return &s.chunks[chunkIdx][off]
}

// Block is one contiguous span of logical positions that is resident in
// memory together, in OOC mode; in in-core mode the whole store is a single
// Block.
type Block struct {
	Index      int
	Start, End int32 // logical position range [Start,End)
}

// Blocks enumerates the store's block partition, in order. Callers walk
// this sequentially, calling LoadBlock before processing each one — the
// fan-out across nodes within a block may be parallel, but the blocks
// themselves must be visited in order so only one is ever resident.
func (s *Store) Blocks() []Block {
	total := int32(s.TotalEntries())
	if total == 0 {
		return nil
	}
	if s.ooc == nil {
		return []Block{{Index: 0, Start: 0, End: total}}
	}
	blocks := make([]Block, 0, (len(s.chunks)+s.blockSize-1)/s.blockSize)
	for start := 0; start < len(s.chunks); start += s.blockSize {
		end := start + s.blockSize
		if end > len(s.chunks) {
			end = len(s.chunks)
		}
		blocks = append(blocks, Block{
			Index: len(blocks),
			Start: int32(start * s.ChunkSize),
			End:   minI32(int32(end*s.ChunkSize), total),
		})
	}
	return blocks
}

// LoadBlock makes block b resident, evicting the previously resident block
// first (spec.md §4.4). A no-op when the store is not in OOC mode. b.Start
// is already block-aligned (Blocks partitions s.chunks in blockSize-chunk
// strides), so the single chunk index passed to fault is enough for it to
// resolve and load every chunk in the containing block, not just the
// first — see oocState.fault's own loop over [blockStart, blockStart+
// blockSizeChunks).
func (s *Store) LoadBlock(b Block) {
	if s.ooc == nil {
		return
	}
	s.ooc.fault(s, int(b.Start)/s.ChunkSize)
}

func minI32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

// Append writes one entry into owner's slice at the next free cursor
// position (spec.md §4.4 fill pass). owner must have LinkStart<=pos<LinkEnd
// reserved already by the counting pass.
func (s *Store) Append(owner Owner, linkStart, linkEnd int32, e Entry) {
	key := ownerKey{owner.TreeID, owner.Ref}
	pos, ok := s.cursor[key]
	if !ok {
		pos = linkStart
	}
	if pos >= linkEnd {
		return // defensive: counting/fill mismatch would be a programmer bug, not user data
	}
	*s.entryAt(pos) = e
	s.cursor[key] = pos + 1
}

// Slice returns the entries in [start,end), faulting in their chunk(s) if
// OOC. The returned slice is a copy of the entries; writing to it does not
// change the store.
func (s *Store) Slice(start, end int32) []Entry {
	if start >= end {
		return nil
	}
	out := make([]Entry, 0, end-start)
	for pos := start; pos < end; pos++ {
		out = append(out, *s.entryAt(pos))
	}
	return out
}

// ForEachInRange calls fn for every entry in [start,end), allowing in-place
// mutation (used by the parallel coefficient-fill phase, spec.md §4.4
// third pass).
func (s *Store) ForEachInRange(start, end int32, fn func(idx int32, e *Entry)) {
	for pos := start; pos < end; pos++ {
		fn(pos, s.entryAt(pos))
	}
}

// ForEachResidentInRange is ForEachInRange's concurrency-safe sibling: it
// never faults, so it may be called from multiple goroutines at once as
// long as [start,end) lies entirely within a block the caller already
// loaded with LoadBlock. Positions outside [blockStart,blockEnd) are
// skipped, letting callers intersect an owner's full range against the
// currently resident block.
func (s *Store) ForEachResidentInRange(start, end, blockStart, blockEnd int32, fn func(idx int32, e *Entry)) {
	if start < blockStart {
		start = blockStart
	}
	if end > blockEnd {
		end = blockEnd
	}
	for pos := start; pos < end; pos++ {
		fn(pos, s.entryAtResident(pos))
	}
}

// EnableOOC switches the store to out-of-core mode: chunks are paged to
// temporary files under dir, only one block of blockSizeChunks chunks
// resident at a time (spec.md §4.4).
func (s *Store) EnableOOC(dir string, blockSizeChunks int) error {
	if blockSizeChunks <= 0 {
		blockSizeChunks = 8
	}
	o, err := newOOCState(dir, len(s.chunks), s.ChunkSize)
	if err != nil {
		return errs.Wrap(errs.CannotGoOOC, err, "enabling out-of-core link storage")
	}
	o.blockSizeChunks = blockSizeChunks
	// Persist every chunk's current (typically still-empty) content and
	// drop all but the first block from memory, so OOC mode actually
	// reduces the in-core footprint from the moment it is enabled.
	for i, c := range s.chunks {
		if err := o.persistChunk(i, c); err != nil {
			return errs.Wrap(errs.CannotGoOOC, err, "persisting chunk %d", i)
		}
	}
	for i := blockSizeChunks; i < len(s.chunks); i++ {
		s.chunks[i] = nil
	}
	if len(s.chunks) > 0 {
		o.residentStart = 0
	}
	s.ooc = o
	s.blockSize = blockSizeChunks
	return nil
}

// Close releases OOC resources (deletes temporary chunk files).
func (s *Store) Close() error {
	if s.ooc != nil {
		return s.ooc.close()
	}
	return nil
}
