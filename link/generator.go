// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package link

import (
	"math"
	"os"
	"runtime/debug"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"golang.org/x/sync/errgroup"

	"github.com/ediloren/fastercap-core/config"
	"github.com/ediloren/fastercap-core/errs"
	"github.com/ediloren/fastercap-core/geom"
	"github.com/ediloren/fastercap-core/potential"
	"github.com/ediloren/fastercap-core/runctx"
	"github.com/ediloren/fastercap-core/tree"
)

// Pair is one pair of conductor trees to walk for link generation; Same
// marks a conductor's self-interaction pair (A==B).
type Pair struct {
	A, B *tree.Tree
	Same bool
}

// Generator builds a Store from the already-converged mesh produced by the
// mesh package, following spec.md §4.4's three passes: count, fill
// structure, then compute coefficients. It reuses the mesher's curvature
// criterion (mesh/mesher.go) but against the tighter Link.Eps threshold,
// and — unlike the mesher — never subdivides: by the time link generation
// runs the mesh is fixed, so a pair that still fails the criterion at two
// leaves is forcibly accepted (spec.md §4.4: "the multiplication cannot
// refine further").
type Generator struct {
	Kernel    potential.Kernel
	RC        *runctx.RunContext
	Dim2      bool
	Params    config.Link
	CurvCoeff float64 // mirrors config.Mesh.CurvCoeff; defaults to 2.25 if zero
}

func New(rc *runctx.RunContext, kernel potential.Kernel, dim2 bool, params config.Link, curvCoeff float64) *Generator {
	if curvCoeff <= 0 {
		curvCoeff = 2.25
	}
	return &Generator{Kernel: kernel, RC: rc, Dim2: dim2, Params: params, CurvCoeff: curvCoeff}
}

// Generate runs all three passes and returns the populated Store. dir names
// the directory OOC temp files are created under, when OOC mode is chosen.
func (g *Generator) Generate(u *Universe, pairs []Pair, globalMax float64, dir string) (*Store, error) {
	eps := g.Params.Eps
	if eps <= 0 {
		eps = 0.025
	}

	counts := make(map[ownerKey]int32)
	for _, p := range pairs {
		if p.A.Root == tree.NilRef || p.B.Root == tree.NilRef {
			continue
		}
		if err := g.walkPair(u, p, eps, globalMax, func(oa, ob Owner) {
			counts[ownerKey{oa.TreeID, oa.Ref}]++
			counts[ownerKey{ob.TreeID, ob.Ref}]++
		}); err != nil {
			return nil, err
		}
	}

	var cursor int32
	for _, t := range u.trees {
		for ref := range t.Nodes {
			k := ownerKey{u.IDOf(t), tree.Ref(ref)}
			c := counts[k]
			t.Nodes[ref].LinkStart = cursor
			t.Nodes[ref].LinkEnd = cursor + c
			cursor += c
		}
	}
	total := cursor
	g.RC.AddMem(runctx.SubsystemLinks, int64(total)*int64(pointerRecordBytes+coeffRecordBytes))
	g.RC.Log("link generation: %d entries across %d trees", total, len(u.trees))

	chunkSize := g.Params.ChunkSize
	store := NewStore(u, chunkSize, int(total))
	if g.decideOOC(total) {
		if err := store.EnableOOC(dir, 8); err != nil {
			return nil, err
		}
		g.RC.Log("link store: out-of-core, %d chunks", len(store.chunks))
	}

	// Fill pass: re-walk the identical recursion (same eps/tree/kernel, so
	// the same pairs are accepted in the same order) and append peer-only
	// entries into each owner's reserved slice.
	for _, p := range pairs {
		if p.A.Root == tree.NilRef || p.B.Root == tree.NilRef {
			continue
		}
		err := g.walkPair(u, p, eps, globalMax, func(oa, ob Owner) {
			ea := &u.TreeOf(oa.TreeID).Nodes[oa.Ref]
			eb := &u.TreeOf(ob.TreeID).Nodes[ob.Ref]
			store.Append(oa, ea.LinkStart, ea.LinkEnd, Entry{Peer: Peer{TreeID: ob.TreeID, Ref: ob.Ref}})
			store.Append(ob, eb.LinkStart, eb.LinkEnd, Entry{Peer: Peer{TreeID: oa.TreeID, Ref: oa.Ref}})
		})
		if err != nil {
			return nil, err
		}
	}

	// Coefficient pass: one block resident at a time, parallel fan-out
	// across owner nodes within that block (spec.md §4.4 third pass).
	nodeBase := nodeOffsets(u)
	totalNodes := 0
	for _, t := range u.trees {
		totalNodes += len(t.Nodes)
	}
	anomalies := bitset.New(uint(totalNodes))
	for _, blk := range store.Blocks() {
		store.LoadBlock(blk)
		if err := g.fillBlockCoefficients(u, store, blk, nodeBase, anomalies); err != nil {
			return nil, err
		}
	}
	if anomalies.Any() {
		g.RC.Warn("link coefficient fill: %d node(s) produced a numerical anomaly (NaN/inf/zero-distance); affected entries left with a zero coefficient (spec.md §7: anomalies warn, they do not abort)", anomalies.Count())
	}

	return store, nil
}

// nodeOffsets assigns each tree in u a base offset into a single flat index
// space spanning every tree's node array, so a per-node anomaly can be
// recorded in one shared bitset.BitSet; the fill goroutines set their bits
// under a mutex (see fillBlockCoefficients).
func nodeOffsets(u *Universe) map[*tree.Tree]int {
	offsets := make(map[*tree.Tree]int, len(u.trees))
	base := 0
	for _, t := range u.trees {
		offsets[t] = base
		base += len(t.Nodes)
	}
	return offsets
}

// walkPair recurses the fixed mesh, calling onAccept once for every pair of
// elements the link generator keeps (an Owner pair, in both directions).
func (g *Generator) walkPair(u *Universe, p Pair, eps, globalMax float64, onAccept func(oa, ob Owner)) error {
	return g.walkRec(u, p.A, p.B, p.A.Root, p.B.Root, p.Same, eps, globalMax, onAccept)
}

func (g *Generator) walkRec(u *Universe, a, b *tree.Tree, ra, rb tree.Ref, same bool, eps, globalMax float64, onAccept func(oa, ob Owner)) error {
	if g.RC.Cancelled() {
		return errs.New(errs.UserBreak, "link generation cancelled")
	}
	if same && ra == rb {
		// diagonal: handled by SelfPotentials, never a link; a super-node's
		// children are still paired with themselves and with each other.
		e := &a.Nodes[ra]
		if e.IsLeaf() {
			return nil
		}
		if err := g.walkRec(u, a, b, e.Left, e.Left, same, eps, globalMax, onAccept); err != nil {
			return err
		}
		if err := g.walkRec(u, a, b, e.Left, e.Right, same, eps, globalMax, onAccept); err != nil {
			return err
		}
		return g.walkRec(u, a, b, e.Right, e.Right, same, eps, globalMax, onAccept)
	}
	ea, eb := &a.Nodes[ra], &b.Nodes[rb]

	curvCoeff := 1.0
	if same {
		curvCoeff = (g.CurvCoeff-1)*(ea.GeoNormal.Dot(eb.GeoNormal)+1) + 1
	}

	pAB, err := g.Kernel.Potential(toPotentialElement(ea), toPotentialElement(eb), potential.DefaultOptions(g.Dim2))
	if err != nil {
		return err
	}
	pBA, err := g.Kernel.Potential(toPotentialElement(eb), toPotentialElement(ea), potential.DefaultOptions(g.Dim2))
	if err != nil {
		return err
	}
	ratioAB := math.Abs(real(pAB)) * eb.Dimension / (globalMax * curvCoeff)
	ratioBA := math.Abs(real(pBA)) * ea.Dimension / (globalMax * curvCoeff)
	trigger := ratioAB > eps || ratioBA > eps

	bothLeaves := ea.IsLeaf() && eb.IsLeaf()
	if trigger && !bothLeaves {
		if ea.IsSuper() && (eb.IsLeaf() || ea.Dimension >= eb.Dimension) {
			if err := g.walkRec(u, a, b, ea.Left, rb, same, eps, globalMax, onAccept); err != nil {
				return err
			}
			return g.walkRec(u, a, b, ea.Right, rb, same, eps, globalMax, onAccept)
		}
		if err := g.walkRec(u, a, b, ra, eb.Left, same, eps, globalMax, onAccept); err != nil {
			return err
		}
		return g.walkRec(u, a, b, ra, eb.Right, same, eps, globalMax, onAccept)
	}

	onAccept(Owner{TreeID: u.IDOf(a), Ref: ra}, Owner{TreeID: u.IDOf(b), Ref: rb})
	return nil
}

// fillBlockCoefficients computes Coeff for every entry whose position lies
// in blk, fanning out across owner nodes concurrently. Each goroutine only
// touches its own node's reserved range (spec.md §5: link-slice writes
// during generation are partitioned by owning node), so no synchronization
// is needed beyond the block already being resident.
func (g *Generator) fillBlockCoefficients(u *Universe, store *Store, blk Block, nodeBase map[*tree.Tree]int, anomalies *bitset.BitSet) error {
	var eg errgroup.Group
	var anomaliesMu sync.Mutex
	for _, t := range u.trees {
		t := t
		base := nodeBase[t]
		for i := range t.Nodes {
			e := &t.Nodes[i]
			if e.LinkEnd <= e.LinkStart || e.LinkEnd <= blk.Start || e.LinkStart >= blk.End {
				continue
			}
			e, nodeIdx := e, base+i
			eg.Go(func() error {
				if g.RC.Cancelled() {
					return errs.New(errs.UserBreak, "link coefficient fill cancelled")
				}
				ownerPE := toPotentialElement(e)
				var ferr error
				store.ForEachResidentInRange(e.LinkStart, e.LinkEnd, blk.Start, blk.End, func(_ int32, entry *Entry) {
					if ferr != nil {
						return
					}
					peer := &u.TreeOf(entry.Peer.TreeID).Nodes[entry.Peer.Ref]
					c, err := g.Kernel.Potential(toPotentialElement(peer), ownerPE, potential.DefaultOptions(g.Dim2))
					if err != nil {
						if isNumericalAnomaly(err) {
							anomaliesMu.Lock()
							anomalies.Set(uint(nodeIdx))
							anomaliesMu.Unlock()
							return
						}
						ferr = err
						return
					}
					entry.Coeff = c
				})
				return ferr
			})
		}
	}
	return eg.Wait()
}

// isNumericalAnomaly reports whether err is one of the non-fatal
// numerical-anomaly kinds spec.md §7 lists: these are surfaced as
// warnings and must never abort the link-coefficient fill.
func isNumericalAnomaly(err error) bool {
	switch errs.KindOf(err) {
	case errs.ErrorZeroDist, errs.ErrorSmallDist, errs.ErrorNaNOrInf:
		return true
	default:
		return false
	}
}

// ComputeSelfPotentials fills the diagonal coefficient for every leaf of
// every tree in offsets, using each tree's conductor charge-vector offset
// to place results in the combined vector (spec.md §3).
func (g *Generator) ComputeSelfPotentials(offsets map[*tree.Tree]int, totalLeaves int) (*SelfPotentials, error) {
	sp := NewSelfPotentials(totalLeaves)
	for t, offset := range offsets {
		for _, ref := range t.Leaves() {
			e := &t.Nodes[ref]
			c, err := g.Kernel.SelfPotential(toPotentialElement(e), potential.DefaultOptions(g.Dim2))
			if err != nil {
				return nil, err
			}
			sp.Set(LeafGlobalIndex(offset, e.LeafSeq), c)
		}
	}
	return sp, nil
}

// decideOOC applies spec.md §4.4's "free < oocRatio*linkSize" rule using
// the active soft memory limit (GOMEMLIMIT, or a conservative default when
// unset) as the stand-in for "free memory", minus what other subsystems
// already report using.
func (g *Generator) decideOOC(totalEntries int32) bool {
	if g.Params.ForceInCore {
		return false
	}
	if g.Params.ForceOOC {
		return true
	}
	linkBytes := int64(totalEntries) * int64(pointerRecordBytes+coeffRecordBytes)
	budget := currentMemoryBudget()
	used := g.RC.Mem(runctx.SubsystemMesh) + g.RC.Mem(runctx.SubsystemPrecond) + g.RC.Mem(runctx.SubsystemGMRES)
	free := budget - used
	ratio := g.Params.OOCRatio
	if ratio <= 0 {
		ratio = 1.25
	}
	return float64(free) < ratio*float64(linkBytes)
}

const defaultMemoryBudgetBytes int64 = 2 << 30 // 2 GiB, used when GOMEMLIMIT is unset

func currentMemoryBudget() int64 {
	lim := debug.SetMemoryLimit(-1)
	if lim <= 0 || lim == math.MaxInt64 {
		return defaultMemoryBudgetBytes
	}
	return lim
}

func toPotentialElement(e *tree.Element) potential.Element {
	pe := potential.Element{
		Centroid: e.Centroid,
		Normal:   e.GeoNormal,
		Dim:      e.Dimension,
		MaxSide:  e.MaxSide,
	}
	if e.IsLeaf() {
		switch s := e.Shape.(type) {
		case geom.Tri3:
			t := s.Triangle
			pe.Tri = &t
		case geom.Seg2:
			sg := s.Segment
			pe.Seg = &sg
		}
	}
	return pe
}

// DefaultTempDir is the directory OOC temp files land in absent an explicit
// choice — the process's own temp dir, matching spec.md §6's frcl/frcp
// naming convention.
func DefaultTempDir() string { return os.TempDir() }
