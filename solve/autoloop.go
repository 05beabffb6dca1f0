// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solve

import (
	"github.com/ediloren/fastercap-core/cond"
	"github.com/ediloren/fastercap-core/config"
	"github.com/ediloren/fastercap-core/errs"
	"github.com/ediloren/fastercap-core/gmres"
	"github.com/ediloren/fastercap-core/link"
	"github.com/ediloren/fastercap-core/matvec"
	"github.com/ediloren/fastercap-core/mesh"
	"github.com/ediloren/fastercap-core/potential"
	"github.com/ediloren/fastercap-core/precond"
	"github.com/ediloren/fastercap-core/runctx"
	"github.com/ediloren/fastercap-core/tree"
)

// Options carries the few knobs Run needs beyond the registry/params it is
// handed: where OOC temp files land, mainly (spec.md §4.4).
type Options struct {
	TempDir string
}

// Result is the outcome of a full auto-refinement run (spec.md §4.8).
type Result struct {
	Capacitance *Capacitance
	Iterations  int
	State       State
}

// stage bundles everything one outer iteration's mesh+link pass produces,
// threaded into the solve and the next iteration's growth check.
type stage struct {
	universe    *link.Universe
	store       *link.Store
	self        *link.SelfPotentials
	offsets     map[*tree.Tree]int
	totalLeaves int
	numLinks    int
}

// Run drives the auto-refinement loop of spec.md §4.8 to completion: mesh,
// generate links, precondition, solve once per conductor, assemble the
// capacitance matrix, and repeat with a tighter mesh_eps until the matrix
// stops changing beyond params.AutoLoop.MaxError or the iteration cap is
// hit. registry's conductors must already carry their leaf trees in Root
// (built by the caller via tree.Build over the parsed panels, spec.md
// §4.2); every conductor's NumLeaf is kept in sync with its tree as
// refinement proceeds.
func Run(rc *runctx.RunContext, registry *cond.Registry, kernel potential.Kernel, params *config.Params, opts Options) (*Result, error) {
	all := registry.All()
	trees := make([]*tree.Tree, len(all))
	treeOwner := make(map[*tree.Tree]*cond.Conductor, len(all))
	for i, c := range all {
		t, ok := c.Root.(*tree.Tree)
		if !ok {
			return nil, errs.New(errs.Generic, "conductor %q has no built tree", c.Name)
		}
		trees[i] = t
		treeOwner[t] = c
		if !c.Seeded {
			if mesh.SeedTopLevel(t, c.DielRefPoint) {
				c.Seeded = true
			}
		}
		c.NumLeaf = t.LeafCount()
	}

	conductors := registry.Conductors()
	complexProblem := false
	for _, c := range all {
		if c.IsComplex() {
			complexProblem = true
			break
		}
	}

	var prevCap *Capacitance
	prevLeaves, prevLinks := 0, 0
	meshEps := params.Mesh.MeshEps
	state := StateInit
	iter := 0
	for {
		iter++
		state = StateRefining

		// (ii) ensure the new mesh grows at least growth_factor x over the
		// previous iteration's leaf/link counts, halving mesh_eps again up
		// to inner_halvings times if it does not (spec.md §4.8).
		var st stage
		growthFactor := params.AutoLoop.GrowthFactor
		if growthFactor <= 0 {
			growthFactor = 1.1
		}
		innerCap := params.AutoLoop.InnerHalvings
		if innerCap <= 0 {
			innerCap = 6
		}
		for attempt := 0; ; attempt++ {
			var err error
			st, err = meshAndLink(rc, kernel, trees, treeOwner, params, meshEps, opts)
			if err != nil {
				return &Result{State: StateFailed}, err
			}
			if iter == 1 || attempt >= innerCap {
				break
			}
			if float64(st.totalLeaves) >= growthFactor*float64(prevLeaves) && float64(st.numLinks) >= growthFactor*float64(prevLinks) {
				break
			}
			meshEps /= 2
		}
		prevLeaves, prevLinks = st.totalLeaves, st.numLinks

		op := &matvec.Operator{
			RC: rc, Universe: st.universe, Store: st.store, Self: st.self,
			Offsets: st.offsets, Dim2: params.Dim2, Conductors: conductors,
		}

		state = StateSolving
		pc, err := buildPreconditioner(rc, kernel, params, st.offsets, st.totalLeaves, st.numLinks, len(conductors), st.self, conductors, opts)
		if err != nil {
			return &Result{State: StateFailed}, err
		}

		capm := newCapacitance(conductorNames(conductors), complexProblem)
		for idx := range conductors {
			b := ExcitationVector(conductors, st.totalLeaves, idx)
			res, err := gmres.Solve(rc, op, pc, b, params.GMRES.MaxIters, params.GMRES.Tolerance)
			if err != nil {
				return &Result{State: StateFailed}, err
			}
			if !res.Converged {
				rc.Warn("GMRES did not converge solving for conductor %q (residual %.3g after %d iterations)",
					conductors[idx].Name, res.Residual, res.Iterations)
			}
			AssembleColumn(capm, conductors, res.X, idx)
		}

		state = StateCheckConv
		delta := FrobeniusDelta(prevCap, capm)
		rc.Log("auto-loop iteration %d: mesh_eps=%.6g, leaves=%d, links=%d, delta=%.6g",
			iter, meshEps, st.totalLeaves, st.numLinks, delta)
		prevCap = capm

		if delta <= params.AutoLoop.MaxError {
			state = StateDone
			return &Result{Capacitance: capm, Iterations: iter, State: state}, nil
		}
		if iter >= params.AutoLoop.MaxIterations {
			rc.Warn("auto-loop: hit iteration cap (%d) before reaching max_error=%.3g (last delta=%.3g)",
				params.AutoLoop.MaxIterations, params.AutoLoop.MaxError, delta)
			state = StateDone
			return &Result{Capacitance: capm, Iterations: iter, State: state}, nil
		}
		meshEps /= 2
	}
}

// meshAndLink runs one mesh-refinement pass over every conductor pair
// (including self-pairs) followed by link generation and self-potential
// computation, at the given mesh_eps (spec.md §4.3/§4.4).
func meshAndLink(rc *runctx.RunContext, kernel potential.Kernel, trees []*tree.Tree, treeOwner map[*tree.Tree]*cond.Conductor, params *config.Params, meshEps float64, opts Options) (stage, error) {
	m := mesh.New(rc, kernel, config.Mesh{MeshEps: meshEps, CurvCoeff: params.Mesh.CurvCoeff, ChargeMaxSide: params.Mesh.ChargeMaxSide}, params.Dim2)

	globalMax := mesh.GlobalMaxMeasure(trees...)
	if globalMax == 0 {
		globalMax = 1
	}
	for i := 0; i < len(trees); i++ {
		for j := i; j < len(trees); j++ {
			refs := mesh.RefPoints{A: treeOwner[trees[i]].DielRefPoint, B: treeOwner[trees[j]].DielRefPoint}
			if err := m.RefinePair(trees[i], trees[j], i == j, globalMax, refs); err != nil {
				return stage{}, err
			}
		}
	}

	// SeedTopLevel and RefinePair may have subdivided leaves since the last
	// Linearize (at Build), leaving LeafSeq sparse (arena indices, not dense
	// 0..NumLeaf-1). Every downstream consumer that indexes the combined
	// vector by offset+LeafSeq (link, matvec, precond) needs it dense again.
	for _, t := range trees {
		link.EnsureLinearized(t)
	}

	offsets := make(map[*tree.Tree]int, len(trees))
	totalLeaves := 0
	offset := 0
	for _, t := range trees {
		c := treeOwner[t]
		c.NumLeaf = t.LeafCount()
		c.ChargeOffset = offset
		offsets[t] = offset
		offset += c.NumLeaf
		totalLeaves += c.NumLeaf
	}

	linkParams := params.Link
	if linkParams.Eps <= 0 {
		ratio := linkParams.EpsRatio
		if ratio <= 0 {
			ratio = 0.5
		}
		linkParams.Eps = meshEps * ratio
	}
	universe := link.NewUniverse(trees)
	gen := link.New(rc, kernel, params.Dim2, linkParams, params.Mesh.CurvCoeff)
	pairs := make([]link.Pair, 0, len(trees)*(len(trees)+1)/2)
	for i := 0; i < len(trees); i++ {
		for j := i; j < len(trees); j++ {
			pairs = append(pairs, link.Pair{A: trees[i], B: trees[j], Same: i == j})
		}
	}
	store, err := gen.Generate(universe, pairs, globalMax, opts.TempDir)
	if err != nil {
		return stage{}, err
	}
	self, err := gen.ComputeSelfPotentials(offsets, totalLeaves)
	if err != nil {
		return stage{}, err
	}
	return stage{
		universe: universe, store: store, self: self,
		offsets: offsets, totalLeaves: totalLeaves, numLinks: store.TotalEntries(),
	}, nil
}

func conductorNames(cs []*cond.Conductor) []string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.Name
	}
	return names
}

// buildPreconditioner constructs the preconditioner spec.md §4.6 calls for,
// resolving PrecondAuto against the current link/conductor counts.
func buildPreconditioner(rc *runctx.RunContext, kernel potential.Kernel, params *config.Params, offsets map[*tree.Tree]int, totalLeaves, numLinks, numConductors int, self *link.SelfPotentials, conductors []*cond.Conductor, opts Options) (precond.Preconditioner, error) {
	mode := params.Precond.Mode
	auto := false
	if mode == config.PrecondAuto || mode == "" {
		mode = precond.AutoSelect(rc, params.Precond, numLinks, numConductors)
		auto = true
	}
	switch mode {
	case config.PrecondNone:
		return precond.None{}, nil
	case config.PrecondJacobi:
		return precond.NewJacobi(rc, self), nil
	case config.PrecondTwoLevel:
		dim := params.Precond.SuperPreDim
		if auto || dim <= 0 {
			dim = precond.AutoSuperDim(params.Precond, numLinks, numConductors)
		}
		return precond.BuildTwoLevel(rc, kernel, params.Dim2, offsets, self, dim)
	case config.PrecondBlock:
		return precond.BuildBlock(rc, kernel, params.Dim2, offsets, totalLeaves, params.Precond.BlockMaxLeaf)
	case config.PrecondHierarchical:
		coarse, err := buildCoarseOperator(rc, kernel, params, offsets, totalLeaves, conductors, opts)
		if err != nil {
			return nil, err
		}
		return precond.NewHierarchical(rc, coarse, 0, 0), nil
	default:
		return nil, errs.New(errs.CommandLine, "unknown preconditioner mode %q", mode)
	}
}

// buildCoarseOperator builds the second, looser interaction structure the
// hierarchical preconditioner's inner GMRES solve runs against (spec.md
// §4.6): the same leaves, but accepted at a relaxed link threshold so far
// fewer links are generated. A from-scratch coarser tree over merged
// leaves would serve the same purpose; reusing the existing leaves with a
// relaxed eps gets the same "coarser, cheaper operator" property without
// building and maintaining a second hierarchy (SPEC_FULL.md §4.1-4.9
// supplement; see DESIGN.md).
func buildCoarseOperator(rc *runctx.RunContext, kernel potential.Kernel, params *config.Params, offsets map[*tree.Tree]int, totalLeaves int, conductors []*cond.Conductor, opts Options) (gmres.Operator, error) {
	trees := make([]*tree.Tree, 0, len(offsets))
	for t := range offsets {
		trees = append(trees, t)
	}
	universe := link.NewUniverse(trees)
	coarseLink := params.Link
	coarseLink.Eps *= 8
	if coarseLink.Eps == 0 {
		coarseLink.Eps = 0.2
	}
	gen := link.New(rc, kernel, params.Dim2, coarseLink, params.Mesh.CurvCoeff*2)
	globalMax := mesh.GlobalMaxMeasure(trees...)
	if globalMax == 0 {
		globalMax = 1
	}
	pairs := make([]link.Pair, 0, len(trees)*(len(trees)+1)/2)
	for i := 0; i < len(trees); i++ {
		for j := i; j < len(trees); j++ {
			pairs = append(pairs, link.Pair{A: trees[i], B: trees[j], Same: i == j})
		}
	}
	store, err := gen.Generate(universe, pairs, globalMax, opts.TempDir)
	if err != nil {
		return nil, err
	}
	self, err := gen.ComputeSelfPotentials(offsets, totalLeaves)
	if err != nil {
		return nil, err
	}
	return &matvec.Operator{
		RC: rc, Universe: universe, Store: store, Self: self,
		Offsets: offsets, Dim2: params.Dim2, Conductors: conductors,
	}, nil
}
