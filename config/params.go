// Copyright 2024 The fastercap-core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config holds the user-tunable thresholds that drive the mesher,
// link generator, preconditioner selection, GMRES and the auto-refinement
// loop. It generalizes the teacher's inp.Simulation/inp.Solver nested
// default-carrying structs (inp/sim.go) to this domain's parameters.
package config

import (
	"os"

	"github.com/ediloren/fastercap-core/errs"
	"gopkg.in/yaml.v3"
)

// PrecondMode selects a preconditioner builder variant (spec.md §4.6).
type PrecondMode string

const (
	PrecondAuto         PrecondMode = "auto"
	PrecondNone         PrecondMode = "none"
	PrecondJacobi       PrecondMode = "jacobi"
	PrecondTwoLevel     PrecondMode = "super"
	PrecondBlock        PrecondMode = "block"
	PrecondHierarchical PrecondMode = "hierarchical"
)

// AUTOPANEL_MAX_DIEL_NUM of spec.md §3 — the maximum number of distinct
// outer-permittivity entries a single conductor may border.
const AutopanelMaxDielNum = 16

// Mesh holds adaptive-mesher thresholds (spec.md §4.3).
type Mesh struct {
	MeshEps      float64 `yaml:"mesh_eps"`      // curvature/proximity threshold
	CurvCoeff    float64 `yaml:"curv_coeff"`    // m_meshCurvCoeff
	ChargeMaxSide float64 `yaml:"charge_max_side"` // cap used by charge-driven mode
}

// Link holds link-generator thresholds (spec.md §4.4).
type Link struct {
	Eps        float64 `yaml:"eps"`         // tighter than MeshEps
	EpsRatio   float64 `yaml:"eps_ratio"`   // eps = mesh_eps * eps_ratio
	ChunkSize  int     `yaml:"chunk_size"`  // records per OOC chunk (default 2^20)
	OOCRatio   float64 `yaml:"ooc_ratio"`   // free < oocRatio*linkSize triggers OOC
	ForceInCore bool   `yaml:"force_in_core"`
	ForceOOC    bool   `yaml:"force_ooc"`
}

// Precond holds preconditioner-builder parameters (spec.md §4.6).
type Precond struct {
	Mode         PrecondMode `yaml:"mode"`
	SuperPreDim  int         `yaml:"super_pre_dim"`
	BlockMaxLeaf int         `yaml:"block_max_leaf"` // <= 128
	AutoLowLinks int         `yaml:"auto_low_links"` // below: jacobi
	AutoMidLinks int         `yaml:"auto_mid_links"` // below: super-128
	AutoHiLinks  int         `yaml:"auto_hi_links"`  // below: super-512, else super-1024

	// -kc / -km equivalents: open question in spec.md §9, resolved as an
	// error when combined with the hierarchical preconditioner.
	KeepCharges    bool `yaml:"keep_charges"`
	KeepMesh       bool `yaml:"keep_mesh"`
}

// GMRES holds solver tolerances (spec.md §4.7).
type GMRES struct {
	Tolerance  float64 `yaml:"tolerance"`
	MaxIters   int     `yaml:"max_iters"`
	Flexible   bool    `yaml:"flexible"` // forced true when Precond.Mode == hierarchical
}

// AutoLoop holds the outer auto-refinement controller parameters (spec.md
// §4.8).
type AutoLoop struct {
	MaxError      float64 `yaml:"max_error"`       // Frobenius-norm delta target
	MaxIterations int     `yaml:"max_iterations"`  // hard cap
	GrowthFactor  float64 `yaml:"growth_factor"`   // 1.1x leaves/links requirement
	InnerHalvings int     `yaml:"inner_halvings"`  // cap on repeated halving
}

// Galerkin2D, when true, requests Galerkin discretization in 2D. spec.md §9
// requires this either be implemented coherently or rejected outright —
// this module rejects it (see Validate).
type Params struct {
	Dim2        bool    `yaml:"dim2"`
	Galerkin2D  bool    `yaml:"galerkin_2d"`
	Mesh        Mesh    `yaml:"mesh"`
	Link        Link    `yaml:"link"`
	Precond     Precond `yaml:"precond"`
	GMRES       GMRES   `yaml:"gmres"`
	AutoLoop    AutoLoop `yaml:"auto_loop"`
}

// Default returns the parameter set used when the user supplies none,
// following the magnitudes the source hard-codes for these thresholds.
func Default() *Params {
	return &Params{
		Mesh: Mesh{
			MeshEps:       0.05,
			CurvCoeff:     2.25,
			ChargeMaxSide: 0.0, // 0 disables the cap until auto-loop sets one
		},
		Link: Link{
			Eps:       0.025,
			EpsRatio:  0.5,
			ChunkSize: 1 << 20,
			OOCRatio:  1.25,
		},
		Precond: Precond{
			Mode:         PrecondAuto,
			SuperPreDim:  400,
			BlockMaxLeaf: 128,
			AutoLowLinks: 50_000,
			AutoMidLinks: 500_000,
			AutoHiLinks:  5_000_000,
		},
		GMRES: GMRES{
			Tolerance: 1e-3,
			MaxIters:  200,
		},
		AutoLoop: AutoLoop{
			MaxError:      0.01,
			MaxIterations: 10,
			GrowthFactor:  1.1,
			InnerHalvings: 6,
		},
	}
}

// Load reads Params from a YAML file, filling unset fields from Default.
func Load(path string) (*Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.CannotOpenFile, err, "reading config %q", path)
	}
	p := Default()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, errs.Wrap(errs.FileError, err, "parsing config %q", path)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate rejects combinations spec.md §9 calls out as open questions
// resolved in favour of an explicit error rather than silent behaviour.
func (p *Params) Validate() error {
	if p.Precond.Mode == PrecondHierarchical && (p.Precond.KeepCharges || p.Precond.KeepMesh) {
		return errs.New(errs.CommandLine,
			"keep-charges/keep-mesh cannot be combined with the hierarchical preconditioner")
	}
	if p.Dim2 && p.Galerkin2D {
		return errs.New(errs.Generic,
			"2D Galerkin discretization is not implemented; use collocation")
	}
	if p.Precond.Mode == PrecondHierarchical {
		p.GMRES.Flexible = true
	}
	if p.Precond.BlockMaxLeaf > 128 {
		return errs.New(errs.CommandLine, "block preconditioner leaf cap must be <= 128, got %d", p.Precond.BlockMaxLeaf)
	}
	return nil
}

// Save writes Params back out as YAML.
func (p *Params) Save(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return errs.Wrap(errs.FileError, err, "marshaling config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errs.Wrap(errs.FileError, err, "writing config %q", path)
	}
	return nil
}
