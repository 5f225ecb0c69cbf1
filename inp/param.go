// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package inp reads the simulation parameter file: one struct tree
// decoded from a single declarative document, defaults filled in after
// decode, then patched by any `--override key=value` flags (spec.md §6
// "Parameter file").
package inp

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cpmech/gort/internal/rterr"
)

// InputData holds the `input.*` section.
type InputData struct {
	Paths        []string `yaml:"paths"`
	ShrinkFactor int      `yaml:"shrink_factor"`
}

// OutputData holds the `output.*` section.
type OutputData struct {
	OutputDir   string   `yaml:"output_dir"`
	Fields      []string `yaml:"fields"`
	EveryNSteps int      `yaml:"every_n_steps"` // snapshot cadence; a final snapshot is always written
}

// BoxSizeData holds the `box_size.*` section; a box with Min != Max fixes
// the global simulation box, otherwise the driver uses the bounding box of
// the particles it read. Periodic ghosts are switched by sweep.periodic.
type BoxSizeData struct {
	Min [3]float64 `yaml:"min"`
	Max [3]float64 `yaml:"max"`
}

// TreeData holds the `tree.*` section. Its values are decoded, defaulted
// and can be overridden, but nothing outside this file reads them; the
// key resolution is fixed by sfckey.BitsPerDim.
type TreeData struct {
	MinDepth                int `yaml:"min_depth"`
	MaxDepth                int `yaml:"max_depth"`
	MaxNumParticlesPerLeaf  int `yaml:"max_num_particles_per_leaf"`
}

// SweepData holds the `sweep.*` section (spec.md §6's table).
//
// Directions may be given as an integer count (DirectionsCount > 0,
// DirectionsExplicit empty) or an explicit list of unit vectors
// (DirectionsExplicit non-empty); ReadParam resolves whichever the YAML
// document actually used.
// NumGlobalSteps bounds the "loop until final time" driver loop spec.md
// §2's data-flow line names but leaves to the (out-of-core-scope)
// simulation driver: rather than an absolute physical final_time, which
// would require a cosmological time model this corpus does not implement,
// the driver runs exactly NumGlobalSteps global steps of BaseTimestep
// each (MaxTimestep instead, when it is positive and smaller).
type SweepData struct {
	DirectionsCount          int          `yaml:"-"`
	DirectionsExplicit       [][3]float64 `yaml:"-"`
	NumTimestepLevels        int          `yaml:"num_timestep_levels"`
	NumGlobalSteps           int          `yaml:"num_global_steps"`
	BaseTimestep             float64      `yaml:"base_timestep"`
	TimestepSafetyFactor     float64      `yaml:"timestep_safety_factor"`
	SignificantRateThreshold float64      `yaml:"significant_rate_threshold"`
	RotateDirections         bool         `yaml:"rotate_directions"`
	CheckDeadlock            bool         `yaml:"check_deadlock"`
	Periodic                 bool         `yaml:"periodic"`
	MaxTimestep              float64      `yaml:"max_timestep"`
}

// rawSweepData mirrors SweepData but leaves `directions` as a raw
// yaml.Node, since it is polymorphic (an int or a list of 3-vectors).
type rawSweepData struct {
	Directions               yaml.Node `yaml:"directions"`
	NumTimestepLevels        int       `yaml:"num_timestep_levels"`
	NumGlobalSteps           int       `yaml:"num_global_steps"`
	BaseTimestep             float64   `yaml:"base_timestep"`
	TimestepSafetyFactor     float64   `yaml:"timestep_safety_factor"`
	SignificantRateThreshold float64   `yaml:"significant_rate_threshold"`
	RotateDirections         bool      `yaml:"rotate_directions"`
	CheckDeadlock            bool      `yaml:"check_deadlock"`
	Periodic                 bool      `yaml:"periodic"`
	MaxTimestep              float64   `yaml:"max_timestep"`
}

// Param is the full decoded parameter file (spec.md §6).
type Param struct {
	Input   InputData   `yaml:"input"`
	Output  OutputData  `yaml:"output"`
	BoxSize BoxSizeData `yaml:"box_size"`
	Tree    TreeData    `yaml:"tree"`
	Sweep   SweepData   `yaml:"sweep"`
}

// rawParam mirrors Param, routing the polymorphic sweep.directions field
// through rawSweepData.
type rawParam struct {
	Input   InputData     `yaml:"input"`
	Output  OutputData    `yaml:"output"`
	BoxSize BoxSizeData   `yaml:"box_size"`
	Tree    TreeData      `yaml:"tree"`
	Sweep   rawSweepData  `yaml:"sweep"`
}

// ReadParam reads and decodes a YAML parameter file, fills defaults, and
// applies overrides (each of the form "dotted.path=value", matching the
// CLI's repeatable --override flag, spec.md §6).
func ReadParam(fnpath string, overrides []string) (*Param, error) {
	data, err := os.ReadFile(fnpath)
	if err != nil {
		return nil, rterr.New(rterr.DegenerateInput, "cannot read parameter file %q: %v", fnpath, err)
	}
	var raw rawParam
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, rterr.New(rterr.DegenerateInput, "cannot parse parameter file %q: %v", fnpath, err)
	}
	p := &Param{
		Input:   raw.Input,
		Output:  raw.Output,
		BoxSize: raw.BoxSize,
		Tree:    raw.Tree,
		Sweep: SweepData{
			NumTimestepLevels:        raw.Sweep.NumTimestepLevels,
			NumGlobalSteps:           raw.Sweep.NumGlobalSteps,
			BaseTimestep:             raw.Sweep.BaseTimestep,
			TimestepSafetyFactor:     raw.Sweep.TimestepSafetyFactor,
			SignificantRateThreshold: raw.Sweep.SignificantRateThreshold,
			RotateDirections:         raw.Sweep.RotateDirections,
			CheckDeadlock:            raw.Sweep.CheckDeadlock,
			Periodic:                 raw.Sweep.Periodic,
			MaxTimestep:              raw.Sweep.MaxTimestep,
		},
	}
	if err := decodeDirections(&raw.Sweep.Directions, &p.Sweep); err != nil {
		return nil, err
	}
	p.setDefaults()
	for _, ov := range overrides {
		if err := p.applyOverride(ov); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// decodeDirections resolves sweep.directions as either a scalar count or
// a list of [x,y,z] vectors.
func decodeDirections(node *yaml.Node, sd *SweepData) error {
	if node.Kind == 0 {
		return nil // section omitted entirely; New(0,nil) picks a default
	}
	switch node.Kind {
	case yaml.ScalarNode:
		var n int
		if err := node.Decode(&n); err != nil {
			return rterr.New(rterr.DegenerateInput, "sweep.directions: expected an integer count or a list of vectors: %v", err)
		}
		sd.DirectionsCount = n
	case yaml.SequenceNode:
		var vecs [][3]float64
		if err := node.Decode(&vecs); err != nil {
			return rterr.New(rterr.DegenerateInput, "sweep.directions: expected a list of 3-vectors: %v", err)
		}
		sd.DirectionsExplicit = vecs
	default:
		return rterr.New(rterr.DegenerateInput, "sweep.directions: unsupported YAML node kind %v", node.Kind)
	}
	return nil
}

// setDefaults fills in every field spec.md §6 describes as optional.
func (p *Param) setDefaults() {
	if p.Input.ShrinkFactor < 1 {
		p.Input.ShrinkFactor = 1
	}
	if p.Tree.MaxDepth == 0 {
		p.Tree.MaxDepth = 63
	}
	if p.Tree.MaxNumParticlesPerLeaf == 0 {
		p.Tree.MaxNumParticlesPerLeaf = 8
	}
	if p.Sweep.NumTimestepLevels < 1 {
		p.Sweep.NumTimestepLevels = 1
	}
	if p.Sweep.NumGlobalSteps < 1 {
		p.Sweep.NumGlobalSteps = 1
	}
	if p.Sweep.BaseTimestep <= 0 {
		p.Sweep.BaseTimestep = 1.0
	}
	if p.Sweep.TimestepSafetyFactor <= 0 {
		p.Sweep.TimestepSafetyFactor = 1.0
	}
	if p.Output.EveryNSteps < 1 {
		p.Output.EveryNSteps = 1
	}
}

// applyOverride patches one "a.b.c=value" override onto the already-
// decoded Param, reusing the same yaml decoder so scalars, bools, and
// numbers parse the same way the original document would have.
func (p *Param) applyOverride(spec string) error {
	eq := strings.IndexByte(spec, '=')
	if eq < 0 {
		return rterr.New(rterr.DegenerateInput, "override %q must be of the form key.path=value", spec)
	}
	path := strings.Split(spec[:eq], ".")
	val := spec[eq+1:]

	field, err := fieldByPath(p, path)
	if err != nil {
		return err
	}
	return setFromString(field, val)
}

// fieldByPath maps a dotted path to a pointer into p through a fixed table
// of the scalar and 3-vector parameters; input.paths, output.fields and
// sweep.directions cannot be overridden.
func fieldByPath(p *Param, path []string) (interface{}, error) {
	switch strings.Join(path, ".") {
	case "input.shrink_factor":
		return &p.Input.ShrinkFactor, nil
	case "output.output_dir":
		return &p.Output.OutputDir, nil
	case "output.every_n_steps":
		return &p.Output.EveryNSteps, nil
	case "box_size.min":
		return &p.BoxSize.Min, nil
	case "box_size.max":
		return &p.BoxSize.Max, nil
	case "tree.min_depth":
		return &p.Tree.MinDepth, nil
	case "tree.max_depth":
		return &p.Tree.MaxDepth, nil
	case "tree.max_num_particles_per_leaf":
		return &p.Tree.MaxNumParticlesPerLeaf, nil
	case "sweep.num_timestep_levels":
		return &p.Sweep.NumTimestepLevels, nil
	case "sweep.num_global_steps":
		return &p.Sweep.NumGlobalSteps, nil
	case "sweep.base_timestep":
		return &p.Sweep.BaseTimestep, nil
	case "sweep.timestep_safety_factor":
		return &p.Sweep.TimestepSafetyFactor, nil
	case "sweep.significant_rate_threshold":
		return &p.Sweep.SignificantRateThreshold, nil
	case "sweep.rotate_directions":
		return &p.Sweep.RotateDirections, nil
	case "sweep.check_deadlock":
		return &p.Sweep.CheckDeadlock, nil
	case "sweep.periodic":
		return &p.Sweep.Periodic, nil
	case "sweep.max_timestep":
		return &p.Sweep.MaxTimestep, nil
	}
	return nil, rterr.New(rterr.DegenerateInput, "override: unrecognized parameter path %q", strings.Join(path, "."))
}

// setFromString parses val into whatever concrete type field points at.
func setFromString(field interface{}, val string) error {
	switch f := field.(type) {
	case *int:
		n, err := strconv.Atoi(val)
		if err != nil {
			return rterr.New(rterr.DegenerateInput, "override: %q is not an integer: %v", val, err)
		}
		*f = n
	case *float64:
		x, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return rterr.New(rterr.DegenerateInput, "override: %q is not a float: %v", val, err)
		}
		*f = x
	case *bool:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return rterr.New(rterr.DegenerateInput, "override: %q is not a bool: %v", val, err)
		}
		*f = b
	case *string:
		*f = val
	case *[3]float64:
		parts := strings.Split(val, ",")
		if len(parts) != 3 {
			return rterr.New(rterr.DegenerateInput, "override: expected 3 comma-separated floats, got %q", val)
		}
		var v [3]float64
		for i, part := range parts {
			x, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return rterr.New(rterr.DegenerateInput, "override: %q is not a float: %v", part, err)
			}
			v[i] = x
		}
		*f = v
	default:
		return rterr.New(rterr.DegenerateInput, "override: unsupported field type %T", field)
	}
	return nil
}

// String renders a short human-readable summary for the startup banner.
func (p *Param) String() string {
	return fmt.Sprintf("input.paths=%v sweep.num_timestep_levels=%d sweep.max_timestep=%v",
		p.Input.Paths, p.Sweep.NumTimestepLevels, p.Sweep.MaxTimestep)
}
