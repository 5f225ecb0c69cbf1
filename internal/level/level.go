// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package level implements the timestep-level controller: each cell's
// desired level is derived from its chemistry change-timescale, clamped to
// descend by at most one level per global step, with halo levels
// communicated between ranks after each step (spec.md §3 "Timestep
// level", §4.3 "Chemistry update" level-proposal rule, §8 property 9).
//
// Grounded on original_source/src/performance_parameters.rs. The
// "timescale -> level" mapping and the per-step clamp are the plain
// arithmetic rule spec.md gives; Controller stores an optional
// gosl/fun.TimeSpace (MaxTimestepFn) that none of its methods evaluates.
package level

import (
	"math"

	"github.com/cpmech/gosl/fun"

	"github.com/cpmech/gort/internal/comm"
	"github.com/cpmech/gort/internal/particle"
	"github.com/cpmech/gort/internal/rterr"
)

// Controller computes and clamps per-cell timestep levels.
type Controller struct {
	NumLevels     int // L
	BaseTimestep  float64
	SafetyFactor  float64
	MaxTimestepFn fun.TimeSpace // stored as given; no Controller method evaluates it
}

// New builds a Controller. maxTimestepFn may be nil; it is stored in
// MaxTimestepFn and never evaluated, so no schedule-based cap is applied
// (steps are BaseTimestep divided by the binary sub-stepping only).
func New(numLevels int, baseTimestep, safetyFactor float64, maxTimestepFn fun.TimeSpace) (*Controller, error) {
	if numLevels < 1 {
		return nil, rterr.New(rterr.DegenerateInput, "level: num_timestep_levels must be >= 1, got %d", numLevels)
	}
	if baseTimestep <= 0 {
		return nil, rterr.New(rterr.DegenerateInput, "level: base timestep must be positive, got %v", baseTimestep)
	}
	return &Controller{
		NumLevels:     numLevels,
		BaseTimestep:  baseTimestep,
		SafetyFactor:  safetyFactor,
		MaxTimestepFn: maxTimestepFn,
	}, nil
}

// IsActive reports whether level l is active in sub-step i of 2^(L-1)
// total sub-steps (spec.md §3: "Level l is active in sub-step i iff i mod
// 2^l == 0").
func (c *Controller) IsActive(level, subStep int) bool {
	return subStep%(1<<uint(level)) == 0
}

// NumSubSteps returns 2^(L-1), the number of sub-steps per global step.
func (c *Controller) NumSubSteps() int {
	return 1 << uint(c.NumLevels-1)
}

// Timestep returns the effective step for a cell at currentLevel: level 0
// (active every sub-step, per IsActive) gets base_timestep / 2^(L-1), the
// finest increment; the coarsest level L-1 (active only once, at
// sub-step 0) gets the full base_timestep. This keeps the total simulated
// time a cell accumulates over one global step equal to base_timestep
// regardless of its level (spec.md §8 scenario S6: "after a full global
// step, total simulated time advances by max_timestep exactly").
func (c *Controller) Timestep(currentLevel int) float64 {
	return c.BaseTimestep / float64(int64(1)<<uint(c.NumLevels-1-currentLevel))
}

// ProposeLevel computes a new level from the chemistry change-timescale
// and clamps it so a cell may not descend (go to a smaller level, i.e.
// update more often) by more than one step at a time (spec.md §4.3:
// "Clamp: proposed level may not be more than one below the current
// level."; §8 property 9: "new_level >= current_level - 1").
//
// raw counts how many halvings of base_timestep are needed to resolve
// changeTimescale; since level 0 already carries NumLevels-1 halvings
// (the finest available step), the proposed level is NumLevels-1-raw, so
// a cell that needs many halvings ends up at a low (fine) level number
// and a cell that needs none ends up at the coarsest level.
func (c *Controller) ProposeLevel(currentLevel int, changeTimescale float64) int {
	if math.IsInf(changeTimescale, 1) || changeTimescale <= 0 {
		return currentLevel
	}
	raw := math.Ceil(math.Log2(c.BaseTimestep / (changeTimescale * c.SafetyFactor)))
	halvings := int(raw)
	if halvings < 0 {
		halvings = 0
	}
	if halvings > c.NumLevels-1 {
		halvings = c.NumLevels - 1
	}
	proposed := c.NumLevels - 1 - halvings
	if proposed < currentLevel-1 {
		proposed = currentLevel - 1
	}
	if proposed < 0 {
		proposed = 0
	}
	if proposed > c.NumLevels-1 {
		proposed = c.NumLevels - 1
	}
	return proposed
}

// LevelUpdate is one (particle, level) pair exchanged between ranks after
// a global step so halo copies stay current (spec.md §4.3: "Level
// communication").
type LevelUpdate struct {
	ID    particle.Id
	Level int
}

// ExchangeHaloLevels sends each rank's local (id, level) pairs to whatever
// rank holds a halo copy of that cell, and returns the updates this rank
// should apply to its own halo copies, per spec.md §4.3: "every rank sends
// its local (id, level) pairs to each rank that holds a halo of those
// cells; halo levels are updated before the next step's initialization
// pass."
func ExchangeHaloLevels(c *comm.Communicator, outgoing comm.DataByRank[LevelUpdate]) []LevelUpdate {
	incoming := comm.Exchange(c, outgoing)
	var updates []LevelUpdate
	for _, batch := range incoming {
		updates = append(updates, batch...)
	}
	return updates
}
