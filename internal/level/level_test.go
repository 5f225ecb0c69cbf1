// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package level

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
)

func TestNewRejectsDegenerateInput(tst *testing.T) {
	chk.PrintTitle("NewRejectsDegenerateInput")
	if _, err := New(0, 1.0, 0.5, nil); err == nil {
		tst.Errorf("expected an error for numLevels < 1")
	}
	if _, err := New(3, 0, 0.5, nil); err == nil {
		tst.Errorf("expected an error for non-positive base timestep")
	}
}

func TestIsActiveMatchesBinarySubcycling(tst *testing.T) {
	chk.PrintTitle("IsActiveMatchesBinarySubcycling")
	c, err := New(3, 1.0, 0.5, nil)
	if err != nil {
		tst.Fatal(err)
	}
	// level 0 active every sub-step, level 1 every 2nd, level 2 every 4th.
	for sub := 0; sub < c.NumSubSteps(); sub++ {
		if !c.IsActive(0, sub) {
			tst.Errorf("level 0 must be active at every sub-step, failed at %d", sub)
		}
		want1 := sub%2 == 0
		if c.IsActive(1, sub) != want1 {
			tst.Errorf("level 1 activity mismatch at sub-step %d", sub)
		}
		want2 := sub%4 == 0
		if c.IsActive(2, sub) != want2 {
			tst.Errorf("level 2 activity mismatch at sub-step %d", sub)
		}
	}
}

func TestNumSubStepsAndTimestepAgree(tst *testing.T) {
	chk.PrintTitle("NumSubStepsAndTimestepAgree")
	c, err := New(4, 8.0, 0.5, nil)
	if err != nil {
		tst.Fatal(err)
	}
	if c.NumSubSteps() != 8 {
		tst.Errorf("expected 8 sub-steps for 4 levels, got %d", c.NumSubSteps())
	}
	// for every level, summing its timestep over only the sub-steps it is
	// actually active in must reconstruct exactly the base timestep
	// (spec.md §8 scenario S6).
	for l := 0; l < c.NumLevels; l++ {
		total := 0.0
		for i := 0; i < c.NumSubSteps(); i++ {
			if c.IsActive(l, i) {
				total += c.Timestep(l)
			}
		}
		if math.Abs(total-c.BaseTimestep) > 1e-9 {
			tst.Errorf("level %d: active sub-steps must sum to the base timestep: got %v, want %v", l, total, c.BaseTimestep)
		}
	}
}

func TestProposeLevelClampsDescentByOne(tst *testing.T) {
	chk.PrintTitle("ProposeLevelClampsDescentByOne")
	c, err := New(5, 1.0, 1.0, nil)
	if err != nil {
		tst.Fatal(err)
	}
	// an extremely short change timescale would propose a very deep
	// level, but the clamp must never let it descend by more than one
	// from the current level.
	got := c.ProposeLevel(4, 1e-12)
	if got < 3 {
		tst.Errorf("expected level to descend by at most one step, got %d (from 4)", got)
	}
}

func TestProposeLevelClampsToValidRange(tst *testing.T) {
	chk.PrintTitle("ProposeLevelClampsToValidRange")
	c, err := New(3, 1.0, 1.0, nil)
	if err != nil {
		tst.Fatal(err)
	}
	if got := c.ProposeLevel(0, math.Inf(1)); got < 0 || got > c.NumLevels-1 {
		tst.Errorf("proposed level %d out of range [0,%d]", got, c.NumLevels-1)
	}
	// a non-positive or infinite change timescale carries no information
	// about how fast the cell is evolving, so the level is left unchanged
	// rather than guessed at.
	if got := c.ProposeLevel(1, 0); got != 1 {
		tst.Errorf("a non-positive change timescale should leave the level unchanged, got %d", got)
	}
	if got := c.ProposeLevel(2, 1e-9); got > c.NumLevels-1 {
		tst.Errorf("proposed level %d exceeds NumLevels-1=%d", got, c.NumLevels-1)
	}
}
