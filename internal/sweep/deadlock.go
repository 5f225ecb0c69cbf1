// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sweep

import "github.com/cpmech/gort/internal/rterr"

// deadlockMonitor counts consecutive rounds of a direction's sweep loop
// in which no rank anywhere made progress (no task processed, no message
// sent or received). A cycle-free upwind graph can never stall this way
// once every remote dependency correctly resolves to "not blocking" for
// inactive sub-steps (spec.md §4.3); a sustained stall therefore points
// at a bug, not a legitimate wait, and is reported rather than silently
// spun on forever (spec.md §8, "Deadlock detection", gated by
// sweep.check_deadlock).
//
// Grounded on original_source/src/sweep/deadlock_detection.rs, which
// counts stalled rounds the same way rather than building an explicit
// wait-for graph: the sweep's dependency structure is simple enough that
// a round counter catches every real deadlock without the bookkeeping
// cost of cycle detection.
type deadlockMonitor struct {
	enabled      bool
	maxStalled   int
	directionIdx int
	stalled      int
}

func newDeadlockMonitor(enabled bool, maxStalled, directionIdx int) *deadlockMonitor {
	return &deadlockMonitor{enabled: enabled, maxStalled: maxStalled, directionIdx: directionIdx}
}

// Observe records whether this round made progress, panicking with a
// LogicInvariantBroken error once the stall has gone on too long.
func (m *deadlockMonitor) Observe(progressed bool) {
	if progressed {
		m.stalled = 0
		return
	}
	m.stalled++
	if m.enabled && m.stalled > m.maxStalled {
		rterr.Fatal(rterr.LogicInvariantBroken,
			"sweep: direction %d made no progress for %d rounds; suspected deadlock in the upwind dependency graph",
			m.directionIdx, m.stalled)
	}
}
