// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package delaunay implements the 2D/3D incremental Delaunay
// triangulation: face/tetra arenas, point-location, Bowyer-Watson split
// and flip restoration, the positive-orientation invariant, and
// circumcircle/sphere computation with precision-error tracking
// (spec.md §2 "Delaunay triangulation", §4.2, §8 properties 1-2).
//
// Grounded on original_source/src/voronoi/delaunay/impl_2d.rs and
// impl_3d.rs, with the arena/stable-index idiom reused from the teacher's
// fem/domain.go (Vid2node/Cid2elem: never alias a removed entry by a stale
// raw index).
package delaunay

import "github.com/cpmech/gort/internal/particle"

// PointIndex is a stable reference into a PointArena. It carries a
// generation field for symmetry with TetraIndex, but points are never
// removed, so every PointIndex has Gen 1 and never goes stale.
type PointIndex struct {
	Slot int
	Gen  int
}

// PointKind distinguishes the three kinds of points a live triangulation
// may contain (spec.md §3, "Triangulation"): Inner (genuinely local),
// Outer (belongs to the enclosing bounding simplex) or Halo(rank).
type PointKind int

const (
	KindInner PointKind = iota
	KindOuter
	KindHalo
)

// Point is one vertex of the triangulation.
type Point struct {
	Position [3]float64
	Kind     PointKind
	HaloRank int32       // meaningful only if Kind == KindHalo
	Particle particle.Id // the particle this point corresponds to, if any
	gen      int
	alive    bool
}

// PointArena owns every Point ever inserted in this rank's triangulation.
// Points are never physically removed (Delaunay insertion never deletes a
// vertex), so Slot reuse is not needed; Gen exists purely so the same
// invariant style as the Tetra/Face arenas applies uniformly.
type PointArena struct {
	points []Point
}

// NewPointArena returns an empty arena with capacity preallocated.
func NewPointArena(capacity int) *PointArena {
	return &PointArena{points: make([]Point, 0, capacity)}
}

// Add inserts a new point and returns its stable index.
func (a *PointArena) Add(p Point) PointIndex {
	p.gen = 1
	p.alive = true
	slot := len(a.points)
	a.points = append(a.points, p)
	return PointIndex{Slot: slot, Gen: 1}
}

// Get dereferences idx without checking its generation: points are never
// removed, so a PointIndex cannot go stale. An out-of-range slot panics.
func (a *PointArena) Get(idx PointIndex) *Point {
	return &a.points[idx.Slot]
}

// Len reports how many points are held.
func (a *PointArena) Len() int { return len(a.points) }

// Position is a convenience accessor.
func (a *PointArena) Position(idx PointIndex) [3]float64 {
	return a.points[idx.Slot].Position
}
