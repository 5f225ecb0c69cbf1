// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package voronoi

import "github.com/cpmech/gort/internal/particle"

// NeighborKind tags which of the four neighbor shapes spec.md §3 names a
// Voronoi face connects to.
type NeighborKind int

const (
	NeighborLocal NeighborKind = iota
	NeighborRemote
	NeighborBoundary
	NeighborPeriodicHalo
)

// Neighbor is the typed union spec.md §3 calls ParticleType: Local(id),
// Remote{id,rank,periodic_wrap}, Boundary, or PeriodicHalo{id,periodic_wrap}.
type Neighbor struct {
	Kind         NeighborKind
	ID           particle.Id
	Rank         int32
	PeriodicWrap [3]int8
}

// Face is one facet of a generating point's Voronoi cell.
type Face struct {
	Area     float64
	Normal   [3]float64 // unit vector, points outward from the generator
	Neighbor Neighbor
}

// Cell is the full Voronoi cell of one generating point.
type Cell struct {
	Generator particle.Id
	Volume    float64
	Faces     []Face
	Infinite  bool // true if any incident tetra has an Outer vertex
}
