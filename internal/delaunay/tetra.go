// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package delaunay

// TetraIndex is a stable, generation-tagged reference into a TetraArena.
// Once a tetra is removed its slot may be recycled, but the Generation
// field changes so a stale TetraIndex held by a removed adjacency link is
// detectable rather than silently aliasing the new occupant (spec.md §9,
// "cyclic adjacency in Delaunay tetras").
type TetraIndex struct {
	Slot int
	Gen  int
}

// InvalidTetra is the "no tetra" sentinel: Slot -1 fails IsValid, and Gen
// 0 never matches a live tetra, since generations start at 1.
var InvalidTetra = TetraIndex{Slot: -1, Gen: 0}

// IsValid reports whether idx can plausibly refer to a live tetra.
func (idx TetraIndex) IsValid() bool { return idx.Slot >= 0 }

// TetraFace is one face of a Tetra: which Face arena entry it corresponds
// to, and the tetra (if any) on the other side, plus which of that
// neighbor's vertices is "opposite" this face -- the vertex Bowyer-Watson's
// in-circumsphere test needs (spec.md §3, "TetraFace").
type TetraFace struct {
	FaceIndex     int
	HasOpposing   bool
	OpposingTetra TetraIndex
	OppositeVert  int // index, within the opposing tetra's Verts, of the far vertex
}

// Tetra is a single simplex: a triangle in 2D (NVerts==3) or a
// tetrahedron in 3D (NVerts==4), unified as the spec's data model does
// (spec.md §3, "Triangulation").
type Tetra struct {
	NVerts int
	Verts  [4]PointIndex
	Faces  [4]TetraFace // only the first NVerts entries are meaningful
	gen    int
	alive  bool
}

// TetraArena owns every live and recently-removed Tetra. Slots of removed
// tetras are recycled via freeList, with Gen bumped so any TetraIndex still
// pointing at the old occupant is recognizably stale.
type TetraArena struct {
	tetras   []Tetra
	freeList []int
}

// NewTetraArena returns an empty arena with capacity preallocated.
func NewTetraArena(capacity int) *TetraArena {
	return &TetraArena{tetras: make([]Tetra, 0, capacity)}
}

// Add inserts t and returns its stable index, reusing a freed slot if one
// is available.
func (a *TetraArena) Add(t Tetra) TetraIndex {
	t.alive = true
	if len(a.freeList) > 0 {
		slot := a.freeList[len(a.freeList)-1]
		a.freeList = a.freeList[:len(a.freeList)-1]
		t.gen = a.tetras[slot].gen + 1
		a.tetras[slot] = t
		return TetraIndex{Slot: slot, Gen: t.gen}
	}
	t.gen = 1
	slot := len(a.tetras)
	a.tetras = append(a.tetras, t)
	return TetraIndex{Slot: slot, Gen: 1}
}

// Get dereferences idx. Returns nil if idx is stale (generation mismatch)
// or refers to a removed slot -- callers must check for nil rather than
// assume success, exactly because adjacency links can go stale mid-flip.
func (a *TetraArena) Get(idx TetraIndex) *Tetra {
	if idx.Slot < 0 || idx.Slot >= len(a.tetras) {
		return nil
	}
	t := &a.tetras[idx.Slot]
	if !t.alive || t.gen != idx.Gen {
		return nil
	}
	return t
}

// Remove retires idx's slot. Every TetraFace in every live neighbor that
// still points at idx is expected to have already been cleared by the
// caller (spec.md §9: "every mutation that removes a tetra must clear the
// opposing link in adjacent tetras") -- Remove itself only retires the
// slot, it does not walk neighbors, since callers already hold the
// neighbor indices they need to patch as part of the flip/split logic.
func (a *TetraArena) Remove(idx TetraIndex) {
	t := a.Get(idx)
	if t == nil {
		return
	}
	t.alive = false
	a.freeList = append(a.freeList, idx.Slot)
}

// Live iterates every currently-live tetra index, used by the undecided-
// tetra scan (spec.md §4.2) and by invariant checks (spec.md §8).
func (a *TetraArena) Live(fn func(TetraIndex, *Tetra)) {
	for slot := range a.tetras {
		t := &a.tetras[slot]
		if t.alive {
			fn(TetraIndex{Slot: slot, Gen: t.gen}, t)
		}
	}
}

// LenLive counts live tetras.
func (a *TetraArena) LenLive() int {
	n := 0
	a.Live(func(TetraIndex, *Tetra) { n++ })
	return n
}

// neighborOf returns the tetra on the other side of face i of t, or
// InvalidTetra if that face is a boundary.
func neighborOf(t *Tetra, faceIdx int) TetraIndex {
	f := t.Faces[faceIdx]
	if !f.HasOpposing {
		return InvalidTetra
	}
	return f.OpposingTetra
}
