// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package delaunay

import (
	"github.com/cpmech/gosl/gm"

	"github.com/cpmech/gort/internal/extent"
	"github.com/cpmech/gort/internal/particle"
	"github.com/cpmech/gort/internal/rterr"
)

// Triangulation owns one rank's incremental Delaunay mesh: arenas of
// Point/Face/Tetra plus the bookkeeping insertion needs (spec.md §3).
type Triangulation struct {
	Dim    int // 2 or 3
	Points *PointArena
	Faces  *FaceArena
	Tetras *TetraArena
	last   TetraIndex

	// bins indexes every live point by position so Insert can recognize an
	// exact-duplicate coordinate (e.g. a halo point reinserted from two
	// overlapping extents) and return the existing PointIndex instead of
	// splitting a zero-measure tetra at a coincident vertex. Grounded on
	// the teacher's own NodBins/IpsBins (out/out.go): Init once over the
	// triangulation's working volume, Append each point as it is added,
	// Find to look one up by coordinate.
	bins      gm.Bins
	binsReady bool
}

// New builds an empty triangulation seeded with one all-encompassing
// bounding simplex well outside box, per spec.md §4.2: "Start from an
// all-encompassing simplex well outside the true point cloud."
func New(dim int, box extent.Extent) *Triangulation {
	t := &Triangulation{
		Dim:    dim,
		Points: NewPointArena(256),
		Faces:  NewFaceArena(256),
		Tetras: NewTetraArena(256),
	}
	if dim == 2 {
		t.seedBoundingTriangle(box)
	} else {
		t.seedBoundingTetra(box)
	}
	t.initBins(dim, box)
	return t
}

// binsNdiv mirrors the teacher's own out.Ndiv default (out/out.go): a
// coarse, fixed division count is enough for a point-lookup index, not a
// tuned performance parameter.
const binsNdiv = 20

// initBins sizes the duplicate-lookup bins over the same inflated region
// the bounding simplex occupies, so every point this triangulation can
// ever legally hold (including the outer simplex's own corners) falls
// inside the indexed range.
func (t *Triangulation) initBins(dim int, box extent.Extent) {
	c := box.Center()
	size := box.Size()
	r := margin * (size[0] + size[1] + size[2] + 1)
	var xi, xf []float64
	if dim == 2 {
		xi = []float64{c[0] - r, c[1] - r}
		xf = []float64{c[0] + r, c[1] + r}
	} else {
		xi = []float64{c[0] - r, c[1] - r, c[2] - r}
		xf = []float64{c[0] + r, c[1] + r, c[2] + r}
	}
	if err := t.bins.Init(xi, xf, binsNdiv); err == nil {
		t.binsReady = true
	}
}

// binsCoords reduces pos to the coordinate slice bins indexes on: both
// axes in 2D, all three in 3D (z is degenerate in every 2D run).
func (t *Triangulation) binsCoords(pos [3]float64) []float64 {
	if t.Dim == 2 {
		return []float64{pos[0], pos[1]}
	}
	return []float64{pos[0], pos[1], pos[2]}
}

// margin inflates the bounding box well past the real point cloud so that
// no inserted point can ever coincide with or fall outside the outer
// simplex.
const margin = 10.0

func (t *Triangulation) seedBoundingTriangle(box extent.Extent) {
	c := box.Center()
	size := box.Size()
	r := margin * (size[0] + size[1] + 1)
	p0 := t.Points.Add(Point{Position: [3]float64{c[0] - r, c[1] - r, 0}, Kind: KindOuter})
	p1 := t.Points.Add(Point{Position: [3]float64{c[0] + r, c[1] - r, 0}, Kind: KindOuter})
	p2 := t.Points.Add(Point{Position: [3]float64{c[0], c[1] + r, 0}, Kind: KindOuter})
	tet := Tetra{NVerts: 3, Verts: [4]PointIndex{p0, p1, p2}}
	idx := t.Tetras.Add(tet)
	t.last = idx
}

func (t *Triangulation) seedBoundingTetra(box extent.Extent) {
	c := box.Center()
	size := box.Size()
	r := margin * (size[0] + size[1] + size[2] + 1)
	p0 := t.Points.Add(Point{Position: [3]float64{c[0] - r, c[1] - r, c[2] - r}, Kind: KindOuter})
	p1 := t.Points.Add(Point{Position: [3]float64{c[0] + r, c[1] - r, c[2] - r}, Kind: KindOuter})
	p2 := t.Points.Add(Point{Position: [3]float64{c[0], c[1] + r, c[2] - r}, Kind: KindOuter})
	p3 := t.Points.Add(Point{Position: [3]float64{c[0], c[1], c[2] + r}, Kind: KindOuter})
	tet := Tetra{NVerts: 4, Verts: [4]PointIndex{p0, p1, p2, p3}}
	idx := t.Tetras.Add(tet)
	t.last = idx
}

// InsertOptions controls how a point is tagged on insertion.
type InsertOptions struct {
	Kind         PointKind
	HaloRank     int32
	Particle     particle.Id
}

// Insert adds one point to the triangulation: locates its containing
// tetra, performs the Bowyer-Watson split, then restores the Delaunay
// condition by flipping outward from the newly exposed faces until no
// more flips are needed (spec.md §4.2 steps 1-4).
func (t *Triangulation) Insert(pos [3]float64, opts InsertOptions) (PointIndex, error) {
	if t.binsReady {
		if slot := t.bins.Find(t.binsCoords(pos)); slot >= 0 {
			return PointIndex{Slot: slot, Gen: 1}, nil
		}
	}

	containing := t.locate(pos, t.last)
	if !containing.IsValid() {
		return PointIndex{}, rterr.New(rterr.DegenerateInput, "could not locate a tetra containing the new point %v", pos)
	}
	pidx := t.Points.Add(Point{Position: pos, Kind: opts.Kind, HaloRank: opts.HaloRank, Particle: opts.Particle})
	if t.binsReady {
		t.bins.Append(t.binsCoords(pos), pidx.Slot)
	}

	queue, err := t.splitTetra(containing, pidx)
	if err != nil {
		return pidx, err
	}
	if err := t.restoreDelaunay(queue); err != nil {
		return pidx, err
	}
	return pidx, nil
}

// splitTetra implements the Bowyer-Watson split (spec.md §4.2 step 2):
// replace the containing tetra with NVerts new sub-tetras, each sharing
// newPoint as a vertex and one old face as its opposite face. Returns the
// new sub-tetras, which the caller queues for flip-checking.
func (t *Triangulation) splitTetra(containing TetraIndex, newPoint PointIndex) ([]TetraIndex, error) {
	old := t.Tetras.Get(containing)
	if old == nil {
		return nil, rterr.New(rterr.LogicInvariantBroken, "splitTetra: containing tetra vanished")
	}
	n := old.NVerts
	oldVerts := old.Verts
	oldFaces := old.Faces
	newTetras := make([]TetraIndex, n)

	// build the n new tetras first (vertices only), so we can wire their
	// mutual adjacency once all indices are known
	for i := 0; i < n; i++ {
		verts := [4]PointIndex{}
		k := 0
		for j := 0; j < n; j++ {
			if j != i {
				verts[k] = oldVerts[j]
				k++
			}
		}
		verts[n-1] = newPoint
		nt := Tetra{NVerts: n, Verts: verts}
		newTetras[i] = t.Tetras.Add(nt)
	}
	t.Tetras.Remove(containing)

	// wire the "outer" face of each new tetra (the one opposite newPoint,
	// i.e. the old face i) to whatever used to be opposite it
	for i := 0; i < n; i++ {
		nt := t.Tetras.Get(newTetras[i])
		outerFaceSlot := n - 1 // newPoint occupies Verts[n-1]; its opposite face is index n-1
		nt.Faces[outerFaceSlot] = oldFaces[i]
		if oldFaces[i].HasOpposing {
			t.repointOpposing(oldFaces[i].OpposingTetra, containing, newTetras[i], oldFaces[i].FaceIndex)
		}
	}
	// wire the "inner" faces between every pair of new tetras: tetra i and
	// tetra j (i != j) share the face spanned by newPoint and every old
	// vertex except i and j.
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			ti := t.Tetras.Get(newTetras[i])
			faceIdx := t.Faces.Add(Face{})
			// the slot within tetra i's Faces array opposite vertex j's
			// position within tetra i's own vertex list
			slot := slotOppositeOldVertex(n, i, j)
			ti.Faces[slot] = TetraFace{
				FaceIndex:     faceIdx,
				HasOpposing:   true,
				OpposingTetra: newTetras[j],
				OppositeVert:  slotOppositeOldVertex(n, j, i),
			}
		}
	}
	t.last = newTetras[0]
	return newTetras, nil
}

// slotOppositeOldVertex returns, within new-tetra i's vertex array, the
// slot index of the face shared with new-tetra j, i.e. the slot that does
// NOT contain old vertex j (tetra i already excludes old vertex i and
// carries newPoint at the last slot).
func slotOppositeOldVertex(n, i, j int) int {
	slot := 0
	for old := 0; old < n; old++ {
		if old == i {
			continue
		}
		if old == j {
			return slot
		}
		slot++
	}
	return n - 1
}

// repointOpposing updates the tetra across a pre-existing face so its
// opposing link, which used to point at oldIdx, now points at newIdx.
func (t *Triangulation) repointOpposing(across, oldIdx, newIdx TetraIndex, faceIdxOnOldSide int) {
	tet := t.Tetras.Get(across)
	if tet == nil {
		return
	}
	for i := 0; i < tet.NVerts; i++ {
		if tet.Faces[i].HasOpposing && tet.Faces[i].OpposingTetra == oldIdx {
			tet.Faces[i].OpposingTetra = newIdx
		}
	}
}

// NumLiveTetras reports the current live tetra count, used by invariant
// property tests (spec.md §8).
func (t *Triangulation) NumLiveTetras() int { return t.Tetras.LenLive() }

// Circumcenter exposes the triangulation's circumcenter computation for
// callers outside this package (voronoi's cell derivation, spec.md §4.2
// "Voronoi derivation": "each tetra's circumcenter contributes one vertex
// of p's Voronoi cell").
func (t *Triangulation) Circumcenter(tet *Tetra) [3]float64 { return t.circumcenter(tet) }

// VertPositions exposes the live vertex coordinates of tet, in Verts
// order.
func (t *Triangulation) VertPositions(tet *Tetra) [4][3]float64 { return t.vertPositions(tet) }

// AllPositivelyOriented checks spec.md §8 property 1 over the whole live
// set; used by property tests, not by the hot insertion path.
func (t *Triangulation) AllPositivelyOriented() bool {
	ok := true
	t.Tetras.Live(func(_ TetraIndex, tet *Tetra) {
		v := t.vertPositions(tet)
		var s Sign
		if tet.NVerts == 3 {
			s = Orientation2D(v[0], v[1], v[2])
		} else {
			s = Orientation3D(v[0], v[1], v[2], v[3])
		}
		if s == Negative {
			ok = false
		}
	})
	return ok
}
