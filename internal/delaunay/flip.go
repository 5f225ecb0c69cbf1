// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package delaunay

import "github.com/cpmech/gort/internal/rterr"

// restoreDelaunay drains a queue of newly-created/newly-exposed tetras,
// checking each face against its neighbor's opposite vertex and flipping
// when the Delaunay condition is violated, until the queue empties
// (spec.md §4.2 step 3-4: "push all newly exposed faces onto a flip-check
// queue; process to fixed point").
func (t *Triangulation) restoreDelaunay(seed []TetraIndex) error {
	queue := append([]TetraIndex{}, seed...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		tet := t.Tetras.Get(cur)
		if tet == nil {
			continue // this tetra was already consumed by an earlier flip
		}
		for faceSlot := 0; faceSlot < tet.NVerts; faceSlot++ {
			more, err := t.checkAndFlip(cur, faceSlot)
			if err != nil {
				return err
			}
			queue = append(queue, more...)
		}
	}
	return nil
}

// checkAndFlip tests the Delaunay condition across one face of tet and, if
// violated, performs the appropriate flip, returning the tetras newly
// created by the flip so they re-enter the queue.
func (t *Triangulation) checkAndFlip(idx TetraIndex, faceSlot int) ([]TetraIndex, error) {
	tet := t.Tetras.Get(idx)
	if tet == nil {
		return nil, nil
	}
	face := tet.Faces[faceSlot]
	if !face.HasOpposing {
		return nil, nil // boundary face against the bounding simplex's exterior
	}
	other := t.Tetras.Get(face.OpposingTetra)
	if other == nil {
		return nil, nil
	}
	verts := t.vertPositions(tet)
	opposite := t.Points.Position(other.Verts[face.OppositeVert])

	var violated bool
	if tet.NVerts == 3 {
		s := InCircle2D(verts[0], verts[1], verts[2], opposite)
		violated = s == Positive
	} else {
		s := InSphere3D(verts[0], verts[1], verts[2], verts[3], opposite)
		violated = s == Positive
	}
	if !violated {
		return nil, nil
	}
	if tet.NVerts == 3 {
		return t.flip2D(idx, face.OpposingTetra)
	}
	return t.flip3D(idx, face.OpposingTetra)
}

// flip2D performs the single-edge flip of spec.md §4.2: two triangles
// sharing an edge are replaced by two triangles sharing the other
// diagonal.
func (t *Triangulation) flip2D(a, b TetraIndex) ([]TetraIndex, error) {
	ta := t.Tetras.Get(a)
	tb := t.Tetras.Get(b)
	if ta == nil || tb == nil {
		return nil, nil
	}
	sharedEdge, pa, pb := sharedEdgeAndOpposites(ta, tb)
	if sharedEdge[0] == sharedEdge[1] {
		return nil, rterr.New(rterr.LogicInvariantBroken, "flip2D: triangles do not share an edge")
	}
	// new triangles: (pa, pb, sharedEdge[0]) and (pa, pb, sharedEdge[1])
	n1 := Tetra{NVerts: 3, Verts: [4]PointIndex{pa, pb, sharedEdge[0]}}
	n2 := Tetra{NVerts: 3, Verts: [4]PointIndex{pb, pa, sharedEdge[1]}}
	t.Tetras.Remove(a)
	t.Tetras.Remove(b)
	i1 := t.Tetras.Add(n1)
	i2 := t.Tetras.Add(n2)
	t.wireAcrossFlippedEdge(i1, i2)
	t.reconnectExternalFaces(a, i1, i2, ta)
	t.reconnectExternalFaces(b, i1, i2, tb)
	t.last = i1
	return []TetraIndex{i1, i2}, nil
}

// sharedEdgeAndOpposites returns the two points shared by ta and tb plus
// the point of ta not in tb (pa) and the point of tb not in ta (pb).
func sharedEdgeAndOpposites(ta, tb *Tetra) ([2]PointIndex, PointIndex, PointIndex) {
	var shared [2]PointIndex
	k := 0
	var pa PointIndex
	for i := 0; i < ta.NVerts; i++ {
		v := ta.Verts[i]
		if containsVert(tb, v) {
			if k < 2 {
				shared[k] = v
				k++
			}
		} else {
			pa = v
		}
	}
	var pb PointIndex
	for i := 0; i < tb.NVerts; i++ {
		v := tb.Verts[i]
		if !containsVert(ta, v) {
			pb = v
		}
	}
	return shared, pa, pb
}

func containsVert(t *Tetra, v PointIndex) bool {
	for i := 0; i < t.NVerts; i++ {
		if t.Verts[i] == v {
			return true
		}
	}
	return false
}

// wireAcrossFlippedEdge connects the two newly-created triangles across
// their shared (flipped) edge pa-pb.
func (t *Triangulation) wireAcrossFlippedEdge(i1, i2 TetraIndex) {
	t1 := t.Tetras.Get(i1)
	t2 := t.Tetras.Get(i2)
	faceIdx := t.Faces.Add(Face{})
	t1.Faces[2] = TetraFace{FaceIndex: faceIdx, HasOpposing: true, OpposingTetra: i2, OppositeVert: 2}
	t2.Faces[2] = TetraFace{FaceIndex: faceIdx, HasOpposing: true, OpposingTetra: i1, OppositeVert: 2}
}

// reconnectExternalFaces re-homes the links that used to point at the
// removed triangle `old` so they point at whichever of the two new
// triangles (newA, newB) now owns that boundary, matched by shared vertex
// pair.
func (t *Triangulation) reconnectExternalFaces(removedIdx, newA, newB TetraIndex, removed *Tetra) {
	for slot := 0; slot < removed.NVerts; slot++ {
		face := removed.Faces[slot]
		if !face.HasOpposing {
			continue
		}
		across := t.Tetras.Get(face.OpposingTetra)
		if across == nil {
			continue
		}
		// determine which of newA/newB shares the same two vertices as
		// `removed`'s face at `slot` (i.e. removed's vertices minus the
		// one at `slot`)
		keep := make(map[PointIndex]bool)
		for i := 0; i < removed.NVerts; i++ {
			if i != slot {
				keep[removed.Verts[i]] = true
			}
		}
		target := pickMatchingTetra(t, newA, newB, keep)
		for i := 0; i < across.NVerts; i++ {
			if across.Faces[i].HasOpposing && across.Faces[i].OpposingTetra == removedIdx {
				across.Faces[i].OpposingTetra = target
			}
		}
	}
}

func pickMatchingTetra(t *Triangulation, a, b TetraIndex, keep map[PointIndex]bool) TetraIndex {
	ta := t.Tetras.Get(a)
	if ta != nil {
		matches := 0
		for i := 0; i < ta.NVerts; i++ {
			if keep[ta.Verts[i]] {
				matches++
			}
		}
		if matches >= len(keep) {
			return a
		}
	}
	return b
}
