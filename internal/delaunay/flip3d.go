// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package delaunay

// flip3D resolves a Delaunay violation across the shared triangular face of
// tetras a and b. The segment joining their two apexes is classified
// against the shared triangle: if it passes through the triangle's
// interior (Inside), a 2-to-3 flip applies; if it exits through exactly
// one edge (OutsideOneEdge) and the third tetra sharing that edge exists,
// a 3-to-2 flip applies instead; if it would exit through two edges at
// once (OutsideTwoEdges, a degenerate/cospherical configuration), neither
// flip is locally well-defined here and the face is left for a later pass
// to resolve once its neighbors have themselves been flipped (Springel
// 2009).
func (t *Triangulation) flip3D(a, b TetraIndex) ([]TetraIndex, error) {
	ta := t.Tetras.Get(a)
	tb := t.Tetras.Get(b)
	if ta == nil || tb == nil {
		return nil, nil
	}
	shared, apexA, apexB := sharedTriangleAndApexes(ta, tb)
	if shared[0] == shared[1] || shared[1] == shared[2] {
		return nil, nil // degenerate, not a genuine shared triangle
	}

	pos := func(p PointIndex) [3]float64 { return t.Points.Position(p) }

	// classify the edge (i, i+1) of the shared triangle: Positive/Negative
	// both mean the edge does not block the 2-to-3 flip; they differ in
	// sign only because of triangle winding, so compare pairwise instead
	// of against an absolute sign.
	signs := [3]Sign{}
	for i := 0; i < 3; i++ {
		vi := shared[i]
		vj := shared[(i+1)%3]
		signs[i] = Orientation3D(pos(vi), pos(vj), pos(apexA), pos(apexB))
	}
	agree01 := signs[0] == signs[1]
	agree12 := signs[1] == signs[2]
	agree20 := signs[2] == signs[0]
	switch {
	case agree01 && agree12:
		// all three edges agree: the segment passes through the
		// triangle's interior.
		return t.flip23(a, b, shared, apexA, apexB)
	case !agree01 && !agree12 && !agree20:
		// every edge disagrees with its neighbor: the configuration is
		// cospherical/degenerate here. Leave it for a later pass.
		return nil, nil
	}
	// exactly one edge disagrees with the other two; that is the edge the
	// segment exits through.
	outsideEdge := 0
	switch {
	case agree01:
		outsideEdge = 2 // signs[0]==signs[1], so signs[2] is the odd one out
	case agree12:
		outsideEdge = 0
	case agree20:
		outsideEdge = 1
	}

	vOther := shared[(outsideEdge+2)%3]
	tcIdx := thirdTetraAcrossEdge(t, a, vOther)
	tcIdxFromB := thirdTetraAcrossEdge(t, b, vOther)
	if !tcIdx.IsValid() || tcIdx != tcIdxFromB {
		return nil, nil // the rotor around this edge is not a clean triple; leave it
	}
	tc := t.Tetras.Get(tcIdx)
	if tc == nil {
		return nil, nil
	}
	vi := shared[outsideEdge]
	vj := shared[(outsideEdge+1)%3]
	if !containsVert(tc, apexA) || !containsVert(tc, apexB) {
		return nil, nil
	}
	return t.flip32(a, b, tcIdx, vi, vj, vOther, apexA, apexB)
}

// sharedTriangleAndApexes returns the 3 vertices ta and tb have in common
// (in ta's winding order) plus ta's lone vertex (apexA) and tb's lone
// vertex (apexB).
func sharedTriangleAndApexes(ta, tb *Tetra) ([3]PointIndex, PointIndex, PointIndex) {
	var shared [3]PointIndex
	k := 0
	var apexA PointIndex
	for i := 0; i < ta.NVerts; i++ {
		v := ta.Verts[i]
		if containsVert(tb, v) {
			if k < 3 {
				shared[k] = v
				k++
			}
		} else {
			apexA = v
		}
	}
	var apexB PointIndex
	for i := 0; i < tb.NVerts; i++ {
		if !containsVert(ta, tb.Verts[i]) {
			apexB = tb.Verts[i]
		}
	}
	return shared, apexA, apexB
}

// thirdTetraAcrossEdge returns the tetra adjacent to src across the face
// that excludes vOther, i.e. the neighbor reached by crossing the face
// opposite vOther within src.
func thirdTetraAcrossEdge(t *Triangulation, src TetraIndex, vOther PointIndex) TetraIndex {
	tet := t.Tetras.Get(src)
	if tet == nil {
		return InvalidTetra
	}
	for i := 0; i < tet.NVerts; i++ {
		if tet.Verts[i] == vOther {
			if !tet.Faces[i].HasOpposing {
				return InvalidTetra
			}
			return tet.Faces[i].OpposingTetra
		}
	}
	return InvalidTetra
}

// flip23 replaces two tetras sharing triangle (v0,v1,v2) with three tetras
// fanned around the new edge (apexA,apexB), one per edge of the old
// triangle.
func (t *Triangulation) flip23(a, b TetraIndex, shared [3]PointIndex, apexA, apexB PointIndex) ([]TetraIndex, error) {
	ta := t.Tetras.Get(a)
	tb := t.Tetras.Get(b)
	outerFromB := [3]TetraFace{} // face of b opposite shared[i], to become the new tetra's face opposite apexA
	outerFromA := [3]TetraFace{} // face of a opposite shared[i], to become the new tetra's face opposite apexB
	for i := 0; i < 3; i++ {
		outerFromB[i] = faceOpposite(tb, shared[i])
		outerFromA[i] = faceOpposite(ta, shared[i])
	}

	newIdx := make([]TetraIndex, 3)
	newVerts := make([][4]PointIndex, 3)
	for i := 0; i < 3; i++ {
		vi := shared[i]
		vj := shared[(i+1)%3]
		newVerts[i] = [4]PointIndex{vi, vj, apexA, apexB}
	}

	t.Tetras.Remove(a)
	t.Tetras.Remove(b)

	for i := 0; i < 3; i++ {
		newIdx[i] = t.Tetras.Add(Tetra{NVerts: 4, Verts: newVerts[i]})
	}

	for i := 0; i < 3; i++ {
		nt := t.Tetras.Get(newIdx[i])
		next := (i + 1) % 3
		faceID := t.Faces.Add(Face{})
		nt.Faces[0] = TetraFace{FaceIndex: faceID, HasOpposing: true, OpposingTetra: newIdx[next], OppositeVert: 1}
		// external faces: T_i's face opposite apexA/apexB is inherited
		// from whichever old tetra (b/a) had a face opposite the edge's
		// far vertex v(i+2).
		far := (i + 2) % 3
		nt.Faces[2] = outerFromB[far]
		nt.Faces[3] = outerFromA[far]
		repointExternal(t, outerFromB[far], b, newIdx[i])
		repointExternal(t, outerFromA[far], a, newIdx[i])
	}
	// fix up the slot1<->slot0 pairing now that every newIdx[i] exists.
	for i := 0; i < 3; i++ {
		nt := t.Tetras.Get(newIdx[i])
		prevIdx := newIdx[(i+2)%3]
		prevTet := t.Tetras.Get(prevIdx)
		nt.Faces[1] = TetraFace{FaceIndex: prevTet.Faces[0].FaceIndex, HasOpposing: true, OpposingTetra: prevIdx, OppositeVert: 0}
	}
	t.last = newIdx[0]
	return newIdx, nil
}

// faceOpposite returns the TetraFace of t that is opposite vertex v.
func faceOpposite(t *Tetra, v PointIndex) TetraFace {
	for i := 0; i < t.NVerts; i++ {
		if t.Verts[i] == v {
			return t.Faces[i]
		}
	}
	return TetraFace{}
}

// repointExternal updates the tetra across an inherited external face so
// its opposing link, which used to point at oldIdx, now points at newIdx.
func repointExternal(t *Triangulation, face TetraFace, oldIdx, newIdx TetraIndex) {
	if !face.HasOpposing {
		return
	}
	across := t.Tetras.Get(face.OpposingTetra)
	if across == nil {
		return
	}
	for i := 0; i < across.NVerts; i++ {
		if across.Faces[i].HasOpposing && across.Faces[i].OpposingTetra == oldIdx {
			across.Faces[i].OpposingTetra = newIdx
		}
	}
}

// flip32 is the inverse of flip23: three tetras (a, b, tc) sharing the
// common edge (vi,vj) -- a and b also sharing apex vOther of the original
// triangle, tc carrying both apexA and apexB -- collapse into two tetras
// sharing the new face (vOther,apexA,apexB).
func (t *Triangulation) flip32(a, b, tc TetraIndex, vi, vj, vOther, apexA, apexB PointIndex) ([]TetraIndex, error) {
	ta := t.Tetras.Get(a)
	tb := t.Tetras.Get(b)
	tcTet := t.Tetras.Get(tc)

	// T1 keeps vi, drops vj; inherits each old tetra's face opposite vj.
	// T2 keeps vj, drops vi; inherits each old tetra's face opposite vi.
	aOppVj, aOppVi := faceOpposite(ta, vj), faceOpposite(ta, vi)
	bOppVj, bOppVi := faceOpposite(tb, vj), faceOpposite(tb, vi)
	cOppVj, cOppVi := faceOpposite(tcTet, vj), faceOpposite(tcTet, vi)

	v1 := orientPositive(t, [4]PointIndex{vi, vOther, apexA, apexB})
	v2 := orientPositive(t, [4]PointIndex{vj, vOther, apexA, apexB})

	t.Tetras.Remove(a)
	t.Tetras.Remove(b)
	t.Tetras.Remove(tc)

	i1 := t.Tetras.Add(Tetra{NVerts: 4, Verts: v1})
	i2 := t.Tetras.Add(Tetra{NVerts: 4, Verts: v2})
	n1 := t.Tetras.Get(i1)
	n2 := t.Tetras.Get(i2)

	faceID := t.Faces.Add(Face{})
	assignFaceTo(n1, vi, TetraFace{FaceIndex: faceID, HasOpposing: true, OpposingTetra: i2, OppositeVert: slotOf(n2, vj)})
	assignFaceTo(n2, vj, TetraFace{FaceIndex: faceID, HasOpposing: true, OpposingTetra: i1, OppositeVert: slotOf(n1, vi)})

	assignFaceTo(n1, vOther, cOppVj)
	assignFaceTo(n1, apexA, bOppVj)
	assignFaceTo(n1, apexB, aOppVj)
	repointExternal(t, cOppVj, tc, i1)
	repointExternal(t, bOppVj, b, i1)
	repointExternal(t, aOppVj, a, i1)

	assignFaceTo(n2, vOther, cOppVi)
	assignFaceTo(n2, apexA, bOppVi)
	assignFaceTo(n2, apexB, aOppVi)
	repointExternal(t, cOppVi, tc, i2)
	repointExternal(t, bOppVi, b, i2)
	repointExternal(t, aOppVi, a, i2)

	t.last = i1
	return []TetraIndex{i1, i2}, nil
}

// orientPositive returns verts, swapping the last two entries if needed so
// that the resulting tetra satisfies the positive-orientation invariant.
func orientPositive(t *Triangulation, verts [4]PointIndex) [4]PointIndex {
	pos := func(p PointIndex) [3]float64 { return t.Points.Position(p) }
	s := Orientation3D(pos(verts[0]), pos(verts[1]), pos(verts[2]), pos(verts[3]))
	if s == Negative {
		verts[2], verts[3] = verts[3], verts[2]
	}
	return verts
}

// assignFaceTo writes face into the slot of nt opposite vertex v.
func assignFaceTo(nt *Tetra, v PointIndex, face TetraFace) {
	for i := 0; i < nt.NVerts; i++ {
		if nt.Verts[i] == v {
			nt.Faces[i] = face
			return
		}
	}
}

// slotOf returns the vertex-array slot of v within nt, or -1 if absent.
func slotOf(nt *Tetra, v PointIndex) int {
	for i := 0; i < nt.NVerts; i++ {
		if nt.Verts[i] == v {
			return i
		}
	}
	return -1
}
