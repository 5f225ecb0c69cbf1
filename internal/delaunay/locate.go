// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package delaunay

// locate performs the best-first adjacency walk of spec.md §4.2 step 1:
// starting from seed, repeatedly move to whichever unvisited neighbor's
// circumcenter is closest to p, until no neighbor improves on the current
// tetra, which (for a Delaunay mesh) is the tetra containing p. The
// Delaunay property bounds this to O(n^(1/d)) hops on random input; this
// implementation does not assume that bound and instead falls back to a
// full live-tetra scan if the walk revisits a tetra (a degenerate or
// disconnected mesh), so it always terminates.
func (t *Triangulation) locate(p [3]float64, seed TetraIndex) TetraIndex {
	cur := seed
	visited := make(map[int]bool)
	for {
		tet := t.Tetras.Get(cur)
		if tet == nil {
			return t.locateByScan(p)
		}
		if visited[cur.Slot] {
			return t.locateByScan(p)
		}
		visited[cur.Slot] = true
		if t.containsPoint(tet, p) {
			return cur
		}
		best := cur
		bestDist := t.distToCircumcenter(tet, p)
		for i := 0; i < tet.NVerts; i++ {
			nb := neighborOf(tet, i)
			if !nb.IsValid() || visited[nb.Slot] {
				continue
			}
			nbTet := t.Tetras.Get(nb)
			if nbTet == nil {
				continue
			}
			d := t.distToCircumcenter(nbTet, p)
			if d < bestDist {
				best, bestDist = nb, d
			}
		}
		if best == cur {
			// no neighbor improves: p is not inside any visited tetra but
			// the walk is stuck; the scan fallback resolves it.
			return t.locateByScan(p)
		}
		cur = best
	}
}

// locateByScan is the guaranteed-terminating fallback: a linear scan of
// every live tetra. Used when the adjacency walk cannot make progress
// (disconnected mesh, first insertion, or pathological input).
func (t *Triangulation) locateByScan(p [3]float64) TetraIndex {
	var found TetraIndex = InvalidTetra
	t.Tetras.Live(func(idx TetraIndex, tet *Tetra) {
		if !found.IsValid() && t.containsPoint(tet, p) {
			found = idx
		}
	})
	return found
}

// distToCircumcenter is the locate heuristic of spec.md §4.2: "heuristic
// distance = distance from p to the tetra's circumcenter."
func (t *Triangulation) distToCircumcenter(tet *Tetra, p [3]float64) float64 {
	center := t.circumcenter(tet)
	return norm(sub(center, p))
}

// containsPoint reports whether p lies inside tet by checking that p is on
// the interior side of every face (orientation test against the opposite
// vertex).
func (t *Triangulation) containsPoint(tet *Tetra, p [3]float64) bool {
	verts := t.vertPositions(tet)
	if tet.NVerts == 3 {
		// 2D: p must be on the same (positive) side as the interior for
		// each of the three edges, given the tetra is positively oriented.
		for i := 0; i < 3; i++ {
			a := verts[i]
			b := verts[(i+1)%3]
			if Orientation2D(a, b, p) == Negative {
				return false
			}
		}
		return true
	}
	// 3D: for each face, p must be on the same side as the opposite
	// vertex (or on the face).
	for i := 0; i < 4; i++ {
		face := [3]int{}
		k := 0
		for j := 0; j < 4; j++ {
			if j != i {
				face[k] = j
				k++
			}
		}
		a, b, c := verts[face[0]], verts[face[1]], verts[face[2]]
		opposite := verts[i]
		sOpp := Orientation3D(a, b, c, opposite)
		sP := Orientation3D(a, b, c, p)
		if sOpp == Imprecise || sP == Imprecise {
			continue // treat as inconclusive, not exclusionary
		}
		if sOpp != sP {
			return false
		}
	}
	return true
}

func (t *Triangulation) vertPositions(tet *Tetra) [4][3]float64 {
	var v [4][3]float64
	for i := 0; i < tet.NVerts; i++ {
		v[i] = t.Points.Position(tet.Verts[i])
	}
	return v
}

func (t *Triangulation) circumcenter(tet *Tetra) [3]float64 {
	v := t.vertPositions(tet)
	if tet.NVerts == 3 {
		return Circumcenter2D(v[0], v[1], v[2])
	}
	return Circumcenter3D(v[0], v[1], v[2], v[3])
}

func (t *Triangulation) circumradius(tet *Tetra) float64 {
	v := t.vertPositions(tet)
	center := t.circumcenter(tet)
	return norm(sub(v[0], center))
}
