// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package voronoi derives the Voronoi mesh (cell volumes, face areas,
// normals, typed neighbors) from a converged Delaunay triangulation, and
// drives the parallel halo-iteration loop that converges it across ranks
// (spec.md §2 "Parallel Voronoi construction", §4.2 "Voronoi derivation"
// and "Parallel halo iteration").
//
// Grounded on original_source/src/voronoi/mod.rs, src/voronoi/face.rs and
// src/voronoi/constructor/halo_iteration.rs; the 2D Voronoi example
// geometry (original_source/examples/2d_voronoi/main.rs) grounds the S1
// end-to-end test in construct_test.go.
package voronoi

import (
	"math"
	"sort"

	"github.com/cpmech/gort/internal/delaunay"
	"github.com/cpmech/gort/internal/particle"
)

// ParticleLookup resolves a delaunay Point's attached particle identity to
// the richer particle record voronoi needs (kind and periodic wrap; the
// owning rank comes from the point's own HaloRank) without this package
// importing the simulation-wide particle store directly.
type ParticleLookup func(particle.Id) (kind particle.Kind, periodicWrap [3]int8)

// BuildCell derives the Voronoi cell of the point at center, per spec.md
// §4.2: "collect the tetras incident on p, ordered by angle around p;
// each tetra's circumcenter contributes one vertex of p's cell. Adjacent
// tetras in the cyclic order share a Delaunay edge; the Voronoi face
// perpendicular to that edge connects their circumcenters."
func BuildCell(tr *delaunay.Triangulation, center delaunay.PointIndex, localRank int32, lookup ParticleLookup) Cell {
	centerPoint := tr.Points.Get(center)
	cell := Cell{Generator: centerPoint.Particle}

	incident := incidentTetras(tr, center)
	for _, it := range incident {
		if hasOuterVertex(tr, it.tet) {
			cell.Infinite = true
		}
	}
	neighbors := delaunayNeighbors(tr, center, incident)

	centerPos := centerPoint.Position
	var volumeAccum float64
	for _, q := range neighbors {
		corners := sharedCircumcenters(tr, center, q, incident)
		if len(corners) < 2 {
			continue
		}
		qPoint := tr.Points.Get(q)
		normal := unit(sub3(qPoint.Position, centerPos))
		area, centroid := polygonAreaAndCentroid(corners, normal)
		neighbor := classifyNeighbor(qPoint, localRank, lookup)
		cell.Faces = append(cell.Faces, Face{Area: area, Normal: normal, Neighbor: neighbor})
		// volume contribution of the cone (in 2D, the triangle) from the
		// generator to this face, base times height over the dimension,
		// used only to report a cell volume; the face geometry itself does
		// not depend on this term.
		volumeAccum += area * dot3(sub3(centroid, centerPos), normal) / float64(tr.Dim)
	}
	cell.Volume = math.Abs(volumeAccum)
	return cell
}

type incidentTetra struct {
	idx delaunay.TetraIndex
	tet *delaunay.Tetra
}

// incidentTetras returns every live tetra that has center as one of its
// vertices.
func incidentTetras(tr *delaunay.Triangulation, center delaunay.PointIndex) []incidentTetra {
	var out []incidentTetra
	tr.Tetras.Live(func(idx delaunay.TetraIndex, tet *delaunay.Tetra) {
		for i := 0; i < tet.NVerts; i++ {
			if tet.Verts[i] == center {
				out = append(out, incidentTetra{idx, tet})
				return
			}
		}
	})
	return out
}

func hasOuterVertex(tr *delaunay.Triangulation, tet *delaunay.Tetra) bool {
	for i := 0; i < tet.NVerts; i++ {
		if tr.Points.Get(tet.Verts[i]).Kind == delaunay.KindOuter {
			return true
		}
	}
	return false
}

// delaunayNeighbors lists every point sharing a Delaunay edge with center,
// deduplicated, drawn only from tetras already known to be incident on
// center.
func delaunayNeighbors(tr *delaunay.Triangulation, center delaunay.PointIndex, incident []incidentTetra) []delaunay.PointIndex {
	seen := map[delaunay.PointIndex]bool{}
	var out []delaunay.PointIndex
	for _, it := range incident {
		for i := 0; i < it.tet.NVerts; i++ {
			v := it.tet.Verts[i]
			if v == center || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// sharedCircumcenters returns the circumcenters of every tetra (among
// incident) that contains both center and q -- the polygon vertices of
// the Voronoi face between them.
func sharedCircumcenters(tr *delaunay.Triangulation, center, q delaunay.PointIndex, incident []incidentTetra) [][3]float64 {
	var pts [][3]float64
	for _, it := range incident {
		if tetraHasVertex(it.tet, q) {
			pts = append(pts, tr.Circumcenter(it.tet))
		}
	}
	return pts
}

func tetraHasVertex(tet *delaunay.Tetra, v delaunay.PointIndex) bool {
	for i := 0; i < tet.NVerts; i++ {
		if tet.Verts[i] == v {
			return true
		}
	}
	return false
}

// polygonAreaAndCentroid orders pts cyclically around normal (by angle in
// the plane perpendicular to normal) and returns the resulting polygon's
// area and centroid. With exactly two points (the 2D case, where a face
// is a segment between the two triangles sharing an edge) this degenerates
// to the segment's length and midpoint.
func polygonAreaAndCentroid(pts [][3]float64, normal [3]float64) (float64, [3]float64) {
	if len(pts) == 2 {
		length := norm3(sub3(pts[1], pts[0]))
		mid := [3]float64{(pts[0][0] + pts[1][0]) / 2, (pts[0][1] + pts[1][1]) / 2, (pts[0][2] + pts[1][2]) / 2}
		return length, mid
	}
	center := centroid(pts)
	ref := orthonormalBasis(normal)
	type angled struct {
		p   [3]float64
		ang float64
	}
	ordered := make([]angled, len(pts))
	for i, p := range pts {
		d := sub3(p, center)
		x := dot3(d, ref[0])
		y := dot3(d, ref[1])
		ordered[i] = angled{p, math.Atan2(y, x)}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ang < ordered[j].ang })

	var area float64
	var cx, cy, cz float64
	n := len(ordered)
	for i := 0; i < n; i++ {
		a := ordered[i].p
		b := ordered[(i+1)%n].p
		cross := cross3(sub3(a, center), sub3(b, center))
		triArea := 0.5 * norm3(cross)
		area += triArea
		cx += (a[0] + b[0] + center[0]) / 3 * triArea
		cy += (a[1] + b[1] + center[1]) / 3 * triArea
		cz += (a[2] + b[2] + center[2]) / 3 * triArea
	}
	if area == 0 {
		return 0, center
	}
	return area, [3]float64{cx / area, cy / area, cz / area}
}

func classifyNeighbor(qPoint *delaunay.Point, localRank int32, lookup ParticleLookup) Neighbor {
	switch qPoint.Kind {
	case delaunay.KindOuter:
		return Neighbor{Kind: NeighborBoundary}
	case delaunay.KindInner:
		return Neighbor{Kind: NeighborLocal, ID: qPoint.Particle}
	default: // KindHalo
		if lookup != nil {
			kind, wrap := lookup(qPoint.Particle)
			if kind == particle.KindHalo && wrap != ([3]int8{}) {
				return Neighbor{Kind: NeighborPeriodicHalo, ID: qPoint.Particle, Rank: qPoint.HaloRank, PeriodicWrap: wrap}
			}
		}
		return Neighbor{Kind: NeighborRemote, ID: qPoint.Particle, Rank: qPoint.HaloRank}
	}
}

func centroid(pts [][3]float64) [3]float64 {
	var c [3]float64
	for _, p := range pts {
		c[0] += p[0]
		c[1] += p[1]
		c[2] += p[2]
	}
	n := float64(len(pts))
	return [3]float64{c[0] / n, c[1] / n, c[2] / n}
}

// orthonormalBasis returns two unit vectors spanning the plane
// perpendicular to n.
func orthonormalBasis(n [3]float64) [2][3]float64 {
	ref := [3]float64{1, 0, 0}
	if math.Abs(n[0]) > 0.9 {
		ref = [3]float64{0, 1, 0}
	}
	u := unit(cross3(n, ref))
	v := cross3(n, u)
	return [2][3]float64{u, v}
}

func sub3(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}
func dot3(a, b [3]float64) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
func cross3(a, b [3]float64) [3]float64 {
	return [3]float64{a[1]*b[2] - a[2]*b[1], a[2]*b[0] - a[0]*b[2], a[0]*b[1] - a[1]*b[0]}
}
func norm3(a [3]float64) float64 { return math.Sqrt(dot3(a, a)) }
func unit(a [3]float64) [3]float64 {
	n := norm3(a)
	if n == 0 {
		return a
	}
	return [3]float64{a[0] / n, a[1] / n, a[2] / n}
}
