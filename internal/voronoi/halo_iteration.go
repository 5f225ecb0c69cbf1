// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package voronoi

import (
	"github.com/cpmech/gort/internal/comm"
	"github.com/cpmech/gort/internal/delaunay"
	"github.com/cpmech/gort/internal/extent"
	"github.com/cpmech/gort/internal/halocache"
	"github.com/cpmech/gort/internal/particle"
	"github.com/cpmech/gort/internal/rtlog"
)

// radiusGrowthFactor sets how aggressively an undecided tetra's search
// radius grows between rounds (spec.md §4.2 step 5: "grow the radius and
// repeat"); 2x doubling keeps the number of rounds logarithmic in the
// true halo depth while not over-fetching on the first miss.
const radiusGrowthFactor = 2.0

// SearchData is one rank's request for every other rank's points lying
// within radius of center, per spec.md §4.2 step 3: "broadcast the
// search sphere (center, radius) of every undecided tetra."
type SearchData struct {
	Center [3]float64
	Radius float64
}

// PointRecord is one particle offered back in answer to a SearchData
// query: enough to insert it as a halo point in the requester's
// triangulation (spec.md §4.2 step 4).
type PointRecord struct {
	ID         particle.Id
	Position   [3]float64
	OriginRank int32
}

// Iterate runs the parallel halo-iteration loop to convergence: while any
// rank still has an "undecided" tetra (one whose circumsphere might be
// invalidated by a point this rank hasn't seen yet), every rank
// broadcasts growing search spheres, receives candidate points from
// whichever ranks own them, inserts any new ones as halo points, and
// re-checks (spec.md §4.2, "Parallel halo iteration"). The loop also
// ends once, on every rank, the search radius covers each undecided
// tetra's circumsphere and no rank received a new point in that round,
// since further rounds could not change the triangulation.
//
// allExtents holds every rank's extent, so a query is only sent to ranks
// whose extent overlaps the search sphere (spec.md §9's
// rank_owns_part_of_search_radius resolution: AABB/sphere overlap
// against the rank's own extent).
func Iterate(
	tr *delaunay.Triangulation,
	c *comm.Communicator,
	localExtent extent.Extent,
	allExtents []extent.Extent,
	localPoints func() []particle.Particle,
	log *rtlog.Logger,
) *halocache.Cache {
	cache := halocache.New()
	radius := initialRadius(localExtent)

	for round := 0; ; round++ {
		undecided := undecidedTetras(tr, localExtent)
		anyUndecided := len(undecided) > 0
		if !c.AllReduceAll(!anyUndecided) {
			if log != nil {
				log.Debug("halo iteration round", nil)
			}
		} else {
			break
		}
		covered := true
		for _, u := range undecided {
			if radius < u.radius {
				covered = false
			}
		}

		queries := make(comm.DataByRank[SearchData])
		for _, u := range undecided {
			for r, ext := range allExtents {
				if r == c.Rank() {
					continue
				}
				if ext.IntersectsSphere(u.center, radius) {
					queries[r] = append(queries[r], SearchData{Center: u.center, Radius: radius})
				}
			}
		}
		incoming := comm.Exchange(c, queries)

		replies := make(comm.DataByRank[PointRecord])
		for src, reqs := range incoming {
			for _, p := range localPoints() {
				for _, q := range reqs {
					if !withinRadius(p.Position, q.Center, q.Radius) {
						continue
					}
					if !cache.MarkSent(src, p.Id) {
						continue
					}
					replies[src] = append(replies[src], PointRecord{ID: p.Id, Position: p.Position, OriginRank: c.Rank()})
				}
			}
		}
		answers := comm.Exchange(c, replies)

		inserted := false
		for _, batch := range answers {
			for _, rec := range batch {
				if _, already := cache.LocalCopyOf(rec.ID); already {
					continue
				}
				_, err := tr.Insert(rec.Position, delaunay.InsertOptions{
					Kind:     delaunay.KindHalo,
					HaloRank: rec.OriginRank,
					Particle: rec.ID,
				})
				if err != nil {
					continue
				}
				// particle.Id is already globally unique (rank, index), so the
				// imported copy keeps the same id -- there is no separate
				// local-slot renumbering to track.
				cache.MarkImported(rec.ID, rec.ID)
				inserted = true
			}
		}
		if c.AllReduceAll(covered && !inserted) {
			break
		}

		radius *= radiusGrowthFactor
	}
	return cache
}

type undecided struct {
	center [3]float64
	radius float64
}

// undecidedTetras scans for tetras whose circumsphere extends outside the
// local extent: such a tetra's Delaunay membership cannot be certified
// until every point within its circumsphere has been seen (spec.md §4.2
// step 1: "a tetra is undecided if its circumsphere is not fully
// contained in the rank's own extent").
func undecidedTetras(tr *delaunay.Triangulation, localExtent extent.Extent) []undecided {
	var out []undecided
	tr.Tetras.Live(func(_ delaunay.TetraIndex, tet *delaunay.Tetra) {
		// a tetra touching the enclosing bounding simplex is a boundary
		// artifact, not a real Voronoi cell of any particle -- it can never
		// be "resolved" by more halo data, since its far vertex lies
		// outside the true point cloud entirely.
		for i := 0; i < tet.NVerts; i++ {
			if tr.Points.Get(tet.Verts[i]).Kind == delaunay.KindOuter {
				return
			}
		}
		center := tr.Circumcenter(tet)
		verts := tr.VertPositions(tet)
		radius := dist3(center, verts[0])
		if !sphereInside(localExtent, center, radius) {
			out = append(out, undecided{center: center, radius: radius})
		}
	})
	return out
}

func sphereInside(e extent.Extent, center [3]float64, radius float64) bool {
	for i := 0; i < 3; i++ {
		if center[i]-radius < e.Min[i] || center[i]+radius > e.Max[i] {
			return false
		}
	}
	return true
}

func withinRadius(p, center [3]float64, radius float64) bool {
	return dist3(p, center) <= radius
}

func dist3(a, b [3]float64) float64 {
	return norm3(sub3(a, b))
}

// initialRadius picks a conservative starting search radius: a fraction
// of the local extent's smallest side, so the first round rarely
// over-fetches a whole neighboring rank's point set.
func initialRadius(e extent.Extent) float64 {
	size := e.Size()
	min := size[0]
	for _, s := range size[1:] {
		if s > 0 && (min <= 0 || s < min) {
			min = s
		}
	}
	if min <= 0 {
		min = 1
	}
	return min * 0.05
}

// ExtentsByRank gathers every rank's local extent, the prerequisite
// Iterate needs before it can test AABB/sphere overlap against a remote
// rank's segment.
func ExtentsByRank(c *comm.Communicator, local extent.Extent) []extent.Extent {
	return comm.AllGather(c, local)
}
