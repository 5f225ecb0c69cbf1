// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package extent implements axis-aligned bounding box algebra: intersection,
// union, containment, quadrant/octant subdivision and periodic wrap
// (spec.md §2, "Extent / bounding box").
//
// Every operation here is componentwise (per-axis min/max/size/translate)
// over an axis-aligned box; none of it is a cross or dot product, so the
// only gosl primitive this package reaches for is utl.Min/Max, used the
// same way the teacher's own fem code does for plain two-argument
// comparisons. github.com/cpmech/gosl/gm (this corpus's vector/geometry
// package) is a spatial point-bin index and a NURBS curve/surface type
// (see internal/delaunay's package doc), neither of which this box
// algebra has any use for.
package extent

import "github.com/cpmech/gosl/utl"

// Extent is an axis-aligned box in 3D (2D runs leave Max[2]==Min[2]).
type Extent struct {
	Min [3]float64
	Max [3]float64
}

// New builds an Extent, swapping min/max per-axis if given reversed.
func New(min, max [3]float64) Extent {
	for i := 0; i < 3; i++ {
		if min[i] > max[i] {
			min[i], max[i] = max[i], min[i]
		}
	}
	return Extent{Min: min, Max: max}
}

// Size returns the per-axis extent length.
func (e Extent) Size() [3]float64 {
	return [3]float64{e.Max[0] - e.Min[0], e.Max[1] - e.Min[1], e.Max[2] - e.Min[2]}
}

// Center returns the box's midpoint.
func (e Extent) Center() [3]float64 {
	var c [3]float64
	for i := 0; i < 3; i++ {
		c[i] = 0.5 * (e.Min[i] + e.Max[i])
	}
	return c
}

// Contains reports whether p lies within the (half-open) box.
func (e Extent) Contains(p [3]float64) bool {
	for i := 0; i < 3; i++ {
		if p[i] < e.Min[i] || p[i] >= e.Max[i] {
			return false
		}
	}
	return true
}

// Intersects reports whether e and o overlap as closed boxes; boxes that
// only touch at a face, edge or corner also count as intersecting.
func (e Extent) Intersects(o Extent) bool {
	for i := 0; i < 3; i++ {
		if e.Max[i] < o.Min[i] || o.Max[i] < e.Min[i] {
			return false
		}
	}
	return true
}

// IntersectsSphere reports whether the sphere of the given center and
// radius overlaps e's volume. Used to resolve spec.md §9's
// "rank_owns_part_of_search_radius" open question: "any overlap between
// the rank's segment's bounding box and the query sphere".
func (e Extent) IntersectsSphere(center [3]float64, radius float64) bool {
	distSq := 0.0
	for i := 0; i < 3; i++ {
		v := center[i]
		if v < e.Min[i] {
			distSq += (e.Min[i] - v) * (e.Min[i] - v)
		} else if v > e.Max[i] {
			distSq += (v - e.Max[i]) * (v - e.Max[i])
		}
	}
	return distSq <= radius*radius
}

// Union returns the smallest box containing both e and o.
func (e Extent) Union(o Extent) Extent {
	var r Extent
	for i := 0; i < 3; i++ {
		r.Min[i] = utl.Min(e.Min[i], o.Min[i])
		r.Max[i] = utl.Max(e.Max[i], o.Max[i])
	}
	return r
}

// Octant returns the i-th (0..7) octant sub-box, numbered by bit: bit0=x
// half, bit1=y half, bit2=z half. For 2D runs only octants 0-3 are
// meaningful (z extent collapses).
func (e Extent) Octant(i int) Extent {
	c := e.Center()
	var r Extent
	for axis := 0; axis < 3; axis++ {
		if i&(1<<uint(axis)) != 0 {
			r.Min[axis], r.Max[axis] = c[axis], e.Max[axis]
		} else {
			r.Min[axis], r.Max[axis] = e.Min[axis], c[axis]
		}
	}
	return r
}

// Quadrant is the 2D analog of Octant, using only the first two axes.
func (e Extent) Quadrant(i int) Extent {
	r := e.Octant(i & 3)
	r.Min[2], r.Max[2] = e.Min[2], e.Max[2]
	return r
}

// Wrap applies periodic wrap-around to a position, mapping it back into
// [Min,Max) on every axis where periodic[axis] is true. This is the single
// place periodic boundary conditions are implemented (spec.md §9: periodic
// images are "regular halo points translated by a lattice vector").
func (e Extent) Wrap(p [3]float64, periodic [3]bool) [3]float64 {
	size := e.Size()
	out := p
	for i := 0; i < 3; i++ {
		if !periodic[i] || size[i] <= 0 {
			continue
		}
		for out[i] < e.Min[i] {
			out[i] += size[i]
		}
		for out[i] >= e.Max[i] {
			out[i] -= size[i]
		}
	}
	return out
}

// Translate returns p shifted by wrap*size on each axis, used to construct
// a periodic halo image at lattice offset wrap (spec.md §9).
func (e Extent) Translate(p [3]float64, wrap [3]int8) [3]float64 {
	size := e.Size()
	out := p
	for i := 0; i < 3; i++ {
		out[i] += float64(wrap[i]) * size[i]
	}
	return out
}
