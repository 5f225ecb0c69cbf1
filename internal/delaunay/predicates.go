// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// This file's orientation/in-circle/in-sphere predicates stay on plain
// math rather than github.com/cpmech/gosl/gm: every gm usage in this
// corpus (out/out.go's NodBins/IpsBins, inp/msh.go's gm.Nurbs) is either
// a spatial point-bin index or a NURBS curve/surface, not a generic
// vector dot/cross/determinant library -- gm exposes no primitive that
// would replace the scalar determinant evaluations below. gm.Bins is
// wired into this package's point lookup instead (triangulation.go).
package delaunay

import "math"

// Sign is the three-state result every geometric predicate returns
// (spec.md §4.2, "Numerical robustness"): a determinant too close to zero
// to trust in floating point is Imprecise rather than silently rounded to
// Positive or Negative.
type Sign int

const (
	Positive Sign = iota
	Negative
	Imprecise
)

// precisionEps is the relative tolerance below which a predicate's
// determinant is considered too close to call. It is deliberately coarse
// (not an exact adaptive-precision bound like Shewchuk's) since the caller
// reacts to Imprecise by perturbing and retrying rather than trusting this
// threshold to be exact.
const precisionEps = 1e-12

// classify turns a raw determinant value into a Sign, scaling the epsilon
// by the magnitude of the inputs that produced it so the same absolute
// threshold is not used at wildly different coordinate scales.
func classify(det, scale float64) Sign {
	if scale <= 0 {
		scale = 1
	}
	eps := precisionEps * scale
	switch {
	case det > eps:
		return Positive
	case det < -eps:
		return Negative
	default:
		return Imprecise
	}
}

// sub subtracts b from a.
func sub(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func dot(a, b [3]float64) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func norm(a [3]float64) float64 { return math.Sqrt(dot(a, a)) }

// Orientation2D returns Positive iff (a,b,c) winds counter-clockwise, i.e.
// the triangle is positively oriented (spec.md §3, "Triangulation
// invariants (i)").
func Orientation2D(a, b, c [3]float64) Sign {
	ab := sub(b, a)
	ac := sub(c, a)
	det := ab[0]*ac[1] - ab[1]*ac[0]
	scale := (norm(ab) + norm(ac)) * (norm(ab) + norm(ac))
	return classify(det, scale)
}

// Orientation3D returns Positive iff the tetra (a,b,c,d) has positive
// signed volume, i.e. d lies on the side of the plane through (a,b,c) from
// which a, b, c appear counter-clockwise (the reference tetra
// (0, e_x, e_y, e_z) is Positive).
func Orientation3D(a, b, c, d [3]float64) Sign {
	ad := sub(a, d)
	bd := sub(b, d)
	cd := sub(c, d)
	// det[ad;bd;cd], which is negative for a positive-volume tetra
	det := ad[0]*(bd[1]*cd[2]-bd[2]*cd[1]) -
		ad[1]*(bd[0]*cd[2]-bd[2]*cd[0]) +
		ad[2]*(bd[0]*cd[1]-bd[1]*cd[0])
	scale := norm(ad) * norm(bd) * norm(cd)
	return classify(-det, scale)
}

// InCircle2D returns Positive iff point p lies strictly inside the
// circumcircle of (a,b,c), assuming (a,b,c) is positively oriented
// (spec.md §4.2, Delaunay condition).
func InCircle2D(a, b, c, p [3]float64) Sign {
	// standard 3x3 determinant form of the in-circle predicate
	ax, ay := a[0]-p[0], a[1]-p[1]
	bx, by := b[0]-p[0], b[1]-p[1]
	cx, cy := c[0]-p[0], c[1]-p[1]
	det := (ax*ax+ay*ay)*(bx*cy-cx*by) -
		(bx*bx+by*by)*(ax*cy-cx*ay) +
		(cx*cx+cy*cy)*(ax*by-bx*ay)
	scale := (ax*ax + ay*ay + bx*bx + by*by + cx*cx + cy*cy)
	scale = scale * scale
	return classify(det, scale)
}

// InSphere3D returns Positive iff point p lies strictly inside the
// circumsphere of (a,b,c,d), assuming (a,b,c,d) is positively oriented.
func InSphere3D(a, b, c, d, p [3]float64) Sign {
	pts := [4][3]float64{a, b, c, d}
	var m [4][4]float64
	for i, v := range pts {
		dx, dy, dz := v[0]-p[0], v[1]-p[1], v[2]-p[2]
		m[i][0] = dx
		m[i][1] = dy
		m[i][2] = dz
		m[i][3] = dx*dx + dy*dy + dz*dz
	}
	// the lifted determinant is negative for an interior p when (a,b,c,d)
	// has positive volume, so its sign is flipped to match Orientation3D
	det := -det4(m)
	var scale float64
	for i := range pts {
		scale += m[i][3]
	}
	scale = scale * scale
	return classify(det, scale)
}

// det4 computes a 4x4 determinant by cofactor expansion along the last
// column, which is the column carrying the largest-magnitude entries in
// the lifted in-sphere matrix and so keeps the expansion numerically
// reasonable without a full LU decomposition.
func det4(m [4][4]float64) float64 {
	minor := func(skipRow int) float64 {
		var rows [3][3]float64
		r := 0
		for i := 0; i < 4; i++ {
			if i == skipRow {
				continue
			}
			rows[r] = [3]float64{m[i][0], m[i][1], m[i][2]}
			r++
		}
		return det3(rows)
	}
	var sum float64
	sign := 1.0
	for i := 0; i < 4; i++ {
		sum += sign * m[i][3] * minor(i)
		sign = -sign
	}
	return -sum
}

func det3(m [3][3]float64) float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// Circumcenter2D returns the circumcenter of triangle (a,b,c).
func Circumcenter2D(a, b, c [3]float64) [3]float64 {
	ax, ay := a[0], a[1]
	bx, by := b[0], b[1]
	cx, cy := c[0], c[1]
	d := 2 * (ax*(by-cy) + bx*(cy-ay) + cx*(ay-by))
	if math.Abs(d) < 1e-300 {
		return a
	}
	ux := ((ax*ax+ay*ay)*(by-cy) + (bx*bx+by*by)*(cy-ay) + (cx*cx+cy*cy)*(ay-by)) / d
	uy := ((ax*ax+ay*ay)*(cx-bx) + (bx*bx+by*by)*(ax-cx) + (cx*cx+cy*cy)*(bx-ax)) / d
	return [3]float64{ux, uy, 0}
}

// Circumcenter3D returns the circumcenter of tetra (a,b,c,d), solving the
// 3x3 linear system from the perpendicular-bisector planes of three edges
// sharing vertex a.
func Circumcenter3D(a, b, c, d [3]float64) [3]float64 {
	ba := sub(b, a)
	ca := sub(c, a)
	da := sub(d, a)
	rhs := [3]float64{
		0.5 * dot(ba, ba),
		0.5 * dot(ca, ca),
		0.5 * dot(da, da),
	}
	m := [3][3]float64{ba, ca, da}
	det := det3(m)
	if math.Abs(det) < 1e-300 {
		return a
	}
	// Cramer's rule
	solveCol := func(col int) float64 {
		mm := m
		mm[0][col], mm[1][col], mm[2][col] = rhs[0], rhs[1], rhs[2]
		return det3(mm) / det
	}
	x := solveCol(0)
	y := solveCol(1)
	z := solveCol(2)
	return [3]float64{a[0] + x, a[1] + y, a[2] + z}
}
