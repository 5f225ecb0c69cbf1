// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package quadrature builds the discrete set of unit propagation
// directions the sweep scheduler iterates over, with an optional rotation
// applied between global steps (spec.md §2 "Directional quadrature";
// §4.3 is driven by this set; the rotation option is the "Direction
// rotation between global sweeps" feature supplemented from
// original_source/src/sweep/parameters.rs).
package quadrature

import "math"

// Set is an ordered, fixed-size collection of unit propagation directions.
type Set struct {
	Directions [][3]float64
}

// New builds a Set of n directions, explicit vectors if given, else an
// evenly-spaced Fibonacci-sphere approximation to a healpix-like discrete
// sphere quadrature (spec.md §2: "healpix-like or explicit"). Grounded on
// original_source/src/sweep/mod.rs's direction-set construction.
func New(n int, explicit [][3]float64) *Set {
	if len(explicit) > 0 {
		dirs := make([][3]float64, len(explicit))
		for i, d := range explicit {
			dirs[i] = normalize(d)
		}
		return &Set{Directions: dirs}
	}
	return &Set{Directions: fibonacciSphere(n)}
}

// fibonacciSphere distributes n points nearly uniformly over the unit
// sphere using the golden-angle spiral construction, a standard
// low-discrepancy approximation when an exact healpix tessellation isn't
// available.
func fibonacciSphere(n int) [][3]float64 {
	if n < 1 {
		n = 1
	}
	dirs := make([][3]float64, n)
	goldenAngle := math.Pi * (3 - math.Sqrt(5))
	denom := n - 1
	if denom < 1 {
		denom = 1
	}
	for i := 0; i < n; i++ {
		y := 1 - 2*float64(i)/float64(denom)
		radius := math.Sqrt(math.Max(0, 1-y*y))
		theta := goldenAngle * float64(i)
		dirs[i] = [3]float64{math.Cos(theta) * radius, y, math.Sin(theta) * radius}
	}
	return dirs
}

func normalize(v [3]float64) [3]float64 {
	n := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if n == 0 {
		return v
	}
	return [3]float64{v[0] / n, v[1] / n, v[2] / n}
}

// Rotate applies a small rotation about an axis derived deterministically
// from the step index, so that directional aliasing artifacts average out
// over many global steps instead of always sampling the same discrete
// sphere (sweep.rotate_directions in spec.md §6). The rotation angle is
// fixed and small; it is not meant to re-randomize the set, only to break
// exact alignment between sweep and mesh structure.
func (s *Set) Rotate(stepIndex int) {
	const angle = 0.1
	axis := normalize([3]float64{
		math.Sin(float64(stepIndex)), math.Cos(float64(stepIndex) * 0.7), math.Sin(float64(stepIndex) * 1.3),
	})
	cosA, sinA := math.Cos(angle), math.Sin(angle)
	for i, d := range s.Directions {
		s.Directions[i] = rotateAboutAxis(d, axis, cosA, sinA)
	}
}

// rotateAboutAxis applies Rodrigues' rotation formula.
func rotateAboutAxis(v, axis [3]float64, cosA, sinA float64) [3]float64 {
	dot := v[0]*axis[0] + v[1]*axis[1] + v[2]*axis[2]
	cross := [3]float64{
		axis[1]*v[2] - axis[2]*v[1],
		axis[2]*v[0] - axis[0]*v[2],
		axis[0]*v[1] - axis[1]*v[0],
	}
	out := [3]float64{}
	for i := 0; i < 3; i++ {
		out[i] = v[i]*cosA + cross[i]*sinA + axis[i]*dot*(1-cosA)
	}
	return normalize(out)
}

// Len reports how many directions are in the set.
func (s *Set) Len() int { return len(s.Directions) }
