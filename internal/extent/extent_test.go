// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package extent

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

func TestContainsAndIntersects(tst *testing.T) {
	chk.PrintTitle("ContainsAndIntersects")
	e := New([3]float64{0, 0, 0}, [3]float64{1, 1, 1})
	if !e.Contains([3]float64{0.5, 0.5, 0.5}) {
		tst.Errorf("expected center to be contained")
	}
	if e.Contains([3]float64{1, 0, 0}) {
		tst.Errorf("half-open box must exclude Max")
	}
	o := New([3]float64{0.9, 0.9, 0.9}, [3]float64{2, 2, 2})
	if !e.Intersects(o) {
		tst.Errorf("expected overlapping boxes to intersect")
	}
	far := New([3]float64{5, 5, 5}, [3]float64{6, 6, 6})
	if e.Intersects(far) {
		tst.Errorf("expected disjoint boxes to not intersect")
	}
}

func TestOctantsPartitionTheBox(tst *testing.T) {
	chk.PrintTitle("OctantsPartitionTheBox")
	e := New([3]float64{0, 0, 0}, [3]float64{2, 2, 2})
	var total float64
	for i := 0; i < 8; i++ {
		sub := e.Octant(i)
		sz := sub.Size()
		total += sz[0] * sz[1] * sz[2]
	}
	if total != 8.0 {
		tst.Errorf("octants must exactly partition the volume: got %v", total)
	}
}

func TestIntersectsSphere(tst *testing.T) {
	chk.PrintTitle("IntersectsSphere")
	e := New([3]float64{0, 0, 0}, [3]float64{1, 1, 1})
	if !e.IntersectsSphere([3]float64{2, 0.5, 0.5}, 1.5) {
		tst.Errorf("sphere should overlap box")
	}
	if e.IntersectsSphere([3]float64{10, 10, 10}, 1.0) {
		tst.Errorf("distant sphere should not overlap box")
	}
}

func TestWrapAndTranslateAreInverses(tst *testing.T) {
	chk.PrintTitle("WrapAndTranslateAreInverses")
	e := New([3]float64{0, 0, 0}, [3]float64{1, 1, 1})
	p := [3]float64{0.1, 0.1, 0.1}
	translated := e.Translate(p, [3]int8{1, 0, 0})
	wrapped := e.Wrap(translated, [3]bool{true, true, true})
	for i := 0; i < 3; i++ {
		if diff := wrapped[i] - p[i]; diff > 1e-12 || diff < -1e-12 {
			tst.Errorf("wrap(translate(p)) != p at axis %d: %v != %v", i, wrapped[i], p[i])
		}
	}
}
