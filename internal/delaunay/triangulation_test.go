// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package delaunay

import (
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gort/internal/extent"
)

func TestInsert2DGridStaysDelaunay(tst *testing.T) {
	chk.PrintTitle("Insert2DGridStaysDelaunay")
	box := extent.New([3]float64{0, 0, 0}, [3]float64{2, 2, 0})
	tr := New(2, box)
	pts := [][3]float64{
		{0, 0, 0}, {1, 0, 0}, {2, 0, 0},
		{0, 1, 0}, {1, 1, 0}, {2, 1, 0},
		{0, 2, 0}, {1, 2, 0}, {2, 2, 0},
	}
	for _, p := range pts {
		if _, err := tr.Insert(p, InsertOptions{Kind: KindInner}); err != nil {
			tst.Fatalf("insert %v: %v", p, err)
		}
	}
	if !tr.AllPositivelyOriented() {
		tst.Errorf("expected every live tetra to remain positively oriented")
	}
	if tr.NumLiveTetras() == 0 {
		tst.Errorf("expected a non-empty triangulation after 9 insertions")
	}
}

func TestInsert3DCubeStaysDelaunay(tst *testing.T) {
	chk.PrintTitle("Insert3DCubeStaysDelaunay")
	box := extent.New([3]float64{0, 0, 0}, [3]float64{1, 1, 1})
	tr := New(3, box)
	pts := [][3]float64{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1},
		{1, 1, 0}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1},
		{0.5, 0.5, 0.5},
	}
	for _, p := range pts {
		if _, err := tr.Insert(p, InsertOptions{Kind: KindInner}); err != nil {
			tst.Fatalf("insert %v: %v", p, err)
		}
	}
	if !tr.AllPositivelyOriented() {
		tst.Errorf("expected every live tetra to remain positively oriented")
	}
}

func TestDelaunayConditionHoldsAfterInsertion(tst *testing.T) {
	chk.PrintTitle("DelaunayConditionHoldsAfterInsertion")
	box := extent.New([3]float64{0, 0, 0}, [3]float64{3, 3, 0})
	tr := New(2, box)
	pts := [][3]float64{
		{0, 0, 0}, {3, 0, 0}, {0, 3, 0}, {3, 3, 0}, {1.5, 1.5, 0},
		{1, 2, 0}, {2, 1, 0},
	}
	for _, p := range pts {
		if _, err := tr.Insert(p, InsertOptions{Kind: KindInner}); err != nil {
			tst.Fatalf("insert %v: %v", p, err)
		}
	}
	// For every live triangle, no other inner point may lie strictly
	// inside its circumcircle (the defining Delaunay property).
	tr.Tetras.Live(func(_ TetraIndex, tet *Tetra) {
		if tet.NVerts != 3 {
			return
		}
		v := tr.vertPositions(tet)
		for slot := 0; slot < tr.Points.Len(); slot++ {
			p := tr.Points.Get(PointIndex{Slot: slot, Gen: 1})
			if p.Kind != KindInner {
				continue
			}
			skip := false
			for i := 0; i < 3; i++ {
				if tet.Verts[i].Slot == slot {
					skip = true
				}
			}
			if skip {
				continue
			}
			if InCircle2D(v[0], v[1], v[2], p.Position) == Positive {
				tst.Errorf("point %v lies inside circumcircle of triangle %v", p.Position, v)
			}
		}
	})
}
