// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package voronoi

import (
	"testing"

	"github.com/cpmech/gosl/chk"

	"github.com/cpmech/gort/internal/comm"
	"github.com/cpmech/gort/internal/delaunay"
	"github.com/cpmech/gort/internal/extent"
	"github.com/cpmech/gort/internal/particle"
)

// TestIterateConvergesImmediatelyInSerialMode checks that a single-rank
// run (the degenerate case of the halo iteration, spec.md §4.2) never
// waits on a remote rank: no other rank can supply a point, so once the
// growing search radius covers every undecided tetra's circumsphere
// Iterate returns instead of looping forever waiting for halo points,
// without ever having sent a halo query.
func TestIterateConvergesImmediatelyInSerialMode(tst *testing.T) {
	chk.PrintTitle("IterateConvergesImmediatelyInSerialMode")
	box := extent.New([3]float64{0, 0, 0}, [3]float64{1, 1, 0})
	tr := delaunay.New(2, box)
	pts := [][3]float64{{0.2, 0.2, 0}, {0.8, 0.2, 0}, {0.2, 0.8, 0}, {0.8, 0.8, 0}, {0.5, 0.5, 0}}
	var local []particle.Particle
	for i, p := range pts {
		id := particle.Id{Rank: 0, Index: uint32(i)}
		if _, err := tr.Insert(p, delaunay.InsertOptions{Kind: delaunay.KindInner, Particle: id}); err != nil {
			tst.Fatalf("insert %v: %v", p, err)
		}
		local = append(local, particle.Particle{Id: id, Position: p})
	}

	c := comm.Start(false)
	defer c.Stop()

	cache := Iterate(tr, c, box, []extent.Extent{box}, func() []particle.Particle { return local }, nil)
	if cache == nil {
		tst.Errorf("expected a non-nil halo cache even when no halo points were needed")
	}
	if cache.Len() != 0 {
		tst.Errorf("a single rank should never send itself a halo query, got %d sent entries", cache.Len())
	}
}
