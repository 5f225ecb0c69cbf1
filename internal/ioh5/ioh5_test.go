// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ioh5

import (
	"path/filepath"
	"testing"

	"github.com/cpmech/gosl/chk"
)

// TestShrinkKeepsEveryNthRow checks the shrink_factor subsampling rule
// (spec.md §6): "keeps every n-th row".
func TestShrinkKeepsEveryNthRow(tst *testing.T) {
	chk.PrintTitle("ShrinkKeepsEveryNthRow")
	vecs := make([][3]float64, 10)
	for i := range vecs {
		vecs[i] = [3]float64{float64(i), 0, 0}
	}
	out := Shrink(vecs, 3)
	want := [][3]float64{{0, 0, 0}, {3, 0, 0}, {6, 0, 0}, {9, 0, 0}}
	if len(out) != len(want) {
		tst.Fatalf("expected %d rows, got %d", len(want), len(out))
	}
	for i := range want {
		if out[i] != want[i] {
			tst.Errorf("row %d: got %v, want %v", i, out[i], want[i])
		}
	}
}

// TestShrinkFactorOneIsNoOp checks the default (no subsampling) case.
func TestShrinkFactorOneIsNoOp(tst *testing.T) {
	chk.PrintTitle("ShrinkFactorOneIsNoOp")
	vecs := [][3]float64{{1, 2, 3}, {4, 5, 6}}
	out := Shrink(vecs, 1)
	if len(out) != len(vecs) {
		tst.Errorf("expected shrink_factor=1 to be a no-op, got %d rows from %d", len(out), len(vecs))
	}
}

// TestWriteThenReadRoundTripsBitIdentically is spec.md §8 property 10:
// a dataset written and read back with matching conversion factors must
// come back bit-identical.
func TestWriteThenReadRoundTripsBitIdentically(tst *testing.T) {
	chk.PrintTitle("WriteThenReadRoundTripsBitIdentically")
	path := filepath.Join(tst.TempDir(), "round_trip.nc")

	want := []float64{1.5, -2.25, 3.125, 0, 1e10}
	w := NewWriter(path, len(want))
	if err := w.SetField("Masses", want); err != nil {
		tst.Fatal(err)
	}
	w.SetGlobalAttr("simulation_time", []float64{42.0})
	if err := w.Flush(); err != nil {
		tst.Fatal(err)
	}

	r, err := OpenReader(path)
	if err != nil {
		tst.Fatal(err)
	}
	defer r.Close()

	got, err := r.readRaw("Masses")
	if err != nil {
		tst.Fatal(err)
	}
	if len(got) != len(want) {
		tst.Fatalf("expected %d values, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			tst.Errorf("value %d: got %v, want %v (not bit-identical)", i, got[i], want[i])
		}
	}
}
