// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package quadrature

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
)

func TestNewProducesUnitVectors(tst *testing.T) {
	chk.PrintTitle("NewProducesUnitVectors")
	s := New(50, nil)
	if s.Len() != 50 {
		tst.Errorf("expected 50 directions, got %d", s.Len())
	}
	for i, d := range s.Directions {
		n := math.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
		if math.Abs(n-1) > 1e-9 {
			tst.Errorf("direction %d is not a unit vector: |%v| = %v", i, d, n)
		}
	}
}

func TestNewUsesExplicitDirectionsWhenGiven(tst *testing.T) {
	chk.PrintTitle("NewUsesExplicitDirectionsWhenGiven")
	explicit := [][3]float64{{2, 0, 0}, {0, 3, 0}}
	s := New(0, explicit)
	if s.Len() != 2 {
		tst.Fatalf("expected exactly the 2 explicit directions, got %d", s.Len())
	}
	if math.Abs(s.Directions[0][0]-1) > 1e-9 {
		tst.Errorf("expected explicit direction to be normalized, got %v", s.Directions[0])
	}
}

func TestRotatePreservesUnitLength(tst *testing.T) {
	chk.PrintTitle("RotatePreservesUnitLength")
	s := New(20, nil)
	s.Rotate(7)
	for i, d := range s.Directions {
		n := math.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
		if math.Abs(n-1) > 1e-9 {
			tst.Errorf("direction %d lost unit length after rotation: %v", i, n)
		}
	}
}

func TestRotateActuallyMovesDirections(tst *testing.T) {
	chk.PrintTitle("RotateActuallyMovesDirections")
	s := New(20, nil)
	before := append([][3]float64{}, s.Directions...)
	s.Rotate(3)
	identical := true
	for i := range before {
		if before[i] != s.Directions[i] {
			identical = false
			break
		}
	}
	if identical {
		tst.Errorf("expected Rotate to change the direction set")
	}
}
