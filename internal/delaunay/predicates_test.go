// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package delaunay

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
)

func TestOrientation2DCcwIsPositive(tst *testing.T) {
	chk.PrintTitle("Orientation2DCcwIsPositive")
	a := [3]float64{0, 0, 0}
	b := [3]float64{1, 0, 0}
	c := [3]float64{0, 1, 0}
	if Orientation2D(a, b, c) != Positive {
		tst.Errorf("expected CCW triangle to be Positive")
	}
	if Orientation2D(a, c, b) != Negative {
		tst.Errorf("expected CW triangle to be Negative")
	}
}

func TestInCircle2DKnownPoints(tst *testing.T) {
	chk.PrintTitle("InCircle2DKnownPoints")
	a := [3]float64{-1, 0, 0}
	b := [3]float64{1, 0, 0}
	c := [3]float64{0, 1, 0}
	inside := [3]float64{0, 0.3, 0}
	outside := [3]float64{0, 5, 0}
	if InCircle2D(a, b, c, inside) != Positive {
		tst.Errorf("expected interior point to test Positive")
	}
	if InCircle2D(a, b, c, outside) != Negative {
		tst.Errorf("expected far point to test Negative")
	}
}

func TestCircumcenter2DIsEquidistant(tst *testing.T) {
	chk.PrintTitle("Circumcenter2DIsEquidistant")
	a := [3]float64{0, 0, 0}
	b := [3]float64{2, 0, 0}
	c := [3]float64{0, 2, 0}
	center := Circumcenter2D(a, b, c)
	da := norm(sub(a, center))
	db := norm(sub(b, center))
	dc := norm(sub(c, center))
	tol := 1e-9
	if math.Abs(da-db) > tol || math.Abs(db-dc) > tol {
		tst.Errorf("circumcenter not equidistant: %v %v %v", da, db, dc)
	}
}

func TestOrientation3DAndInSphere(tst *testing.T) {
	chk.PrintTitle("Orientation3DAndInSphere")
	a := [3]float64{0, 0, 0}
	b := [3]float64{1, 0, 0}
	c := [3]float64{0, 1, 0}
	d := [3]float64{0, 0, 1}
	if Orientation3D(a, b, c, d) != Positive {
		tst.Errorf("expected reference tetra to be Positive")
	}
	center := Circumcenter3D(a, b, c, d)
	// the center itself must always be inside its own circumsphere
	if InSphere3D(a, b, c, d, center) != Positive {
		tst.Errorf("circumcenter must lie inside its own circumsphere")
	}
	far := [3]float64{100, 100, 100}
	if InSphere3D(a, b, c, d, far) != Negative {
		tst.Errorf("far point must lie outside the circumsphere")
	}
}
