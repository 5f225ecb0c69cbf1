// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dimval implements a thin dimension-checked numeric wrapper, the
// Go stand-in for the source's compile-time-dimensioned quantities
// (spec.md §9, "Dimension-typed quantities"). Internal arithmetic is free
// to drop to raw float64 once a value has crossed a checked boundary; the
// wrapper's only job is to catch a unit mismatch exactly once, at the
// point an HDF5 dataset is read into a typed field.
package dimval

import (
	"github.com/ctessum/unit"

	"github.com/cpmech/gort/internal/rterr"
)

// Dimension is the (mass, length, time) exponent fingerprint carried by an
// HDF5 dataset attribute, matching spec.md §6's "Dimension" attribute.
type Dimension struct {
	Mass   int8
	Length int8
	Time   int8
}

// String renders the dimension as an M^a L^b T^c tag for error messages.
func (d Dimension) String() string {
	dims := unit.Dimensions{
		unit.MassDim:   int(d.Mass),
		unit.LengthDim: int(d.Length),
		unit.TimeDim:   int(d.Time),
	}
	return dims.String()
}

// common dimensions used by the particle/grid fields this spec reads
var (
	DimMass        = Dimension{Mass: 1}
	DimLength      = Dimension{Length: 1}
	DimTime        = Dimension{Time: 1}
	DimDensity     = Dimension{Mass: 1, Length: -3}
	DimRate        = Dimension{Time: -1}
	DimMassRate    = Dimension{Mass: 1, Time: -1}
	DimDimensionless = Dimension{}
)

// Value is a float64 tagged with the dimension it was read as.
type Value struct {
	Raw float64
	Dim Dimension
}

// CheckAndConvert validates that raw's dimension attribute matches want and
// applies scaleFactor (the HDF5 dataset's `scale_factor` attribute,
// spec.md §6). On mismatch it returns a DimensionMismatch error.
func CheckAndConvert(raw float64, got, want Dimension, scaleFactor float64) (Value, error) {
	if got != want {
		return Value{}, rterr.New(rterr.DimensionMismatch,
			"dataset dimension %v does not match expected %v", got, want)
	}
	return Value{Raw: raw * scaleFactor, Dim: want}, nil
}

// Mul multiplies two dimensioned values, adding exponents.
func Mul(a, b Value) Value {
	return Value{
		Raw: a.Raw * b.Raw,
		Dim: Dimension{
			Mass:   a.Dim.Mass + b.Dim.Mass,
			Length: a.Dim.Length + b.Dim.Length,
			Time:   a.Dim.Time + b.Dim.Time,
		},
	}
}
