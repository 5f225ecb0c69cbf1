// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chemistry

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
)

// TestZeroSourceAndIncomingGivesZeroOutgoing checks spec.md §8 property
// 8: with no incoming flux and no source, a cell emits nothing,
// regardless of its ionization state or density.
func TestZeroSourceAndIncomingGivesZeroOutgoing(tst *testing.T) {
	chk.PrintTitle("ZeroSourceAndIncomingGivesZeroOutgoing")
	s := Site{Density: 1e3, IonizedFraction: 0.3, Length: 1.0}
	out := OutgoingFlux(s, 4, 1e-10)
	if out != 0 {
		tst.Errorf("expected zero outgoing flux, got %v", out)
	}
}

// TestOutgoingFluxNeverExceedsIncomingPlusSource checks the attenuation
// law can only reduce flux, never amplify it.
func TestOutgoingFluxNeverExceedsIncomingPlusSource(tst *testing.T) {
	chk.PrintTitle("OutgoingFluxNeverExceedsIncomingPlusSource")
	s := Site{Density: 1e4, IonizedFraction: 0.1, Length: 1e16, IncomingFlux: 1e50, SourceRate: 1e49}
	total := s.IncomingFlux + s.SourceRate/4
	out := OutgoingFlux(s, 4, 0)
	if out > total {
		tst.Errorf("outgoing flux %v exceeds incoming+source %v", out, total)
	}
	if out < 0 {
		tst.Errorf("outgoing flux must not be negative, got %v", out)
	}
}

// TestUpdateAbundancesStaysInUnitInterval fuzzes a handful of dt/gamma
// combinations and checks the implicit step never leaves x outside
// [0,1], the core robustness claim of the implicit scheme (spec.md §4.3).
func TestUpdateAbundancesStaysInUnitInterval(tst *testing.T) {
	chk.PrintTitle("UpdateAbundancesStaysInUnitInterval")
	dts := []float64{1e-6, 1, 1e6, 1e12}
	fluxes := []float64{0, 1e40, 1e60}
	for _, dt := range dts {
		for _, flux := range fluxes {
			s := &Site{Density: 1e3, IonizedFraction: 0.5, Volume: 1e45, IncomingFlux: flux}
			newX, timescale, err := UpdateAbundances(s, dt)
			if err != nil {
				tst.Fatalf("dt=%v flux=%v: %v", dt, flux, err)
			}
			if newX < 0 || newX > 1 {
				tst.Errorf("dt=%v flux=%v: fraction left [0,1]: %v", dt, flux, newX)
			}
			if timescale < 0 {
				tst.Errorf("dt=%v flux=%v: change timescale must be non-negative, got %v", dt, flux, timescale)
			}
		}
	}
}

// TestUpdateAbundancesRejectsNonPositiveVolume checks the degenerate-input
// guard.
func TestUpdateAbundancesRejectsNonPositiveVolume(tst *testing.T) {
	chk.PrintTitle("UpdateAbundancesRejectsNonPositiveVolume")
	s := &Site{Volume: 0}
	if _, _, err := UpdateAbundances(s, 1.0); err == nil {
		tst.Errorf("expected an error for zero cell volume")
	}
}

// TestUpdateAbundancesWithZeroTimestepIsIdempotent checks spec.md §8
// property 11: a zero-timestep step must leave the ionized fraction
// unchanged, for any incoming flux or density, since dt=0 makes the
// implicit residual's root exactly x0.
func TestUpdateAbundancesWithZeroTimestepIsIdempotent(tst *testing.T) {
	chk.PrintTitle("UpdateAbundancesWithZeroTimestepIsIdempotent")
	cases := []Site{
		{Density: 1e3, IonizedFraction: 0.5, Volume: 1.0, IncomingFlux: 1e40},
		{Density: 0, IonizedFraction: 0.0, Volume: 1.0, IncomingFlux: 0},
		{Density: 1e6, IonizedFraction: 1.0, Volume: 1e45, IncomingFlux: 1e60},
		{Density: 1e3, IonizedFraction: 0.1, Volume: 1.0, IncomingFlux: 0, SourceRate: 1e50},
	}
	for _, s := range cases {
		x0 := s.IonizedFraction
		newX, _, err := UpdateAbundances(&s, 0)
		if err != nil {
			tst.Fatalf("x0=%v: %v", x0, err)
		}
		if math.Abs(newX-x0) > 1e-9 {
			tst.Errorf("zero-timestep step changed the ionized fraction: x0=%v newX=%v", x0, newX)
		}
	}
}

// TestUpdateAbundancesConvergesTowardEquilibrium checks that a long
// timestep relative to the recombination/ionization rates drives the
// fraction toward its steady-state value, the root in [0,1] of
// Gamma*(1-x) = alpha*n*x^2, not past it.
func TestUpdateAbundancesConvergesTowardEquilibrium(tst *testing.T) {
	chk.PrintTitle("UpdateAbundancesConvergesTowardEquilibrium")
	n := 1e3
	volume := 1.0
	gamma := 1e-9
	s := &Site{Density: n, IonizedFraction: 0.0, Volume: volume, IncomingFlux: gamma * volume}
	var x float64
	for i := 0; i < 200; i++ {
		newX, _, err := UpdateAbundances(s, 1e9)
		if err != nil {
			tst.Fatalf("step %d: %v", i, err)
		}
		x = newX
	}
	an := recombinationCoefficient * n
	equilibrium := (-gamma + math.Sqrt(gamma*gamma+4*an*gamma)) / (2 * an)
	if math.Abs(x-equilibrium) > 1e-3 {
		tst.Errorf("expected convergence to equilibrium %v, got %v", equilibrium, x)
	}
}
