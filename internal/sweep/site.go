// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sweep implements the directional sweep scheduler: a per-
// direction upwind task graph over the local Voronoi mesh, non-blocking
// cross-rank flux delivery, multi-level timestep sub-stepping and
// deadlock detection (spec.md §2 "Sweep solver", §4.3, §5, §8 properties
// 7-8).
//
// Grounded on original_source/src/sweep/mod.rs (task/site model),
// src/sweep/communicator.rs (per-rank send buffering) and
// src/sweep/deadlock_detection.rs. The teacher's FEsolver.Run(tf, ...)
// time-loop shape (fem/fem.go, fem/solver.go) is reused here for the
// global-step/sub-step loop structure, generalized from a single Newton
// iteration to the directional upwind sweep.
package sweep

import (
	"math"

	"github.com/cpmech/gort/internal/chemistry"
	"github.com/cpmech/gort/internal/particle"
	"github.com/cpmech/gort/internal/voronoi"
)

// Site is one local cell's sweep-relevant state: its Voronoi geometry
// plus the chemistry/level state the scheduler reads and writes each
// sub-step.
type Site struct {
	ID              particle.Id
	Cell            voronoi.Cell
	Density         float64
	IonizedFraction float64
	SourceRate      float64
	Level           int
}

// length returns a characteristic cell size from the cell volume, used by
// the optical-depth term in chemistry.OutgoingFlux; spec.md does not
// distinguish 2D/3D here, so a cube-root scaling is used uniformly (a 2D
// run's cells have Position[2]==0 and a "volume" that is really an area,
// but the attenuation law only needs a length scale of the right order).
func (s *Site) length() float64 {
	if s.Cell.Volume <= 0 {
		return 0
	}
	return math.Cbrt(s.Cell.Volume)
}

// chemistrySite narrows Site plus one direction's accumulated incoming
// flux into the minimal view chemistry.OutgoingFlux/UpdateAbundances
// need.
func (s *Site) chemistrySite(incomingFlux float64) chemistry.Site {
	return chemistry.Site{
		Density:         s.Density,
		IonizedFraction: s.IonizedFraction,
		Volume:          s.Cell.Volume,
		Length:          s.length(),
		IncomingFlux:    incomingFlux,
		SourceRate:      s.SourceRate,
	}
}

// Task is one (direction, site) unit of work the scheduler's ready queue
// holds, per spec.md §3's Task(direction_index, particle_id).
type Task struct {
	Direction int
	Particle  particle.Id
}

// FluxDelivery is one cross-rank message: the flux leaving FromID's face
// toward ToID, per the "non-blocking send buffers" exchange model
// (spec.md §5, §4.4). Scheduler exchanges each direction's deliveries
// inside that direction's own sweep loop and leaves DirectionIndex zero.
type FluxDelivery struct {
	ToID           particle.Id
	FromID         particle.Id
	DirectionIndex int
	Value          float64
}
