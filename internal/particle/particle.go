// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package particle holds the plain struct-of-scalars particle data model.
//
// There is deliberately no entity-component framework here: a Particle is
// a plain Go struct and collections of them are plain slices, addressed by
// Id. Systems that used to be ECS queries become ordinary functions taking
// a []Particle or a map[Id]*Particle.
package particle

import "fmt"

// Id uniquely identifies a particle across the whole distributed run. It is
// assigned once, at decomposition time, and never reused even if the
// particle migrates to another rank afterwards.
type Id struct {
	Rank  int32
	Index uint32
}

// String implements fmt.Stringer
func (id Id) String() string {
	return fmt.Sprintf("(%d,%d)", id.Rank, id.Index)
}

// Kind distinguishes how a point arrived in a rank's local arena.
type Kind int

// kinds of points held by a rank
const (
	KindInner Kind = iota // genuinely owned by this rank
	KindOuter             // member of the enclosing bounding simplex
	KindHalo              // imported copy of another rank's particle
)

// Particle holds everything the sweep and chemistry solver need about one
// point mass. Position uses a flat [3]float64 regardless of 2D/3D run mode;
// 2D runs simply leave Position[2] == 0.
type Particle struct {
	Id               Id
	Position         [3]float64
	Mass             float64
	Density          float64
	SourceRate       float64 // photons/s emitted by this cell, 0 if not a source
	IonizedFraction  float64 // x, in [0,1]
	Level            int     // current timestep level
	OriginRank       int32   // only meaningful for halo copies
	Kind             Kind
	PeriodicWrap     [3]int8 // lattice translation applied to reach this copy, 0 if none
}

// IsHalo reports whether p was imported from another rank.
func (p *Particle) IsHalo() bool { return p.Kind == KindHalo }

// Set is a struct-of-arrays-friendly owning collection of particles local to
// one rank, keyed by their position in the slice; the unexported index map
// takes an Id to its slot.
type Set struct {
	Items []Particle
	index map[Id]int
}

// NewSet returns an empty particle set with capacity preallocated.
func NewSet(capacity int) *Set {
	return &Set{
		Items: make([]Particle, 0, capacity),
		index: make(map[Id]int, capacity),
	}
}

// Add appends p to the set and returns its slot index.
func (s *Set) Add(p Particle) int {
	if s.index == nil {
		s.index = make(map[Id]int)
	}
	slot := len(s.Items)
	s.Items = append(s.Items, p)
	s.index[p.Id] = slot
	return slot
}

// Get returns a pointer to the particle with the given Id, or nil.
func (s *Set) Get(id Id) *Particle {
	slot, ok := s.index[id]
	if !ok {
		return nil
	}
	return &s.Items[slot]
}

// Len returns the number of particles currently held.
func (s *Set) Len() int { return len(s.Items) }
