// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sweep

import (
	"github.com/cpmech/gort/internal/chemistry"
	"github.com/cpmech/gort/internal/comm"
	"github.com/cpmech/gort/internal/level"
	"github.com/cpmech/gort/internal/particle"
	"github.com/cpmech/gort/internal/quadrature"
	"github.com/cpmech/gort/internal/rterr"
	"github.com/cpmech/gort/internal/rtlog"
	"github.com/cpmech/gort/internal/voronoi"
)

// Options configures a Scheduler's non-geometric knobs, all drawn
// directly from spec.md §6's sweep.* parameter table.
type Options struct {
	SignificantRateThreshold float64
	RotateDirections         bool
	CheckDeadlock            bool
	MaxStalledRounds         int // only consulted when CheckDeadlock is set; 0 picks a default
}

// Scheduler runs the directional sweep over one rank's local Voronoi
// sites, exchanging flux deliveries with other ranks as needed (spec.md
// §2 "Sweep solver").
type Scheduler struct {
	sites      map[particle.Id]*Site
	order      []particle.Id // stable iteration order, for reproducibility
	directions *quadrature.Set
	levels     *level.Controller
	comm       *comm.Communicator
	opts       Options
	log        *rtlog.Logger

	// haloLevels remembers the last level a rank reported for a particle
	// it does not own, so a remote upwind dependency can be recognized as
	// "not active this sub-step" instead of blocking forever waiting on a
	// delivery the owning rank will never send (spec.md §4.3 "Level
	// communication"). Unseen ids default to level 0, the safest
	// assumption (active every sub-step) until the first real exchange.
	haloLevels map[particle.Id]int
}

// New builds a Scheduler over sites, which must all belong to this rank
// (halo copies are read through their owning rank's FluxDelivery
// messages, never processed locally).
func New(sites []*Site, directions *quadrature.Set, levels *level.Controller, c *comm.Communicator, opts Options, log *rtlog.Logger) *Scheduler {
	s := &Scheduler{
		sites:      make(map[particle.Id]*Site, len(sites)),
		order:      make([]particle.Id, len(sites)),
		directions: directions,
		levels:     levels,
		comm:       c,
		opts:       opts,
		log:        log,
		haloLevels: make(map[particle.Id]int),
	}
	for i, site := range sites {
		s.sites[site.ID] = site
		s.order[i] = site.ID
	}
	if s.opts.MaxStalledRounds == 0 {
		s.opts.MaxStalledRounds = 64
	}
	return s
}

// RunGlobalStep advances every site by exactly one global step:
// levels.NumSubSteps() sub-steps, each sweeping every direction over
// whichever sites are active at that sub-step's level, then updating
// chemistry and proposing the next level for sites that were active
// (spec.md §4.3, §8 property 9). Halo levels are exchanged once at the
// end of the step, per spec.md §4.3: "halo levels are updated before the
// next step's initialization pass."
func (s *Scheduler) RunGlobalStep(globalStepIndex int) {
	if s.opts.RotateDirections {
		s.directions.Rotate(globalStepIndex)
	}
	n := s.levels.NumSubSteps()
	touched := make(map[particle.Id]bool)
	for sub := 0; sub < n; sub++ {
		s.runSubStep(sub, touched)
	}
	s.exchangeHaloLevels(touched)
}

// runSubStep runs one sub-step: a directional sweep for every direction
// over the active sites, then a chemistry update and level re-proposal
// for those same sites.
func (s *Scheduler) runSubStep(subStep int, touched map[particle.Id]bool) {
	active := s.activeIDs(subStep)
	if len(active) == 0 {
		return
	}
	absorbed := make(map[particle.Id]float64, len(active))
	nDir := float64(s.directions.Len())

	for d, dir := range s.directions.Directions {
		s.sweepDirection(d, dir, active, subStep, absorbed, nDir)
	}

	for _, id := range active {
		site := s.sites[id]
		dt := s.levels.Timestep(site.Level)
		cs := site.chemistrySite(absorbed[id])
		newFraction, changeTimescale, err := chemistry.UpdateAbundances(&cs, dt)
		if err != nil {
			rterr.Fatal(rterr.DegenerateInput, "sweep: chemistry update failed for site %v: %v", id, err)
		}
		site.IonizedFraction = newFraction
		site.Level = s.levels.ProposeLevel(site.Level, changeTimescale)
		touched[id] = true
	}
}

// exchangeHaloLevels sends every touched local site's current level to
// whatever ranks hold a halo copy of it (inferred from that site's own
// Remote/PeriodicHalo neighbor list, which is symmetric: if we see rank R
// as a neighbor of ours, R holds a halo copy of us), and folds the
// replies into haloLevels for the next global step's dependency checks.
func (s *Scheduler) exchangeHaloLevels(touched map[particle.Id]bool) {
	outgoing := make(comm.DataByRank[level.LevelUpdate])
	for id := range touched {
		site := s.sites[id]
		seenRank := map[int32]bool{}
		for _, face := range site.Cell.Faces {
			if face.Neighbor.Kind != voronoi.NeighborRemote && face.Neighbor.Kind != voronoi.NeighborPeriodicHalo {
				continue
			}
			if seenRank[face.Neighbor.Rank] {
				continue
			}
			seenRank[face.Neighbor.Rank] = true
			rank := int(face.Neighbor.Rank)
			outgoing[rank] = append(outgoing[rank], level.LevelUpdate{ID: id, Level: site.Level})
		}
	}
	for _, update := range level.ExchangeHaloLevels(s.comm, outgoing) {
		s.haloLevels[update.ID] = update.Level
	}
}

// remoteLevel reports the last known level of a non-local particle.
func (s *Scheduler) remoteLevel(id particle.Id) int {
	if lvl, ok := s.haloLevels[id]; ok {
		return lvl
	}
	return 0
}

// activeIDs returns every local site whose level is active at this
// sub-step (spec.md §3: "level l is active in sub-step i iff i mod 2^l
// == 0").
func (s *Scheduler) activeIDs(subStep int) []particle.Id {
	var out []particle.Id
	for _, id := range s.order {
		site := s.sites[id]
		if s.levels.IsActive(site.Level, subStep) {
			out = append(out, id)
		}
	}
	return out
}

// directionState is the per-direction scratch bookkeeping the ready-queue
// sweep needs: how many upwind dependencies remain, and how much flux has
// arrived so far.
type directionState struct {
	missing  map[particle.Id]int
	incoming map[particle.Id]float64
	done     map[particle.Id]bool
}

// sweepDirection runs one direction's full upwind sweep to completion
// across every rank: process every locally-ready site, buffer and
// exchange cross-rank FluxDeliveries, and repeat until a collective
// all-reduce confirms no rank made progress this round (spec.md §4.3,
// §5 "Termination detection").
func (s *Scheduler) sweepDirection(d int, dir [3]float64, active []particle.Id, subStep int, absorbed map[particle.Id]float64, nDir float64) {
	st := &directionState{
		missing:  make(map[particle.Id]int, len(active)),
		incoming: make(map[particle.Id]float64, len(active)),
		done:     make(map[particle.Id]bool, len(active)),
	}
	activeSet := make(map[particle.Id]bool, len(active))
	for _, id := range active {
		activeSet[id] = true
	}

	var ready []particle.Id
	for _, id := range active {
		site := s.sites[id]
		missing := 0
		for _, face := range site.Cell.Faces {
			if dotDirection(face.Normal, dir) >= 0 {
				continue // downwind or tangential: not a dependency
			}
			switch face.Neighbor.Kind {
			case voronoi.NeighborBoundary:
				// vacuum boundary: zero incoming, not blocking
			case voronoi.NeighborLocal:
				if activeSet[face.Neighbor.ID] {
					missing++
				}
			case voronoi.NeighborRemote, voronoi.NeighborPeriodicHalo:
				if s.levels.IsActive(s.remoteLevel(face.Neighbor.ID), subStep) {
					missing++
				}
			}
		}
		st.missing[id] = missing
		if missing == 0 {
			ready = append(ready, id)
		}
	}

	monitor := newDeadlockMonitor(s.opts.CheckDeadlock, s.opts.MaxStalledRounds, d)
	for {
		outgoingByRank := make(comm.DataByRank[FluxDelivery])
		progressed := len(ready) > 0
		for len(ready) > 0 {
			id := ready[0]
			ready = ready[1:]
			if st.done[id] {
				continue
			}
			st.done[id] = true
			s.processReadySite(id, dir, subStep, st, absorbed, nDir, outgoingByRank, activeSet, &ready)
		}

		incoming := comm.Exchange(s.comm, outgoingByRank)
		receivedAny := false
		for _, batch := range incoming {
			for _, delivery := range batch {
				receivedAny = true
				st.incoming[delivery.ToID] += delivery.Value
				if st.missing[delivery.ToID] > 0 {
					st.missing[delivery.ToID]--
				}
				if st.missing[delivery.ToID] == 0 && !st.done[delivery.ToID] {
					ready = append(ready, delivery.ToID)
				}
			}
		}
		sentAny := len(outgoingByRank) > 0
		progressed = progressed || receivedAny || sentAny

		if s.comm.AllReduceAll(!progressed) {
			break
		}
		monitor.Observe(progressed)
	}
}

// processReadySite computes site's outgoing flux for this direction and
// fans it out to every downwind face, weighted by the face's projected
// area (area times the cosine of the angle to dir) so the redistribution
// is a physically reasonable apportionment of a cell's outgoing
// radiation among its downwind Voronoi neighbors.
func (s *Scheduler) processReadySite(id particle.Id, dir [3]float64, subStep int, st *directionState, absorbed map[particle.Id]float64, nDir float64, outgoingByRank comm.DataByRank[FluxDelivery], activeSet map[particle.Id]bool, ready *[]particle.Id) {
	site := s.sites[id]
	incoming := st.incoming[id]
	cs := site.chemistrySite(incoming)
	outgoing := chemistry.OutgoingFlux(cs, nDir, s.opts.SignificantRateThreshold)
	absorbed[id] += incoming + site.SourceRate/nDir - outgoing

	type weighted struct {
		face   voronoi.Face
		weight float64
	}
	var downwind []weighted
	var total float64
	for _, face := range site.Cell.Faces {
		w := dotDirection(face.Normal, dir)
		if w <= 0 {
			continue
		}
		weight := w * face.Area
		downwind = append(downwind, weighted{face, weight})
		total += weight
	}
	if total <= 0 || outgoing == 0 {
		return
	}
	for _, dw := range downwind {
		share := outgoing * dw.weight / total
		switch dw.face.Neighbor.Kind {
		case voronoi.NeighborLocal:
			if !activeSet[dw.face.Neighbor.ID] {
				continue // inactive this sub-step: picks up fresh flux once it wakes
			}
			st.incoming[dw.face.Neighbor.ID] += share
			if st.missing[dw.face.Neighbor.ID] > 0 {
				st.missing[dw.face.Neighbor.ID]--
			}
			if st.missing[dw.face.Neighbor.ID] == 0 && !st.done[dw.face.Neighbor.ID] {
				*ready = append(*ready, dw.face.Neighbor.ID)
			}
		case voronoi.NeighborRemote, voronoi.NeighborPeriodicHalo:
			if !s.levels.IsActive(s.remoteLevel(dw.face.Neighbor.ID), subStep) {
				continue
			}
			rank := int(dw.face.Neighbor.Rank)
			outgoingByRank[rank] = append(outgoingByRank[rank], FluxDelivery{
				ToID: dw.face.Neighbor.ID, FromID: id, Value: share,
			})
		case voronoi.NeighborBoundary:
			// escapes the domain; no bookkeeping needed
		}
	}
}

func dotDirection(normal, dir [3]float64) float64 {
	return normal[0]*dir[0] + normal[1]*dir[1] + normal[2]*dir[2]
}
