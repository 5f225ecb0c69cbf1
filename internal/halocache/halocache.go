// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package halocache records which (foreign_id -> local_point) pairs have
// already been imported as halo points, so repeated radius queries never
// duplicate points (spec.md §2, "Halo cache"). Grounded on
// original_source/src/voronoi/constructor/halo_iteration.rs's dedup logic.
package halocache

import "github.com/cpmech/gort/internal/particle"

// key identifies one (requesting rank, local id) pair: "this point, as seen
// from that rank's halo request, has already been answered."
type key struct {
	requestingRank int
	local          particle.Id
}

// Cache is a single rank's bookkeeping of what it has already sent out (or
// imported) as halo copies, indexed so a repeated radius query never
// re-returns (or re-imports) the same point.
type Cache struct {
	sent     map[key]bool
	imported map[particle.Id]particle.Id // foreign_id -> local slot id
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{
		sent:     make(map[key]bool),
		imported: make(map[particle.Id]particle.Id),
	}
}

// MarkSent records that this rank has already answered requestingRank's
// query with local, and reports whether it was new (false means it was
// already sent and must be filtered out, per spec.md §4.2 step 4).
func (c *Cache) MarkSent(requestingRank int, local particle.Id) (isNew bool) {
	k := key{requestingRank, local}
	if c.sent[k] {
		return false
	}
	c.sent[k] = true
	return true
}

// MarkImported records that foreign was imported as localCopy, so a
// subsequent query that would return the same foreign point again can be
// recognized and skipped instead of inserted twice.
func (c *Cache) MarkImported(foreign, localCopy particle.Id) {
	c.imported[foreign] = localCopy
}

// LocalCopyOf reports whether foreign has already been imported, and if so
// which local id it was given.
func (c *Cache) LocalCopyOf(foreign particle.Id) (particle.Id, bool) {
	id, ok := c.imported[foreign]
	return id, ok
}

// Len reports how many distinct (rank, local) pairs have been sent; used in
// tests and progress logging.
func (c *Cache) Len() int { return len(c.sent) }
