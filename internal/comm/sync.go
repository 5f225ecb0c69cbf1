// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package comm

// SyncRequest is one outgoing (entity_id, payload) pair in a Sync round,
// per spec.md §4.4: "request-reply with caller-supplied identity."
type SyncRequest[T any] struct {
	EntityID int64
	Payload  T
}

// SyncResult reports, per entity id, whether the remote side acknowledged
// it as updated or deleted.
type SyncResult struct {
	Updated []int64
	Deleted []int64
}

// Sync runs one request/reply round: each rank supplies the requests it
// wants to send to every other rank (keyed by destination), and an
// acknowledge function decides, for a batch of incoming requests, which
// entity ids were updated and which were deleted. The combined
// acknowledgements from every rank the caller sent to are returned.
func Sync[T any](c *Communicator, outgoing DataByRank[SyncRequest[T]], acknowledge func(from int, reqs []SyncRequest[T]) SyncResult) SyncResult {
	incoming := Exchange(c, outgoing)
	// answer every rank that asked us something
	replies := make(DataByRank[SyncResult])
	for src, reqs := range incoming {
		replies[src] = []SyncResult{acknowledge(src, reqs)}
	}
	acks := Exchange(c, replies)
	var combined SyncResult
	for _, results := range acks {
		for _, r := range results {
			combined.Updated = append(combined.Updated, r.Updated...)
			combined.Deleted = append(combined.Deleted, r.Deleted...)
		}
	}
	return combined
}
