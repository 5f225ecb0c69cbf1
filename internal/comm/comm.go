// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package comm implements the exchange layer: typed send/receive,
// all-gather (fixed and var-count) and all-reduce, layered into the two
// convenience abstractions spec.md §4.4 names: ExchangeCommunicator
// (expects symmetric sends) and SyncCommunicator (identity-tagged
// request/reply). Everything here is a thin wrapper over
// github.com/cpmech/gosl/mpi, continuing the teacher's own use of that
// package in fem/fem.go and fem/main.go, generalized from ad hoc rank
// checks into a reusable typed API.
package comm

import (
	"bytes"
	"encoding/gob"

	"github.com/cpmech/gosl/mpi"

	"github.com/cpmech/gort/internal/rterr"
)

// DataByRank partitions a payload of T by destination/source rank, the
// shape every Exchange call is built around.
type DataByRank[T any] map[int][]T

// Communicator is the thin handle every rank holds on the MPI world. It is
// process-wide state initialized once at startup (spec.md §9: "non-send
// resources for transport handles"): brought up before the first
// collective and torn down after the last one.
type Communicator struct {
	world mpi.Communicator // nil in forced-serial mode
}

// Start initializes the process-wide transport. allowParallel mirrors the
// teacher's NewFEM flag of the same name: when false, runs are forced
// single-rank even under `mpirun`.
func Start(allowParallel bool) *Communicator {
	mpi.Start(false)
	c := &Communicator{}
	if mpi.IsOn() && allowParallel {
		c.world = mpi.NewCommunicator(nil)
	}
	return c
}

// Stop tears down the transport after the last collective, mirroring the
// teacher's `defer mpi.Stop(false)`.
func (c *Communicator) Stop() { mpi.Stop(false) }

// Rank returns this process's rank, 0 in serial mode.
func (c *Communicator) Rank() int {
	if c.world == nil {
		return 0
	}
	return c.world.Rank()
}

// Size returns the number of ranks, 1 in serial mode.
func (c *Communicator) Size() int {
	if c.world == nil {
		return 1
	}
	return c.world.Size()
}

// Barrier blocks until every rank has reached this point.
func (c *Communicator) Barrier() {
	if c.world != nil {
		c.world.Barrier()
	}
}

// Abort terminates every rank symmetrically, the policy spec.md §7
// requires: "the first rank to hit a fatal error broadcasts an abort;
// ranks ... exit with the same code."
func (c *Communicator) Abort() {
	if c.world != nil {
		c.world.Abort()
	}
}

// AllReduceSumInt sums one int per rank across all ranks.
func (c *Communicator) AllReduceSumInt(v int) int {
	if c.world == nil {
		return v
	}
	recv := make([]float64, 1)
	c.world.AllReduceSum(recv, []float64{float64(v)})
	return int(recv[0])
}

// AllReduceSumFloat sums one float64 per rank across all ranks.
func (c *Communicator) AllReduceSumFloat(v float64) float64 {
	if c.world == nil {
		return v
	}
	recv := make([]float64, 1)
	c.world.AllReduceSum(recv, []float64{v})
	return recv[0]
}

// AllReduceMinFloat/AllReduceMaxFloat back the load-imbalance computation
// of spec.md §4.1 ((max_load - min_load) / max_load).
func (c *Communicator) AllReduceMinFloat(v float64) float64 {
	if c.world == nil {
		return v
	}
	recv := make([]float64, 1)
	c.world.AllReduceMin(recv, []float64{v})
	return recv[0]
}

func (c *Communicator) AllReduceMaxFloat(v float64) float64 {
	if c.world == nil {
		return v
	}
	recv := make([]float64, 1)
	c.world.AllReduceMax(recv, []float64{v})
	return recv[0]
}

// AllReduceAll reports whether every rank passed true, used by the sweep's
// termination detection (spec.md §5: "an all-reduce of that predicate
// holds on every rank") and the halo iteration's convergence check.
func (c *Communicator) AllReduceAll(v bool) bool {
	n := 0
	if v {
		n = 1
	}
	return c.AllReduceSumInt(n) == c.Size()
}

// AllGatherVarCounts all-gathers a single int (typically a length) from
// every rank; the building block a var-count all-gather needs to know how
// much each rank is about to contribute (spec.md §4.4).
func (c *Communicator) AllGatherVarCounts(n int) []int {
	size := c.Size()
	if c.world == nil {
		return []int{n}
	}
	recv := make([]float64, size)
	c.world.AllGather(recv, []float64{float64(n)})
	counts := make([]int, size)
	for i := range counts {
		counts[i] = int(recv[i])
	}
	return counts
}

// AllGather collects one T per rank into a slice ordered by rank
// (fixed-count all-gather, spec.md §4.4), gob-encoded since T is generic.
func AllGather[T any](c *Communicator, local T) []T {
	if c.world == nil {
		return []T{local}
	}
	raw := encodeOne(local)
	counts := c.AllGatherVarCounts(len(raw))
	gathered := c.world.AllGatherBytes(raw, counts)
	out := make([]T, c.Size())
	offset := 0
	for r, n := range counts {
		out[r] = decodeOne[T](gathered[offset : offset+n])
		offset += n
	}
	return out
}

// AllGatherVar collects a variable-length []T from every rank, returning a
// per-rank partition (var-count all-gather, spec.md §4.4).
func AllGatherVar[T any](c *Communicator, local []T) [][]T {
	if c.world == nil {
		return [][]T{local}
	}
	raw := encode(local)
	counts := c.AllGatherVarCounts(len(raw))
	gathered := c.world.AllGatherBytes(raw, counts)
	out := make([][]T, c.Size())
	offset := 0
	for r, n := range counts {
		out[r] = decode[T](gathered[offset : offset+n])
		offset += n
	}
	return out
}

// Exchange implements the symmetric Exchange(T) primitive: each rank
// supplies a DataByRank[T] of what to send, and receives a DataByRank[T] of
// what every other rank sent it. Precondition (checked): for all (a,b),
// rank a sends to b iff b sends to a -- callers violating this get a
// MessagingFailure, per spec.md §4.4 and §7. Deliveries within a
// (sender,receiver) pair are FIFO; across pairs no order is guaranteed.
func Exchange[T any](c *Communicator, outgoing DataByRank[T]) DataByRank[T] {
	incoming := make(DataByRank[T])
	if c.world == nil {
		return incoming
	}
	// announce, to every rank, whether we intend to send it anything, so
	// both sides of each pair agree before any blocking send/recv is
	// posted -- this is what turns an arbitrary send plan into a verified
	// symmetric one instead of silently deadlocking.
	wantsToSend := make([]bool, c.Size())
	for dst := range outgoing {
		wantsToSend[dst] = true
	}
	plan := AllGather[[]bool](c, wantsToSend)
	for r := 0; r < c.Size(); r++ {
		if r == c.Rank() {
			continue
		}
		_, iSend := outgoing[r]
		theySend := plan[r][c.Rank()]
		if iSend != theySend {
			fatalOnNoSymmetry(c.Rank(), r)
		}
	}
	for dst, items := range outgoing {
		c.world.SendBytes(encode(items), dst)
	}
	for r := 0; r < c.Size(); r++ {
		if !plan[r][c.Rank()] {
			continue
		}
		raw := c.world.RecvBytes(r)
		items := decode[T](raw)
		if len(items) > 0 {
			incoming[r] = items
		}
	}
	return incoming
}

// encode/decode give every payload type (SearchData, PointRecord,
// dependency pairs, level updates, ...) a uniform wire format without
// hand-writing a codec per call site; gosl/mpi's raw Send/Recv only moves
// byte slices, so gob is the encoding underneath.
func encode[T any](items []T) []byte {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(items); err != nil {
		rterr.Fatal(rterr.MessagingFailure, "comm: failed to encode payload: %v", err)
	}
	return buf.Bytes()
}

func decode[T any](raw []byte) []T {
	var items []T
	if len(raw) == 0 {
		return items
	}
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&items); err != nil {
		rterr.Fatal(rterr.MessagingFailure, "comm: failed to decode payload: %v", err)
	}
	return items
}

func encodeOne[T any](item T) []byte {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(item); err != nil {
		rterr.Fatal(rterr.MessagingFailure, "comm: failed to encode payload: %v", err)
	}
	return buf.Bytes()
}

func decodeOne[T any](raw []byte) T {
	var item T
	if len(raw) == 0 {
		return item
	}
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&item); err != nil {
		rterr.Fatal(rterr.MessagingFailure, "comm: failed to decode payload: %v", err)
	}
	return item
}

// fatalOnNoSymmetry raises the MessagingFailure the Exchange precondition
// promises when callers build an asymmetric send plan.
func fatalOnNoSymmetry(a, b int) {
	rterr.Fatal(rterr.MessagingFailure, "exchange precondition violated: rank %d and rank %d disagree on whether a message passes between them", a, b)
}
