// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package halocache

import (
	"testing"

	"github.com/cpmech/gosl/chk"

	"github.com/cpmech/gort/internal/particle"
)

func TestMarkSentIsIdempotentPerRequester(tst *testing.T) {
	chk.PrintTitle("MarkSentIsIdempotentPerRequester")
	c := New()
	p := particle.Id{Rank: 1, Index: 5}
	if !c.MarkSent(2, p) {
		tst.Errorf("first send to rank 2 must be reported new")
	}
	if c.MarkSent(2, p) {
		tst.Errorf("repeated send to the same requester must not be new")
	}
	if !c.MarkSent(3, p) {
		tst.Errorf("a different requester must still see it as new")
	}
	chk.IntAssert(c.Len(), 2)
}

func TestImportedLookup(tst *testing.T) {
	chk.PrintTitle("ImportedLookup")
	c := New()
	foreign := particle.Id{Rank: 1, Index: 9}
	local := particle.Id{Rank: 0, Index: 42}
	if _, ok := c.LocalCopyOf(foreign); ok {
		tst.Errorf("must not find an import before it is recorded")
	}
	c.MarkImported(foreign, local)
	got, ok := c.LocalCopyOf(foreign)
	if !ok || got != local {
		tst.Errorf("expected %v, got %v (ok=%v)", local, got, ok)
	}
}
