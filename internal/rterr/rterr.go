// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rterr implements the fatal-error taxonomy of spec.md §7, raised
// in the teacher's chk.Panic style but carrying a typed Kind so the
// top-level recover can decide how to broadcast the collective abort.
package rterr

import "fmt"

// Kind classifies a fatal (or, for LoadImbalance, merely noteworthy) error.
type Kind int

const (
	PrecisionError Kind = iota
	DegenerateInput
	DimensionMismatch
	LoadImbalance
	MessagingFailure
	LogicInvariantBroken
)

// String names the kind for log lines and panic messages.
func (k Kind) String() string {
	switch k {
	case PrecisionError:
		return "PrecisionError"
	case DegenerateInput:
		return "DegenerateInput"
	case DimensionMismatch:
		return "DimensionMismatch"
	case LoadImbalance:
		return "LoadImbalance"
	case MessagingFailure:
		return "MessagingFailure"
	case LogicInvariantBroken:
		return "LogicInvariantBroken"
	default:
		return "Unknown"
	}
}

// Error is a typed, formatted fatal condition.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// New builds a formatted *Error, mirroring gosl/chk.Panic's printf-style
// signature but returning instead of calling os.Exit directly.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Fatal panics with a typed *Error. Only the top-level recover (cmd/root.go)
// should catch this; every intermediate layer should propagate the error
// return instead of recovering early, exactly as the teacher's fem package
// never recovers except at main().
func Fatal(kind Kind, format string, args ...interface{}) {
	panic(New(kind, format, args...))
}

// IsKind reports whether err (as returned from recover()) is an *Error of
// the given kind.
func IsKind(v interface{}, kind Kind) bool {
	e, ok := v.(*Error)
	return ok && e.Kind == kind
}
