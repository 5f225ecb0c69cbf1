// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rtlog wraps logrus with the teacher's rank-gated message
// convention: o.ShowMsg = verbose && (Proc == 0), see fem/fem.go.
package rtlog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger gates structured logging on rank and verbosity the way the
// teacher gates its io.Pf console messages.
type Logger struct {
	entry   *logrus.Entry
	rank    int
	verbose int // 0, 1 or 2, matching --verbosity
}

// New builds a Logger for the given rank. verbosity 0 silences everything
// but Fatal/Warn; 1 enables Info; 2 additionally enables Debug.
func New(rank, verbosity int) *Logger {
	base := logrus.New()
	base.SetOutput(os.Stderr)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	switch {
	case verbosity >= 2:
		base.SetLevel(logrus.DebugLevel)
	case verbosity == 1:
		base.SetLevel(logrus.InfoLevel)
	default:
		base.SetLevel(logrus.WarnLevel)
	}
	return &Logger{
		entry:   base.WithField("rank", rank),
		rank:    rank,
		verbose: verbosity,
	}
}

// shown mirrors the teacher's `verbose && (o.Proc==0)` gate, except Warn
// and Fatal always show on every rank (a load-imbalance warning from rank 3
// must not be swallowed).
func (l *Logger) shown() bool { return l.rank == 0 }

// Info logs a rank-0-only informational message with structured fields.
func (l *Logger) Info(msg string, fields logrus.Fields) {
	if !l.shown() {
		return
	}
	l.entry.WithFields(fields).Info(msg)
}

// Debug logs a rank-0-only debug message, gated further on verbosity==2.
func (l *Logger) Debug(msg string, fields logrus.Fields) {
	if !l.shown() || l.verbose < 2 {
		return
	}
	l.entry.WithFields(fields).Debug(msg)
}

// Warn always logs, on every rank — used for the LoadImbalance warning.
func (l *Logger) Warn(msg string, fields logrus.Fields) {
	l.entry.WithFields(fields).Warn(msg)
}

// Fatal always logs on every rank before the caller panics/aborts.
func (l *Logger) Fatal(msg string, fields logrus.Fields) {
	l.entry.WithFields(fields).Error(msg)
}
