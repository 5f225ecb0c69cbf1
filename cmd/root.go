// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cmd implements the command-line interface: a single cobra
// command taking the parameter file as its one positional argument, with
// flags for thread count, verbosity, headless mode and repeatable
// dotted-path overrides (spec.md §6 "external interfaces"). Grounded on
// spatialmodel-inmap/inmap/cmd/root.go's RootCmd shape, generalized from
// a config-file PersistentPreRun to this corpus's positional-argument
// convention (the teacher's own flag.Arg(0) in main.go).
package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/cpmech/gort/inp"
	"github.com/cpmech/gort/internal/comm"
	"github.com/cpmech/gort/internal/rtlog"
	"github.com/cpmech/gort/internal/simrun"
)

var (
	numThreads int
	verbosity  int
	headless   bool
	overrides  []string
)

// RootCmd is the single entry point: `gort [flags] <parameter_file>`.
var RootCmd = &cobra.Command{
	Use:   "gort <parameter_file>",
	Short: "Distributed radiative-transfer particle sweep solver.",
	Long: `gort runs a moving-mesh radiative transfer simulation: it decomposes
a particle cloud across ranks, builds the parallel Voronoi mesh, and runs
the directional sweep/chemistry/level loop to completion, writing one
snapshot file per rank at the configured cadence.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSimulation(args[0])
	},
	SilenceUsage: true,
}

func init() {
	flags := RootCmd.Flags()
	flags.IntVar(&numThreads, "num-threads", 1, "GOMAXPROCS to use per rank")
	flags.IntVar(&verbosity, "verbosity", 1, "log verbosity: 0 (warnings only), 1 (info), 2 (debug)")
	flags.BoolVar(&headless, "headless", false, "suppress the startup banner")
	flags.StringArrayVar(&overrides, "override", nil, "dotted.path=value parameter override, repeatable")
}

// runSimulation is the RunE body, factored out so Execute's cobra plumbing
// stays separate from the MPI lifecycle main() drives. A panic escaping
// simrun (an rterr.Fatal from any layer) is caught here, where the
// Communicator is in scope, so the abort can be broadcast to every rank
// before the process exits -- the policy spec.md §7 requires: "the first
// rank to hit a fatal error broadcasts an abort; ranks ... exit with the
// same code."
func runSimulation(paramPath string) (err error) {
	param, err := inp.ReadParam(paramPath, overrides)
	if err != nil {
		return err
	}

	if numThreads > 0 {
		runtime.GOMAXPROCS(numThreads)
	}
	c := comm.Start(true)
	defer c.Stop()
	defer func() {
		if r := recover(); r != nil {
			c.Abort()
			err = fmt.Errorf("fatal: %v", r)
		}
	}()

	log := rtlog.New(c.Rank(), verbosity)
	if !headless && c.Rank() == 0 {
		fmt.Println("gort -- distributed radiative-transfer sweep solver")
	}

	driver, err := simrun.New(param, c, log)
	if err != nil {
		return err
	}
	return driver.Run()
}

// Execute runs RootCmd, converting any error it returns into a process
// exit code, mirroring the teacher's main.go recover-and-report block.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
