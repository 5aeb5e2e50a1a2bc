// Copyright (c) 2024 The scriptcond developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command scriptcond analyzes a transaction-authorization script and prints
// the disjunction of spending conditions a witness must satisfy, per
// spec.md §6's "External Interfaces". It is a thin flags-and-formatting
// shell around package driver, grounded on the teacher's cmd/ binaries
// (fees/cmd/dumpfeedb, cmd/addblock) that parse a small config struct with
// github.com/jessevdk/go-flags and hand it to a library package.
package main

import (
	"fmt"
	"os"

	"github.com/btcsuite/scriptcond/exec"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultVersion = "legacy"
	defaultRules   = "all"
)

// config defines the command-line options for scriptcond.
//
// See loadConfig for details on the configuration load process.
type config struct {
	Script      string `short:"s" long:"script" description:"Hex-encoded script to analyze" required:"true"`
	Version     string `long:"version" description:"Script version: legacy, segwitv0, or segwitv1" default:"legacy"`
	Rules       string `long:"rules" description:"Rule set: all, or consensus-only" default:"all"`
	Compact     bool   `long:"compact" description:"Render the disassembly in compact one-line form"`
	MaxBranches int    `long:"max-branches" description:"Abort with an error if analysis would produce more than this many branches (0 disables the check)"`
	Verbose     bool   `short:"v" long:"verbose" description:"Enable trace-level logging of the analysis"`
}

// parseVersion maps cfg.Version's flag spelling to exec.Version.
func parseVersion(s string) (exec.Version, error) {
	switch s {
	case "legacy":
		return exec.Legacy, nil
	case "segwitv0":
		return exec.SegwitV0, nil
	case "segwitv1":
		return exec.SegwitV1, nil
	default:
		return 0, fmt.Errorf("unknown --version %q (want legacy, segwitv0, or segwitv1)", s)
	}
}

// parseRules maps cfg.Rules's flag spelling to exec.Rules.
func parseRules(s string) (exec.Rules, error) {
	switch s {
	case "all":
		return exec.All, nil
	case "consensus-only":
		return exec.ConsensusOnly, nil
	default:
		return 0, fmt.Errorf("unknown --rules %q (want all, or consensus-only)", s)
	}
}

// loadConfig parses the command line options, following the teacher's
// loadConfig idiom (util/btcctl/config.go, cmd/addblock/config.go): a
// default config, flags.NewParser(&cfg, flags.Default).Parse(), then
// validation that turns any bad flag values into an error before main
// proceeds.
func loadConfig() (*config, error) {
	cfg := config{
		Version: defaultVersion,
		Rules:   defaultRules,
	}

	parser := flags.NewParser(&cfg, flags.Default)
	_, err := parser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return nil, err
	}

	if _, err := parseVersion(cfg.Version); err != nil {
		return nil, err
	}
	if _, err := parseRules(cfg.Rules); err != nil {
		return nil, err
	}
	if cfg.MaxBranches < 0 {
		return nil, fmt.Errorf("--max-branches must be >= 0, got %d", cfg.MaxBranches)
	}

	return &cfg, nil
}
