// Copyright (c) 2024 The scriptcond developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package driver implements the analysis pipeline described in spec §2's
// "Data flow" and §6's external interfaces: pre-scan a script for disabled
// opcodes, run the symbolic executor to build the branch registry, hand
// each surviving branch's spending conditions to the simplifier, and render
// the printed disjunction. It is the thin layer everything else (the
// cmd/scriptcond binary, tests) drives through, mirroring the relationship
// txscript's Engine.Execute has to the higher-level VerifyScript-style
// entry points in the teacher package.
package driver

import (
	"errors"
	"fmt"

	"github.com/btcsuite/scriptcond/exec"
	"github.com/btcsuite/scriptcond/expr"
	"github.com/btcsuite/scriptcond/item"
	"github.com/btcsuite/scriptcond/opcode"
	"github.com/btcsuite/scriptcond/scripterr"
	"github.com/btcsuite/scriptcond/simplify"
)

// ErrTooManyBranches is returned when the branch registry produced by a
// script exceeds Options.MaxBranches. This is a driver-level safety valve,
// not part of the spec's fixed error taxonomy (§7): the reference engine
// never forks, so it has no analogous resource bound. It defaults to
// disabled (MaxBranches == 0), so default behavior never departs from the
// spec.
var ErrTooManyBranches = errors.New("branch registry exceeded configured --max-branches limit")

// Options carries the configuration inputs spec §6 says are "read once" per
// analysis, plus driver-only extensions (SUPPLEMENTED FEATURES in
// SPEC_FULL.md).
type Options struct {
	// Version and Rules gate minimal-if and disallowed opcodes (spec §3, §6).
	Version exec.Version
	Rules   exec.Rules

	// MaxBranches bounds the number of branch-registry entries a single
	// analysis may produce; the check runs after the executor has finished,
	// and Analyze then returns ErrTooManyBranches instead of a Result.
	// Zero means unlimited, matching the reference analyzer's behavior.
	MaxBranches int

	// Compact selects the one-line disassembly mode (SPEC_FULL.md
	// SUPPLEMENTED FEATURES) used when rendering Result.Disasm.
	Compact bool
}

// Result is the outcome of one Analyze call.
type Result struct {
	// Disasm is the disassembly of the input script, rendered in full or
	// compact form per Options.Compact.
	Disasm string

	// PathErrors holds one diagnostic per branch that terminated with an
	// error (spec §7: "a diagnostic is emitted carrying (error kind,
	// current stack snapshot)").
	PathErrors []*scripterr.PathError

	// TotalBranches is the number of entries the branch registry produced,
	// error or not (spec §4.3).
	TotalBranches int

	// Disjunction is the simplifier's printed disjunctive normal form over
	// the branches that completed without error (spec §4.4 "Printing").
	Disjunction string
}

// Analyze runs the full pipeline (spec §2 "Data flow", §6 "Core entry"):
// parse, pre-scan for disabled opcodes, execute, simplify, print.
func Analyze(raw []byte, opts Options) (*Result, error) {
	script, err := item.Parse(raw)
	if err != nil {
		log.Debugf("parse failed: %v", err)
		return nil, err
	}

	disasm := item.Disasm(script)
	if opts.Compact {
		disasm = item.DisasmCompact(script)
	}
	log.Tracef("analyzing script: %s", disasm)

	if bad, found := item.HasDisabled(script); found {
		desc := fmt.Sprintf("script contains disabled opcode %s", opcode.Name(bad))
		log.Debugf("pre-scan: %s", desc)
		return nil, scripterr.New(scripterr.ErrDisabledOpcode, desc)
	}

	reg := exec.Analyze(script, opts.Version, opts.Rules)
	log.Debugf("analysis produced %d branch(es)", len(reg.Branches))

	if opts.MaxBranches > 0 && len(reg.Branches) > opts.MaxBranches {
		log.Warnf("branch count %d exceeds max-branches %d", len(reg.Branches), opts.MaxBranches)
		return nil, ErrTooManyBranches
	}

	result := &Result{Disasm: disasm, TotalBranches: len(reg.Branches)}

	var surviving [][]*expr.Expr
	for _, b := range reg.Branches {
		if b.Err != nil {
			stack, altstack := b.Snapshot()
			pe := &scripterr.PathError{
				Path:     b.Path,
				Err:      b.Err,
				Stack:    stack,
				AltStack: altstack,
			}
			log.Tracef("path %d failed: %s", b.Path, pe.Err.Error())
			result.PathErrors = append(result.PathErrors, pe)
			continue
		}
		surviving = append(surviving, b.SpendingConditions)
	}

	simplified := simplify.Simplify(surviving)
	result.Disjunction = simplify.Print(simplified)
	return result, nil
}
