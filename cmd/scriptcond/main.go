// Copyright (c) 2024 The scriptcond developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/btcsuite/btclog"
	"github.com/btcsuite/scriptcond/driver"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		os.Exit(1)
	}

	if cfg.Verbose {
		backend := btclog.NewBackend(os.Stderr)
		logger := backend.Logger("SCND")
		level, _ := btclog.LevelFromString("trace")
		logger.SetLevel(level)
		driver.UseLogger(logger)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config) error {
	raw, err := hex.DecodeString(cfg.Script)
	if err != nil {
		return fmt.Errorf("decoding --script: %w", err)
	}

	version, err := parseVersion(cfg.Version)
	if err != nil {
		return err
	}
	rules, err := parseRules(cfg.Rules)
	if err != nil {
		return err
	}

	res, err := driver.Analyze(raw, driver.Options{
		Version:     version,
		Rules:       rules,
		MaxBranches: cfg.MaxBranches,
		Compact:     cfg.Compact,
	})
	if err != nil {
		return err
	}

	fmt.Println("script:", res.Disasm)
	fmt.Printf("branches: %d (%d failed)\n", res.TotalBranches, len(res.PathErrors))
	for _, pe := range res.PathErrors {
		fmt.Println(pe.String())
	}
	if res.Disjunction != "" {
		fmt.Println("spending condition:")
		fmt.Println(res.Disjunction)
	} else {
		fmt.Println("spending condition: <none satisfiable>")
	}
	return nil
}
