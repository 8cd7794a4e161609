package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/rwm/internal/errors"
	"github.com/kraklabs/rwm/internal/ui"
)

// runPrune removes artifact pool files no longer referenced by any row in
// the structured store.
func runPrune(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("prune", flag.ExitOnError)
	ef := bindEngineFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: rwm prune [options]

Description:
  Removes files in the artifact pool that no longer have a matching
  sha256 reference in the structured store (e.g. after superseded
  artifact_update rewrites, or a manually edited database).

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		errors.FatalError(err, false)
	}
	eng, err := openEngine(ef, cfg)
	if err != nil {
		errors.FatalError(err, false)
	}
	defer func() { _ = eng.Close() }()

	ctx := context.Background()
	known, err := eng.DB.ListArtifactHashes(ctx)
	if err != nil {
		errors.FatalError(err, false)
	}

	removed, err := eng.Artifacts.PruneOrphans(ctx, known)
	if err != nil {
		errors.FatalError(err, false)
	}

	if globals.JSON {
		fmt.Printf(`{"removed":%d}`+"\n", removed)
		return
	}
	ui.Successf("Pruned %d orphaned artifact file(s)", removed)
}
