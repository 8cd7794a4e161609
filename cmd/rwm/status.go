package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/rwm/internal/errors"
	"github.com/kraklabs/rwm/internal/ui"
	"github.com/kraklabs/rwm/pkg/store"
)

// StatusResult is the JSON shape printed by `rwm status --json`.
type StatusResult struct {
	Root         string       `json:"root"`
	DBPath       string       `json:"db_path"`
	ArtifactsDir string       `json:"artifacts_dir"`
	ModelFamily  string       `json:"model_family"`
	BundleTokens int          `json:"bundle_tokens"`
	Counts       store.Counts `json:"counts"`
}

func runStatus(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	ef := bindEngineFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: rwm status [options]\n\nDescription:\n  Show session and storage status: row counts and resolved paths.\n\nOptions:\n")
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

	counts, err := eng.DB.Counts(context.Background())
	if err != nil {
		errors.FatalError(err, false)
	}

	result := StatusResult{
		Root:         eng.Root,
		DBPath:       eng.DBPath,
		ArtifactsDir: eng.ArtifactsDir,
		ModelFamily:  eng.Dispatcher.ModelFamily,
		BundleTokens: eng.Dispatcher.DefaultBudget,
		Counts:       counts,
	}

	if globals.JSON {
		outputStatusJSON(result)
		return
	}
	printStatus(result)
}

func outputStatusJSON(result StatusResult) {
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		errors.FatalError(errors.NewInternalError("Cannot encode status", err.Error(), "", err), false)
	}
	fmt.Println(string(out))
}

func printStatus(result StatusResult) {
	ui.Header("rwm status")
	fmt.Printf("%s %s\n", ui.Label("root:"), result.Root)
	fmt.Printf("%s %s\n", ui.Label("db:"), result.DBPath)
	fmt.Printf("%s %s\n", ui.Label("artifacts:"), result.ArtifactsDir)
	fmt.Printf("%s %s\n", ui.Label("model family:"), result.ModelFamily)
	fmt.Printf("%s %d\n", ui.Label("bundle tokens:"), result.BundleTokens)
	fmt.Println()

	ui.SubHeader("Stored entities")
	fmt.Printf("  tasks:       %s\n", ui.CountText(result.Counts.Tasks))
	fmt.Printf("  events:      %s\n", ui.CountText(result.Counts.Events))
	fmt.Printf("  artifacts:   %s\n", ui.CountText(result.Counts.Artifacts))
	fmt.Printf("  facts:       %s\n", ui.CountText(result.Counts.Facts))
	fmt.Printf("  checkpoints: %s\n", ui.CountText(result.Counts.Checkpoints))
}
