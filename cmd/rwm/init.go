package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/rwm/internal/errors"
	"github.com/kraklabs/rwm/internal/ui"
)

// initFlags holds parsed flags for the init command.
type initFlags struct {
	force          bool
	nonInteractive bool
	bundleTokens   int
	modelFamily    string
	dbPath         string
	artifacts      string
}

// runInit creates a .rwm/project.yaml in the current directory. By default
// it runs interactively, prompting for the bundle token budget and model
// family; -y accepts the defaults.
func runInit(args []string, configPath string, globals GlobalFlags) {
	flags := parseInitFlags(args)

	cwd, err := os.Getwd()
	if err != nil {
		errors.FatalError(errors.NewInternalError(
			"Cannot access working directory",
			"Failed to determine current directory path",
			"This is unexpected. Please report this issue if it persists",
			err,
		), false)
	}

	path := ConfigPath(cwd)
	if _, err := os.Stat(path); err == nil && !flags.force {
		errors.FatalError(errors.NewInputError(
			"Configuration already exists",
			fmt.Sprintf("%s already exists in this directory", path),
			"Use 'rwm init --force' to overwrite the existing configuration",
			nil,
		), false)
	}

	cfg := DefaultConfig()
	if flags.bundleTokens > 0 {
		cfg.BundleBudget = flags.bundleTokens
	}
	if flags.modelFamily != "" {
		cfg.ModelFamily = flags.modelFamily
	}
	if flags.dbPath != "" {
		cfg.DBPath = flags.dbPath
	}
	if flags.artifacts != "" {
		cfg.Artifacts = flags.artifacts
	}

	if !flags.nonInteractive {
		runInteractiveInit(bufio.NewReader(os.Stdin), cfg)
	}

	if err := SaveConfig(cfg, path); err != nil {
		errors.FatalError(err, false)
	}

	ui.Successf("Created %s", path)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  rwm serve       Start serving memory_* requests over stdio")
	fmt.Println("  rwm status      Check storage status")
}

func parseInitFlags(args []string) initFlags {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	var f initFlags
	fs.BoolVar(&f.force, "force", false, "Overwrite existing configuration")
	fs.BoolVarP(&f.nonInteractive, "yes", "y", false, "Non-interactive mode (use defaults)")
	fs.IntVar(&f.bundleTokens, "bundleTokens", 0, "Default memory_resume token budget")
	fs.StringVar(&f.modelFamily, "modelFamily", "", "Token estimation family: openai, anthropic, or generic")
	fs.StringVar(&f.dbPath, "db", "", "Path to the structured store")
	fs.StringVar(&f.artifacts, "artifacts", "", "Path to the artifact pool")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: rwm init [options]

Description:
  Create a .rwm/project.yaml configuration file for the current repository.

  By default, runs in interactive mode with prompts for the bundle token
  budget and model family. Use -y for non-interactive mode with defaults.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	return f
}

func runInteractiveInit(reader *bufio.Reader, cfg *Config) {
	ui.Header("rwm init")

	fmt.Printf("Bundle token budget [%d]: ", cfg.BundleBudget)
	if line := readLine(reader); line != "" {
		if n := parseIntOr(line, 0); n > 0 {
			cfg.BundleBudget = n
		}
	}

	fmt.Printf("Model family (openai/anthropic/generic) [%s]: ", cfg.ModelFamily)
	if line := readLine(reader); line != "" {
		cfg.ModelFamily = line
	}

	fmt.Printf("Database path [<root>/rwm.db]: ")
	if line := readLine(reader); line != "" {
		cfg.DBPath = line
	}

	fmt.Printf("Artifacts path [<root>/rwm_artifacts]: ")
	if line := readLine(reader); line != "" {
		cfg.Artifacts = line
	}
}

func readLine(reader *bufio.Reader) string {
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
