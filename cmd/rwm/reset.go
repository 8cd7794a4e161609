package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/rwm/internal/errors"
	"github.com/kraklabs/rwm/internal/ui"
)

// runReset destructively wipes the structured store and artifact pool for
// the resolved workspace. Requires --yes.
func runReset(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	ef := bindEngineFlags(fs)
	confirm := fs.Bool("yes", false, "Confirm the reset (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: rwm reset [options]

Description:
  WARNING: This is a destructive operation that deletes all locally stored
  session memory for the resolved workspace: rwm.db (the structured store)
  and rwm_artifacts/ (the body pool).

  Use this if the database is corrupted or you want to start fresh.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  rwm reset --yes

Notes:
  Configuration (.rwm/project.yaml) is not deleted.

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if !*confirm {
		errors.FatalError(errors.NewInputError(
			"Confirmation required",
			"The --yes flag is required to confirm this destructive operation",
			"Run 'rwm reset --yes' to confirm that you want to delete all session memory",
			nil,
		), false)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		errors.FatalError(err, false)
	}

	root, err := resolveRoot(ef.root)
	if err != nil {
		errors.FatalError(err, false)
	}
	dbPath := resolveDBPath(ef.db, cfg, root)
	artifactsDir := resolveArtifactsDir(ef.artifacts, cfg, root)

	dbExists := pathExists(dbPath)
	artifactsExist := pathExists(artifactsDir)
	if !dbExists && !artifactsExist {
		fmt.Fprintf(os.Stderr, "No local data found at %s or %s\n", dbPath, artifactsDir)
		return
	}

	fmt.Printf("Resetting %s (deleting %s and %s)...\n", root, dbPath, artifactsDir)

	if dbExists {
		if err := os.Remove(dbPath); err != nil {
			errors.FatalError(errors.NewPermissionError(
				"Cannot delete structured store",
				fmt.Sprintf("Failed to remove %s - permission denied or file locked", dbPath),
				"Check file permissions, ensure no other rwm processes are running, and try again",
				err,
			), false)
		}
	}
	if artifactsExist {
		if err := os.RemoveAll(artifactsDir); err != nil {
			errors.FatalError(errors.NewPermissionError(
				"Cannot delete artifact pool",
				fmt.Sprintf("Failed to remove %s - permission denied or file locked", artifactsDir),
				"Check directory permissions and try again",
				err,
			), false)
		}
	}

	ui.Success("Reset complete. All local session memory has been deleted.")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  rwm serve    Start a fresh session")
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
