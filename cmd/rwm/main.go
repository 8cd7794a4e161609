package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/rwm/internal/ui"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags holds flags that apply across every subcommand.
type GlobalFlags struct {
	JSON    bool
	NoColor bool
	Verbose int
	Quiet   bool
}

func main() {
	var (
		showVersion = flag.BoolP("version", "V", false, "Show version and exit")
		configPath  = flag.StringP("config", "c", "", "Path to .rwm/project.yaml (default: auto-discover)")
		jsonOutput  = flag.Bool("json", false, "Output in JSON format (for applicable commands)")
		noColor     = flag.Bool("no-color", false, "Disable color output")
		verbose     = flag.CountP("verbose", "v", "Increase verbosity (-v for info, -vv for debug)")
		quiet       = flag.BoolP("quiet", "q", false, "Suppress non-essential output")
	)

	flag.SetInterspersed(false)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `rwm - Resumable Working Memory for terminal coding agents

rwm persists a coding session's objectives, decisions, artifacts, facts,
and checkpoints, and serves a token-budgeted rehydration bundle when an
agent resumes work on a repository.

Usage:
  rwm <command> [options]

Commands:
  serve     Start serving memory_* requests over stdio (newline-delimited JSON)
  init      Create .rwm/project.yaml
  status    Show session and storage status
  query     Execute a single request and print the response
  reset     Destructively wipe local session data
  prune     Remove artifact files no longer referenced by any row
  stats     Dump in-process metrics as text

Global Options:
  --json            Output in JSON format (for applicable commands)
  --no-color        Disable color output (respects NO_COLOR env var)
  -v, --verbose     Increase verbosity (-v for info, -vv for debug)
  -q, --quiet       Suppress non-essential output
  -c, --config      Path to .rwm/project.yaml
  -V, --version     Show version and exit

Examples:
  rwm init
  rwm serve
  rwm query memory_resume '{"session_id":"myrepo@main"}'
  rwm status --json
  rwm reset --yes

Data Storage:
  Project root contains rwm.db (structured store) and rwm_artifacts/ (body
  pool), created on first use. Override with --db/--root/--artifacts or
  .rwm/project.yaml.

For detailed command help: rwm <command> --help

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("rwm version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	if os.Getenv("NO_COLOR") != "" {
		*noColor = true
	}
	if *quiet && *verbose > 0 {
		fmt.Fprintln(os.Stderr, "Error: cannot use --quiet and --verbose together")
		os.Exit(1)
	}
	if *jsonOutput {
		*quiet = true
	}

	globals := GlobalFlags{JSON: *jsonOutput, NoColor: *noColor, Verbose: *verbose, Quiet: *quiet}
	ui.InitColors(globals.NoColor)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "serve":
		os.Exit(runServe(cmdArgs, *configPath, globals))
	case "init":
		runInit(cmdArgs, *configPath, globals)
	case "status":
		runStatus(cmdArgs, *configPath, globals)
	case "query":
		runQuery(cmdArgs, *configPath, globals)
	case "reset":
		runReset(cmdArgs, *configPath, globals)
	case "prune":
		runPrune(cmdArgs, *configPath, globals)
	case "stats":
		runStats(cmdArgs, *configPath, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
