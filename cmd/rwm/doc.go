// Package main implements the rwm CLI.
//
// rwm is a resumable working memory store for terminal coding agents. It
// persists a session's objectives, decisions, artifacts, facts, and
// checkpoints, and serves a token-budgeted rehydration bundle when an
// agent resumes work on a repository after a context reset.
//
// # Quick Start
//
// Initialize a project in your repository:
//
//	cd /path/to/your/project
//	rwm init
//
// Start serving requests over stdio (for a host process to drive):
//
//	rwm serve
//
// Check session status:
//
//	rwm status
//
// Execute a single request without starting the server:
//
//	rwm query memory_resume '{"session_id":"myrepo@main"}'
//
// # Commands
//
//	serve     Start serving memory_* requests over stdio (newline-delimited JSON)
//	init      Create .rwm/project.yaml
//	status    Show session and storage status
//	query     Execute a single request and print the response
//	reset     Destructively wipe local session data
//	prune     Remove artifact files no longer referenced
//	stats     Dump in-process metrics as text
//
// Global flags:
//
//	--version      Show version information and exit
//	--config PATH  Path to .rwm/project.yaml configuration file
//	--json         Output in JSON format where applicable
//	--no-color     Disable color output
//
// # Wire Protocol
//
// `rwm serve` reads one JSON object per line from stdin:
//
//	{"op": "memory_resume", "input": {"session_id": "myrepo@main"}}
//
// and writes one response object per line to stdout. Supported ops are
// memory_resume, memory_commit, memory_update, memory_fetch, memory_span,
// memory_search, memory_checkpoint, and resource_read (for artifact:// and
// workspace:// resource URIs).
//
// # Configuration
//
// rwm is configured through a local .rwm/project.yaml file, discovered by
// walking up from the current directory, and through environment variables
// that override it: RWM_DB_PATH, RWM_ARTIFACTS_DIR, RWM_BUNDLE_TOKENS,
// RWM_MODEL_FAMILY, RWM_CONFIG_PATH. The init command creates a default
// configuration file.
//
// # Data Storage
//
// Each workspace's memory is stored alongside it: rwm.db (the structured
// store) and rwm_artifacts/ (the content-addressed body pool), created on
// first use. Use --db/--root/--artifacts to override the location, or the
// reset command to clear it.
package main
