package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/rwm/internal/errors"
	"github.com/kraklabs/rwm/pkg/handlers"
)

// runQuery executes a single operation against the store and prints the
// response, for ad-hoc inspection without starting the stdio server.
func runQuery(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	ef := bindEngineFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: rwm query <op> <json-input> [options]

Description:
  Executes a single memory_* operation and prints the handlers.Response
  as JSON, without starting the long-running stdio server.

  Supported ops: memory_resume, memory_commit, memory_update, memory_fetch,
  memory_span, memory_search, memory_checkpoint.

Examples:
  rwm query memory_resume '{"session_id":"myrepo@main"}'
  rwm query memory_commit '{"session_id":"myrepo@main","task":{"title":"Add retries"}}'

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	rest := fs.Args()
	if len(rest) < 2 {
		fs.Usage()
		os.Exit(1)
	}
	op, rawInput := rest[0], rest[1]

	var input json.RawMessage
	if err := json.Unmarshal([]byte(rawInput), &input); err != nil {
		errors.FatalError(errors.NewInputError(
			"Invalid JSON input",
			err.Error(),
			"Check that the input argument is valid JSON",
			err,
		), false)
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

	req, err := handlers.ParseRequest(op, input)
	if err != nil {
		errors.FatalError(err, false)
	}

	resp := eng.Dispatcher.Dispatch(context.Background(), req)
	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		errors.FatalError(errors.NewInternalError("Cannot encode response", err.Error(), "", err), false)
	}
	fmt.Println(string(out))
	if resp.Error {
		os.Exit(1)
	}
}
