package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/rwm/internal/errors"
	"github.com/kraklabs/rwm/pkg/handlers"
)

// wireRequest is the envelope every line on stdin is expected to contain:
// an operation name and its raw, not-yet-validated input.
type wireRequest struct {
	Op    string          `json:"op"`
	Input json.RawMessage `json:"input"`
}

// runServe starts the request loop: one JSON object per line on stdin, one
// handlers.Response per line on stdout. Diagnostics go to stderr so they
// never corrupt the response stream.
func runServe(args []string, configPath string, globals GlobalFlags) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	ef := bindEngineFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: rwm serve [options]

Description:
  Reads newline-delimited JSON requests from stdin, one object per line:
    {"op": "memory_resume", "input": {"session_id": "myrepo@main"}}
  and writes one newline-delimited JSON response per line to stdout.

  Supported ops: memory_resume, memory_commit, memory_update, memory_fetch,
  memory_span, memory_search, memory_checkpoint, resource_read.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		errors.FatalError(err, !globals.JSON && !globals.NoColor)
		return 1
	}

	eng, err := openEngine(ef, cfg)
	if err != nil {
		errors.FatalError(err, !globals.JSON && !globals.NoColor)
		return 1
	}
	defer func() { _ = eng.Close() }()

	fmt.Fprintf(os.Stderr, "rwm serve starting (root=%s db=%s)\n", eng.Root, eng.DBPath)
	serveLoop(eng.Dispatcher)
	return 0
}

func serveLoop(d *handlers.Dispatcher) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)
	ctx := context.Background()

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		var wire wireRequest
		if err := json.Unmarshal([]byte(line), &wire); err != nil {
			writeResponse(handlers.Response{Error: true, Message: "invalid JSON request: " + err.Error()})
			continue
		}

		fmt.Fprintf(os.Stderr, "-> %s\n", wire.Op)
		resp := dispatchWire(ctx, d, wire)
		writeResponse(resp)
		fmt.Fprintf(os.Stderr, "<- response sent for %s\n", wire.Op)
	}

	if err := scanner.Err(); err != nil {
		errors.FatalError(errors.NewInternalError(
			"rwm serve input error",
			"Failed to read from stdin",
			"Check if stdin is closed or if there's a pipe issue",
			err,
		), false)
	}
}

func dispatchWire(ctx context.Context, d *handlers.Dispatcher, wire wireRequest) handlers.Response {
	if wire.Op == "resource_read" {
		return handleResourceRead(d, wire.Input)
	}

	req, err := handlers.ParseRequest(wire.Op, wire.Input)
	if err != nil {
		return handlers.Response{Error: true, Message: err.Error()}
	}
	return d.Dispatch(ctx, req)
}

func handleResourceRead(d *handlers.Dispatcher, raw json.RawMessage) handlers.Response {
	var w struct {
		URI string `json:"uri"`
	}
	if err := json.Unmarshal(raw, &w); err != nil || w.URI == "" {
		return handlers.Response{Error: true, Message: "resource_read requires a uri field"}
	}
	content, err := d.ReadResource(w.URI)
	if err != nil {
		return handlers.Response{Error: true, Message: err.Error()}
	}
	if content.IsBase64 {
		return handlers.Response{Structured: map[string]any{"base64": content.Base64}}
	}
	return handlers.Response{Text: content.Text, Structured: map[string]any{"text": content.Text}}
}

func writeResponse(resp handlers.Response) {
	out, err := json.Marshal(resp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot encode response: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stdout, "%s\n", out)
}
