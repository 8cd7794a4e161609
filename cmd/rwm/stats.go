package main

import (
	"fmt"
	"os"

	"github.com/prometheus/common/expfmt"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/rwm/internal/errors"
)

// runStats dumps the process's in-memory Prometheus registry in text
// exposition format. There is no HTTP endpoint: the registry only ever
// leaves the process through this command, since rwm has no network
// transport of its own.
func runStats(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	ef := bindEngineFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: rwm stats [options]

Description:
  Dumps bundle-composition and token-estimation metrics collected during
  this process's lifetime, in Prometheus text exposition format.

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

	families, err := eng.Registry.Gather()
	if err != nil {
		errors.FatalError(errors.NewInternalError("Cannot gather metrics", err.Error(), "", err), false)
	}

	enc := expfmt.NewEncoder(os.Stdout, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			errors.FatalError(errors.NewInternalError("Cannot encode metrics", err.Error(), "", err), false)
		}
	}
}
