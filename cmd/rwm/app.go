package main

import (
	"github.com/prometheus/client_golang/prometheus"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/rwm/internal/tokens"
	"github.com/kraklabs/rwm/pkg/artifacts"
	"github.com/kraklabs/rwm/pkg/handlers"
	"github.com/kraklabs/rwm/pkg/memory"
	"github.com/kraklabs/rwm/pkg/session"
	"github.com/kraklabs/rwm/pkg/store"
)

// engineFlags are the --db/--root/--artifacts/--bundleTokens/--modelFamily
// flags shared by every subcommand that talks to the store.
type engineFlags struct {
	db           string
	root         string
	artifacts    string
	bundleTokens int
	modelFamily  string
}

func bindEngineFlags(fs *flag.FlagSet) *engineFlags {
	ef := &engineFlags{}
	fs.StringVar(&ef.db, "db", "", "Path to the structured store (default: <root>/rwm.db)")
	fs.StringVar(&ef.root, "root", "", "Workspace root (default: current directory)")
	fs.StringVar(&ef.artifacts, "artifacts", "", "Path to the artifact pool (default: <root>/rwm_artifacts)")
	fs.IntVar(&ef.bundleTokens, "bundleTokens", 0, "Default memory_resume token budget")
	fs.StringVar(&ef.modelFamily, "modelFamily", "", "Token estimation family: openai, anthropic, or generic")
	return ef
}

// engine bundles everything an open rwm process needs: the structured store,
// the artifact pool, and the request dispatcher built on top of both.
type engine struct {
	DB           *store.SQLiteStore
	Artifacts    *artifacts.Store
	Dispatcher   *handlers.Dispatcher
	Metrics      *memory.Metrics
	Registry     *prometheus.Registry
	Root         string
	DBPath       string
	ArtifactsDir string
}

// openEngine resolves paths (flags override config override defaults),
// opens the structured store, and wires a Dispatcher. Callers must Close().
func openEngine(ef *engineFlags, cfg *Config) (*engine, error) {
	root, err := resolveRoot(ef.root)
	if err != nil {
		return nil, err
	}
	dbPath := resolveDBPath(ef.db, cfg, root)
	artifactsDir := resolveArtifactsDir(ef.artifacts, cfg, root)
	budget := resolveBundleTokens(ef.bundleTokens, cfg)
	family := resolveModelFamily(ef.modelFamily, cfg)

	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}

	artifactStore := artifacts.New(artifactsDir, root)
	registry := prometheus.NewRegistry()
	metrics := memory.NewMetrics(registry)

	dispatcher := &handlers.Dispatcher{
		DB:            db,
		Artifacts:     artifactStore,
		Sessions:      session.New(),
		Estimator:     tokens.New(nil),
		WorkspaceRoot: root,
		DefaultBudget: budget,
		ModelFamily:   family,
		Metrics:       metrics,
	}

	return &engine{
		DB: db, Artifacts: artifactStore, Dispatcher: dispatcher,
		Metrics: metrics, Registry: registry, Root: root, DBPath: dbPath,
		ArtifactsDir: artifactsDir,
	}, nil
}

func (e *engine) Close() error {
	return e.DB.Close()
}
