// Package cli implements the loom command-line interface.
//
// This package provides commands for scanning a markdown corpus into the
// composition store, rendering dirty documents into HTML artifacts,
// inspecting render state, exporting the dependency graph, managing the
// render cache, and serving artifacts over HTTP. The CLI is built using
// cobra and supports verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - scan: Load the corpus and sync documents and edges into the store
//   - render: Render dirty documents (and their dependents) to artifacts
//   - status: Show which documents are dirty and why
//   - graph: Export the dependency graph as DOT, SVG, or JSON
//   - cache: Manage the render cache
//   - serve: Serve rendered artifacts and the corpus API over HTTP
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/loomkit/loom/pkg/buildinfo"
	"github.com/loomkit/loom/pkg/cache"
	"github.com/loomkit/loom/pkg/compose"
	"github.com/loomkit/loom/pkg/config"
	"github.com/loomkit/loom/pkg/corpus"
	"github.com/loomkit/loom/pkg/render"
	"github.com/loomkit/loom/pkg/store"
	"github.com/loomkit/loom/pkg/store/surreal"
)

// appName is the application name used for directories and display.
const appName = "loom"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *config.Config
}

// New creates a new CLI instance writing logs to w at the given level.
func New(logger *log.Logger) *CLI {
	return &CLI{Logger: logger}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Loom composes markdown corpora into rendered artifacts",
		Long:         `Loom scans a corpus of interlinked markdown documents, tracks their dependency graph in a composition store, and incrementally re-renders only what changed, layer by topological layer.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to loom.toml (default: ./loom.toml)")

	root.AddCommand(c.scanCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.statusCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig loads and memoizes the configuration.
func (c *CLI) loadConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// loadCorpus scans the configured corpus root.
func (c *CLI) loadCorpus(ctx context.Context, cfg *config.Config) (*corpus.Corpus, error) {
	loader := corpus.NewLoader(corpus.LoaderOptions{
		Root:          cfg.Corpus.Root,
		SkillsDir:     cfg.Corpus.SkillsDir,
		IncludeDrafts: cfg.Corpus.IncludeDrafts,
	})
	return loader.Load(ctx)
}

// newStore opens the configured composition store backend.
func (c *CLI) newStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreSurreal:
		return surreal.Connect(ctx, surreal.Config{
			URL:       cfg.Store.Surreal.URL,
			Namespace: cfg.Store.Surreal.Namespace,
			Database:  cfg.Store.Surreal.Database,
			User:      cfg.Store.Surreal.User,
			Pass:      cfg.Store.Surreal.Pass,
		})
	case config.StoreMemory:
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// newCache opens the configured render cache backend.
// noCache forces the null cache regardless of configuration.
func (c *CLI) newCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Cache.Backend {
	case config.CacheFile:
		return cache.NewFileCache(cfg.Cache.Dir)
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
	case config.CacheNone:
		return cache.NewNullCache(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// newEngine wires a composition engine from the configuration.
func (c *CLI) newEngine(st store.Store, renderCache cache.Cache, cfg *config.Config, workers int) *compose.Engine {
	if workers <= 0 {
		workers = cfg.Render.Workers
	}
	return compose.NewEngine(st,
		compose.WithCache(renderCache),
		compose.WithWorkers(workers),
		compose.WithLogger(c.Logger),
		compose.WithRenderer(render.NewMarkdown(render.Options{
			Extensions: cfg.Render.Extensions,
			UnsafeHTML: cfg.Render.UnsafeHTML,
			HardWraps:  cfg.Render.HardWraps,
		})),
	)
}
