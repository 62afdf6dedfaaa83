package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/loomkit/loom/pkg/compose"
	"github.com/loomkit/loom/pkg/config"
)

// renderCommand creates the "render" command.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		all     bool
		dryRun  bool
		noCache bool
		useTUI  bool
		workers int
		outDir  string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render dirty documents into HTML artifacts",
		Long: `Render syncs the corpus, plans the dirty set (documents whose content
changed since their last render, plus everything that depends on them),
and renders it layer by topological layer. Documents within a layer
render concurrently.

Each document is probed in the render cache by its composite hash
before rendering, so an artifact already produced for identical content
anywhere is reused.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = cfg.Render.OutputDir
			}

			crp, err := c.loadCorpus(ctx, cfg)
			if err != nil {
				return fmt.Errorf("loading corpus: %w", err)
			}

			st, err := c.newStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer st.Close()

			renderCache, err := c.newCache(ctx, cfg, noCache)
			if err != nil {
				return fmt.Errorf("opening cache: %w", err)
			}
			defer renderCache.Close()

			engine := c.newEngine(st, renderCache, cfg, workers)

			if _, err := engine.Sync(ctx, crp); err != nil {
				return err
			}

			plan, err := engine.Plan(ctx, crp, planOptions(cfg, all))
			if err != nil {
				return err
			}
			loggerFromContext(ctx).Debug("plan ready",
				"dirty", plan.DirtyCount(), "layers", len(plan.Layers))
			for _, ref := range plan.Missing {
				printWarning("%s references unknown document %q", ref.Source, ref.Target)
			}

			if plan.DirtyCount() == 0 {
				printSuccess("Everything up to date")
				return nil
			}

			if dryRun {
				printInfo("Would render %d documents in %d layers", plan.DirtyCount(), len(plan.Layers))
				for i, layer := range plan.Layers {
					printDetail("layer %d: %v", plan.Depths[i], layer)
				}
				return nil
			}

			execOpts := compose.ExecuteOptions{OutDir: outDir, NoCache: noCache}

			var result *compose.Result
			if useTUI {
				result, err = executeWithTUI(ctx, engine, crp, plan, execOpts)
			} else {
				spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %d documents...", plan.DirtyCount()))
				spinner.Start()
				result, err = engine.Execute(ctx, crp, plan, execOpts)
				spinner.Stop()
			}
			if err != nil {
				return err
			}

			for slug, renderErr := range result.Errors {
				printError("%s: %v", slug, renderErr)
			}
			if result.Failed > 0 {
				printWarning("%d documents failed, %d dependents skipped", result.Failed, result.Skipped)
			}
			printSuccess("Rendered %d documents (%d from cache) in %s",
				result.Rendered+result.FromCache, result.FromCache, result.Elapsed.Round(time.Millisecond))
			printFile(outDir)

			if result.Failed > 0 {
				return fmt.Errorf("%d documents failed to render", result.Failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "render every document, ignoring hashes")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the plan without rendering")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the render cache")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "show interactive render progress")
	cmd.Flags().IntVar(&workers, "workers", 0, "per-layer render concurrency (0 = config, then GOMAXPROCS)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "artifact output directory (default from config)")

	return cmd
}

// planOptions derives plan options from the config and the --all flag.
func planOptions(cfg *config.Config, force bool) compose.PlanOptions {
	return compose.PlanOptions{
		Force:         force,
		IncludeDrafts: cfg.Corpus.IncludeDrafts,
	}
}
