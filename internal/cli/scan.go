package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// scanCommand creates the "scan" command.
func (c *CLI) scanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Scan the corpus and sync it into the composition store",
		Long: `Scan walks the corpus root, parses frontmatter and references from
every markdown file, and syncs document records and dependency edges
into the composition store. Records of deleted files are pruned.

Scanning never renders anything; run "loom render" afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}

			prog := newProgress(c.Logger)
			crp, err := c.loadCorpus(ctx, cfg)
			if err != nil {
				return fmt.Errorf("loading corpus: %w", err)
			}

			st, err := c.newStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer st.Close()

			engine := c.newEngine(st, nil, cfg, 0)
			stats, err := engine.Sync(ctx, crp)
			if err != nil {
				return err
			}

			plan, err := engine.Plan(ctx, crp, planOptions(cfg, false))
			if err != nil {
				return err
			}

			prog.done(fmt.Sprintf("Scanned %d documents", stats.Documents))
			printSuccess("Corpus synced to %s store", cfg.Store.Backend)
			printCorpusStats(stats.Documents, stats.Edges, plan.DirtyCount())
			if stats.Pruned > 0 {
				printDetail("pruned %d records of deleted files", stats.Pruned)
			}
			for _, ref := range plan.Missing {
				printWarning("%s references unknown document %q", ref.Source, ref.Target)
			}
			if plan.DirtyCount() > 0 {
				printNewline()
				printNextStep("Render the dirty documents", "loom render")
			}
			return nil
		},
	}
}
