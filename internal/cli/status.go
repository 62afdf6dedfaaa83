package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// statusCommand creates the "status" command.
func (c *CLI) statusCommand() *cobra.Command {
	var showAll bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which documents are dirty and why",
		Long: `Status compares the corpus on disk against the composition store and
reports every document scheduled for the next render: changed files,
documents the store has never seen, and their transitive dependents.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
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

			engine := c.newEngine(st, nil, cfg, 0)
			plan, err := engine.Plan(ctx, crp, planOptions(cfg, false))
			if err != nil {
				return err
			}

			fmt.Println(StyleTitle.Render("Corpus status"))
			printCorpusStats(crp.Len(), plan.Graph.EdgeCount(), plan.DirtyCount())
			printNewline()

			if plan.DirtyCount() == 0 {
				printSuccess("Everything up to date")
			} else {
				for i, layer := range plan.Layers {
					printInfo("layer %d", plan.Depths[i])
					for _, slug := range layer {
						printDetail("%s %s", styleDirty.Render(iconDirty), slug)
					}
				}
			}

			if showAll {
				printNewline()
				slugs := crp.Slugs()
				sort.Strings(slugs)
				for _, slug := range slugs {
					if plan.Dirty[slug] {
						continue
					}
					printDetail("%s %s", styleClean.Render(iconClean), slug)
				}
			}

			for _, ref := range plan.Missing {
				printWarning("%s references unknown document %q", ref.Source, ref.Target)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&showAll, "all", "a", false, "also list clean documents")
	return cmd
}
