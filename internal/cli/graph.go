package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loomkit/loom/pkg/compose"
	loomio "github.com/loomkit/loom/pkg/io"
	"github.com/loomkit/loom/pkg/render"
)

// Graph output formats.
const (
	formatDOT  = "dot"
	formatSVG  = "svg"
	formatJSON = "json"
)

// graphCommand creates the "graph" command.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		format  string
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Export the dependency graph",
		Long: `Graph builds the corpus dependency graph and exports it as Graphviz
DOT, rendered SVG, or JSON. With no --out the result is written to
stdout (DOT and JSON only).`,
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

			g, missing, err := compose.BuildGraph(crp)
			if err != nil {
				return err
			}
			for _, ref := range missing {
				printWarning("%s references unknown document %q", ref.Source, ref.Target)
			}

			switch format {
			case formatDOT:
				dot := render.ToDOT(g)
				if outPath == "" {
					fmt.Print(dot)
					return nil
				}
				if err := os.WriteFile(outPath, []byte(dot), 0o644); err != nil {
					return err
				}

			case formatSVG:
				if outPath == "" {
					return fmt.Errorf("--out is required for svg output")
				}
				svg, err := render.RenderSVG(ctx, g)
				if err != nil {
					return err
				}
				if err := os.WriteFile(outPath, svg, 0o644); err != nil {
					return err
				}

			case formatJSON:
				if outPath == "" {
					return loomio.WriteJSON(g, os.Stdout)
				}
				if err := loomio.ExportJSON(g, outPath); err != nil {
					return err
				}

			default:
				return fmt.Errorf("unknown format %q (want dot, svg, or json)", format)
			}

			if outPath != "" {
				printSuccess("Exported %d nodes, %d edges", g.NodeCount(), g.EdgeCount())
				printFile(outPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatDOT, "output format: dot, svg, or json")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	return cmd
}
