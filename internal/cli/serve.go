package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loomkit/loom/internal/server"
)

// serveCommand creates the "serve" command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr   string
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rendered artifacts and the corpus API",
		Long: `Serve starts an HTTP server exposing the rendered artifacts under
/docs/ and a read-only JSON API for document records, the dependency
graph, and topological layers under /api/.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Serve.Addr
			}
			if outDir == "" {
				outDir = cfg.Render.OutputDir
			}

			st, err := c.newStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer st.Close()

			printInfo("Serving artifacts from %s on %s", outDir, addr)
			printDetail("API: /api/documents /api/graph /api/layers")

			srv := server.New(st, outDir, server.WithLogger(c.Logger))
			return srv.Run(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "artifact directory to serve (default from config)")
	return cmd
}
