package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sgtsnepi/pkg/buildinfo"
	"github.com/matzehuels/sgtsnepi/pkg/config"
)

// RootCommand creates the root cobra command with all subcommands registered.
//
// The persistent --config flag names a TOML file whose [embed], [graph] and
// [cache] tables give the baseline settings; flags set on the command line
// override them.
func (c *CLI) RootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   appName,
		Short: "sgtsnepi embeds sparse graphs and point clouds with SG-t-SNE-Π",
		Long: `sgtsnepi computes low-dimensional (1D, 2D or 3D) embeddings of sparse
weighted graphs and point clouds with SG-t-SNE-Π: t-SNE generalized to
arbitrary stochastic graphs, with attractive forces from the sparse graph and
repulsive forces from an FFT-accelerated interpolation grid.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(withLogger(ctx, c.Logger))
			if configPath == "" {
				return nil
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			c.config = cfg
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&configPath, "config", "", "TOML settings file ([embed], [graph], [cache])")

	// Register all subcommands
	root.AddCommand(c.embedCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.recallCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}
