package commands

import (
	"context"

	"github.com/spf13/cobra"
)

var createIndexCmd = &cobra.Command{
	Use:   "create-index",
	Short: "Create the first world index and bind both aliases to it",
	Long: `Creates a concrete index with the world mapping and binds world_write and
world_read to it. Nothing happens when both aliases are already bound.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		a, err := newApp(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.reindexer.CreateIndex(ctx)
		if summary != nil {
			printSummary(cmd.OutOrStdout(), summary)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(createIndexCmd)
}
