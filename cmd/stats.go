package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the number of registered identities",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appOptions{withStore: true})
	if err != nil {
		return err
	}
	defer a.close()

	count, err := a.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting identities: %w", err)
	}

	fmt.Printf("Identities: %d\n", count)
	fmt.Printf("Store:      %s\n", a.cfg.Database.Driver)
	fmt.Printf("Model:      %s (%d dimensions)\n", a.cfg.Embedding.Model, a.cfg.Embedding.Dim)
	fmt.Printf("Threshold:  %.4f\n", a.cfg.Matching.Threshold)
	return nil
}
