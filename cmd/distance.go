package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var distanceCmd = &cobra.Command{
	Use:   "distance <photo-a> <photo-b>",
	Short: "Print the face distance between two photos",
	Long: `Extract a face embedding from both photos and print their euclidean
distance and the match decision at the configured threshold.
No database is needed.`,
	Args: cobra.ExactArgs(2),
	RunE: runDistance,
}

func init() {
	rootCmd.AddCommand(distanceCmd)
}

func runDistance(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	photoA, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	photoB, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[1], err)
	}

	a, err := newApp(ctx, appOptions{withExtractor: true})
	if err != nil {
		return err
	}
	defer a.close()

	d, match, err := a.service.Compare(ctx, photoA, photoB)
	if err != nil {
		return err
	}

	decision := "different person"
	if match {
		decision = "same person"
	}
	fmt.Printf("Distance:  %.4f\n", d)
	fmt.Printf("Threshold: %.4f\n", a.service.Threshold())
	fmt.Printf("Decision:  %s\n", decision)
	return nil
}
