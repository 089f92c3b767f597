package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-verifier/internal/faceid"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a claimed identity against a fresh photo",
	Long: `Verify a claimed identity against a fresh photo.
Exits with a non-zero status when the face does not match.`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().String("identifier", "", "Claimed identifier")
	verifyCmd.Flags().String("credential", "", "Shared secret given at registration")
	verifyCmd.Flags().String("photo", "", "Path to the probe photo")
	_ = verifyCmd.MarkFlagRequired("identifier")
	_ = verifyCmd.MarkFlagRequired("credential")
	_ = verifyCmd.MarkFlagRequired("photo")
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	photo, err := os.ReadFile(mustGetString(cmd, "photo"))
	if err != nil {
		return fmt.Errorf("reading photo: %w", err)
	}

	a, err := newApp(ctx, appOptions{withStore: true, withExtractor: true})
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.service.Verify(ctx, faceid.VerifyRequest{
		Identifier: mustGetString(cmd, "identifier"),
		Credential: mustGetString(cmd, "credential"),
		Photo:      photo,
	})
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	fmt.Printf("Distance: %.4f (threshold %.4f)\n", result.Distance, result.Threshold)
	if !result.Accepted {
		return fmt.Errorf("face does not match %s", result.Identifier)
	}
	fmt.Printf("Verified %s\n", result.Identifier)
	return nil
}
