package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-verifier/internal/faceid"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register an identity from a reference photo",
	Example: `  face-verifier register --identifier alice@example.com --name "Alice" \
    --credential s3cret --photo alice.jpg`,
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().String("identifier", "", "Unique identifier, e.g. an email address")
	registerCmd.Flags().String("name", "", "Display name")
	registerCmd.Flags().String("credential", "", "Shared secret checked at verification")
	registerCmd.Flags().String("photo", "", "Path to the reference photo")
	_ = registerCmd.MarkFlagRequired("identifier")
	_ = registerCmd.MarkFlagRequired("name")
	_ = registerCmd.MarkFlagRequired("credential")
	_ = registerCmd.MarkFlagRequired("photo")
}

func runRegister(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	photo, err := os.ReadFile(mustGetString(cmd, "photo"))
	if err != nil {
		return fmt.Errorf("reading photo: %w", err)
	}

	a, err := newApp(ctx, appOptions{withStore: true, withExtractor: true, withIndex: true})
	if err != nil {
		return err
	}
	defer a.close()

	identity, err := a.service.Register(ctx, faceid.RegisterRequest{
		Identifier:  mustGetString(cmd, "identifier"),
		DisplayName: mustGetString(cmd, "name"),
		Credential:  mustGetString(cmd, "credential"),
		Photo:       photo,
	})
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	a.saveIndex()

	fmt.Printf("Registered %s (%s)\n", identity.Identifier, identity.DisplayName)
	fmt.Printf("  ID:    %s\n", identity.ID)
	fmt.Printf("  Model: %s (%d dimensions)\n", identity.Model, identity.Dim)
	return nil
}
