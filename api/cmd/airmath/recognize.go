package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"airmath/api/internal/util"
)

func newRecognizeCommand() *cobra.Command {
	var (
		engineName string
		mime       string
		asJSON     bool
		owner      string
	)

	command := &cobra.Command{
		Use:   "recognize <image>",
		Short: "Recognize and solve the equation on an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("os.ReadFile() > %w", err)
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			eng, err := a.Engines.GetEngine(engineName)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), a.Config.RequestTimeout)
			defer cancel()

			out, err := a.Pipeline.SolveImage(ctx, owner, eng, img, util.PickMIME(mime, "", img))
			if err != nil {
				return fmt.Errorf("pipeline.SolveImage() > %w", err)
			}
			return printOutcome(cmd.OutOrStdout(), out, asJSON)
		},
	}
	command.Flags().StringVar(&engineName, "engine", "", "recognition engine: gemini or vision")
	command.Flags().StringVar(&mime, "mime", "", "image MIME type (sniffed when empty)")
	command.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	command.Flags().StringVar(&owner, "owner", defaultOwner, "history owner")
	return command
}
