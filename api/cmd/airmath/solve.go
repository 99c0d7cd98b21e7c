package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"airmath/api/internal/pipeline"
	"airmath/api/internal/solver"
)

const defaultOwner = "cli"

func newSolveCommand() *cobra.Command {
	var (
		useLLM bool
		asJSON bool
		noSave bool
		owner  string
	)

	command := &cobra.Command{
		Use:   "solve [text]",
		Short: "Extract a structured solution from text (argument or stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if noSave {
				a.Pipeline.History = nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), a.Config.RequestTimeout)
			defer cancel()

			out, err := a.Pipeline.SolveText(ctx, owner, text, useLLM)
			if err != nil {
				return fmt.Errorf("pipeline.SolveText() > %w", err)
			}
			return printOutcome(cmd.OutOrStdout(), out, asJSON)
		},
	}
	command.Flags().BoolVar(&useLLM, "llm", false, "ask the model to solve the text first")
	command.Flags().BoolVar(&asJSON, "json", false, "print the solution as JSON")
	command.Flags().BoolVar(&noSave, "no-save", false, "do not record the solution in history")
	command.Flags().StringVar(&owner, "owner", defaultOwner, "history owner")
	return command
}

func readInput(stdin io.Reader, args []string) (string, error) {
	var text string
	if len(args) > 0 {
		text = args[0]
	} else {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		text = string(b)
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("no input: pass text as an argument or on stdin")
	}
	return text, nil
}

func printOutcome(w io.Writer, out pipeline.Outcome, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(out)
	}
	_, err := fmt.Fprintln(w, solver.Render(out.Solution))
	return err
}
