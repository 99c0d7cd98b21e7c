package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"airmath/api/internal/store"
)

func newHistoryCommand() *cobra.Command {
	var owner string

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and manage solved equations",
	}
	historyCmd.PersistentFlags().StringVar(&owner, "owner", defaultOwner, "history owner")

	historyCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List recent solutions, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := openApp(cmd.Context())
				if err != nil {
					return err
				}
				defer a.Close()

				entries, err := a.History.List(cmd.Context(), owner)
				if err != nil {
					return fmt.Errorf("history.List() > %w", err)
				}
				return printEntries(cmd.OutOrStdout(), entries)
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete one entry",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := openApp(cmd.Context())
				if err != nil {
					return err
				}
				defer a.Close()

				if err := a.History.Delete(cmd.Context(), owner, args[0]); err != nil {
					return fmt.Errorf("history.Delete() > %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "deleted", args[0])
				return err
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete every entry of the owner",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := openApp(cmd.Context())
				if err != nil {
					return err
				}
				defer a.Close()

				n, err := a.History.Clear(cmd.Context(), owner)
				if err != nil {
					return fmt.Errorf("history.Clear() > %w", err)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d entries\n", n)
				return err
			},
		},
		newHistoryPurgeCommand(),
	)
	return historyCmd
}

func newHistoryPurgeCommand() *cobra.Command {
	var olderThan time.Duration

	command := &cobra.Command{
		Use:   "purge",
		Short: "Delete entries of every owner older than --older-than",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive, got %s", olderThan)
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.History.PurgeOlderThan(cmd.Context(), olderThan)
			if err != nil {
				return fmt.Errorf("history.PurgeOlderThan() > %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "purged %d entries\n", n)
			return err
		},
	}
	command.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "age threshold")
	return command
}

func printEntries(w io.Writer, entries []store.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no entries")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tEQUATION\tRESULT")
	for _, e := range entries {
		ts := time.UnixMilli(e.Timestamp).UTC().Format(time.RFC3339)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, ts, e.Equation, e.Result)
	}
	return tw.Flush()
}
