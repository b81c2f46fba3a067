package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"prolog4go/kb"
)

var errNoStore = errors.New("no store configured; pass --store or set store.path")

func newJournalCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the SQLite journal of consulted and asserted clauses",
	}

	withStore := func(cmd *cobra.Command, fn func(context.Context, *kb.Store) error) error {
		if a.cfg.Store.Path == "" {
			return errNoStore
		}
		ctx, cancel := a.context(cmd.Context())
		defer cancel()
		store, err := kb.Open(ctx, a.cfg.Store.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		return fn(ctx, store)
	}

	list := &cobra.Command{
		Use:   "list [PROVER]",
		Short: "List journaled provers, or the entries of one prover",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, store *kb.Store) error {
				out := cmd.OutOrStdout()
				if len(args) == 0 {
					names, err := store.Provers(ctx)
					if err != nil {
						return err
					}
					for _, name := range names {
						fmt.Fprintln(out, name)
					}
					return nil
				}
				entries, err := store.Entries(ctx, args[0])
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, e := range entries {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, e.At.Format(time.RFC3339), e.Kind, oneLine(e.Text))
				}
				return tw.Flush()
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear PROVER",
		Short: "Delete every journal entry of a prover",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, store *kb.Store) error {
				return store.Clear(ctx, args[0])
			})
		},
	}

	cmd.AddCommand(list, clearCmd)
	return cmd
}

func oneLine(s string) string {
	const width = 60
	for i, r := range s {
		if r == '\n' {
			s = s[:i] + " ..."
			break
		}
	}
	if utf8.RuneCountInString(s) > width {
		s = string([]rune(s)[:width]) + "..."
	}
	return s
}
