package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"prolog4go/prolog"
	"prolog4go/term"
)

// withProver runs fn on the named prover inside a fresh factory.
func (a *app) withProver(cmd *cobra.Command, name string, fn func(ctx context.Context, p *prolog.Prover) error) (err error) {
	ctx, cancel := a.context(cmd.Context())
	defer cancel()
	if err := a.open(ctx); err != nil {
		return err
	}
	defer func() {
		if cerr := a.close(); err == nil {
			err = cerr
		}
	}()
	p, err := a.prover(ctx, name)
	if err != nil {
		return err
	}
	return fn(ctx, p)
}

func newDriversCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drivers",
		Short: "List the registered engine drivers",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range prolog.Drivers() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}

func newQueryCmd(a *app) *cobra.Command {
	var (
		proverName string
		theories   []string
		limit      int
		variable   string
	)
	cmd := &cobra.Command{
		Use:   "query GOAL [ARGS...]",
		Short: "Solve a goal and print its answers",
		Long: `Solves GOAL on a prover and prints one line per answer.

"?" marks an anonymous placeholder and "?Name" a named one; ARGS fill them
in order. An argument of "_" leaves the placeholder open so a named one
shows up in the answers.

Example:
  prolog4go query --theory family.pl 'parent(?, ?Child)' tom _
  prolog4go query --var X 'between(1, 3, X)'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProver(cmd, proverName, func(ctx context.Context, p *prolog.Prover) error {
				for _, path := range theories {
					if err := loadFile(ctx, p, path, false); err != nil {
						return err
					}
				}
				return runQuery(ctx, cmd.OutOrStdout(), p, args[0], parseArgs(args[1:]), limit, variable)
			})
		},
	}
	cmd.Flags().StringVarP(&proverName, "prover", "p", "default", "Prover name")
	cmd.Flags().StringSliceVarP(&theories, "theory", "t", nil, "Theory files to consult first")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Stop after this many answers, 0 for all")
	cmd.Flags().StringVar(&variable, "var", "", "Print only the value of this variable")
	return cmd
}

func runQuery(ctx context.Context, w io.Writer, p *prolog.Prover, goal string, args []any, limit int, variable string) error {
	sol, err := p.Solve(ctx, goal, args...)
	if err != nil {
		return err
	}
	defer sol.Close()

	if !sol.Success() {
		fmt.Fprintln(w, "false.")
		return sol.Err()
	}
	for n := 0; (limit <= 0 || n < limit) && sol.Next(); n++ {
		if variable != "" {
			t, err := sol.Term(variable)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, term.Format(t))
			continue
		}
		fmt.Fprintln(w, formatBindings(sol.Bindings()))
	}
	return sol.Err()
}

func formatBindings(b map[string]term.Term) string {
	if len(b) == 0 {
		return "true."
	}
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + " = " + term.Format(b[name])
	}
	return strings.Join(parts, ", ")
}

// loadFile consults path into p. Only consult journals the text; the
// --theory files of query and explain are loaded for one run.
func loadFile(ctx context.Context, p *prolog.Prover, path string, journal bool) error {
	if !journal {
		text, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := p.Replay(ctx, prolog.KindTheory, string(text)); err != nil {
			return fmt.Errorf("consult %s: %w", path, err)
		}
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := p.LoadTheory(ctx, f); err != nil {
		return fmt.Errorf("consult %s: %w", path, err)
	}
	return nil
}

func newConsultCmd(a *app) *cobra.Command {
	var proverName string
	cmd := &cobra.Command{
		Use:   "consult FILE...",
		Short: "Load theory files into a prover",
		Long: `Loads each FILE into the prover. With a store configured the text is
journaled and reloaded whenever the prover opens again.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProver(cmd, proverName, func(ctx context.Context, p *prolog.Prover) error {
				for _, path := range args {
					if err := loadFile(ctx, p, path, true); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "consulted %s\n", path)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&proverName, "prover", "p", "default", "Prover name")
	return cmd
}

func newAssertCmd(a *app) *cobra.Command {
	var proverName string
	cmd := &cobra.Command{
		Use:   "assert FACT [ARGS...]",
		Short: "Add a clause to the end of a prover's database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProver(cmd, proverName, func(ctx context.Context, p *prolog.Prover) error {
				return p.Assertz(ctx, args[0], parseArgs(args[1:])...)
			})
		},
	}
	cmd.Flags().StringVarP(&proverName, "prover", "p", "default", "Prover name")
	return cmd
}

func newRetractCmd(a *app) *cobra.Command {
	var proverName string
	cmd := &cobra.Command{
		Use:   "retract FACT [ARGS...]",
		Short: "Remove the first clause matching FACT",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProver(cmd, proverName, func(ctx context.Context, p *prolog.Prover) error {
				ok, err := p.Retract(ctx, args[0], parseArgs(args[1:])...)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "no matching clause")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&proverName, "prover", "p", "default", "Prover name")
	return cmd
}
