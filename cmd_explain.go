package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"prolog4go/diagnose"
	"prolog4go/prolog"
)

func newExplainCmd(a *app) *cobra.Command {
	var (
		proverName string
		theories   []string
		solver     string
	)
	cmd := &cobra.Command{
		Use:   "explain GOAL [ARGS...]",
		Short: "Explain why a conjunctive goal fails",
		Long: `Splits GOAL into its conjuncts and reports the minimal groups that
cannot hold together, with the smallest sets of conjuncts whose removal
makes the rest succeed.

Example:
  prolog4go explain --theory shop.pl 'item(X), price(X, P), P < 10, color(X, red)'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProver(cmd, proverName, func(ctx context.Context, p *prolog.Prover) error {
				for _, path := range theories {
					if err := loadFile(ctx, p, path, false); err != nil {
						return err
					}
				}
				cfg := diagnose.Config{
					Solver:   a.cfg.Diagnose.Solver,
					MaxLoops: a.cfg.Diagnose.MaxLoops,
					Logger:   a.log.Named("diagnose"),
				}
				if solver != "" {
					cfg.Solver = solver
				}
				report, err := diagnose.Explain(ctx, p, cfg, args[0], parseArgs(args[1:])...)
				if err != nil {
					return err
				}
				text, err := report.Render()
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), text)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&proverName, "prover", "p", "default", "Prover name")
	cmd.Flags().StringSliceVarP(&theories, "theory", "t", nil, "Theory files to consult first")
	cmd.Flags().StringVar(&solver, "solver", "", "SAT solver: maxsat, gophersat or gini")
	return cmd
}
