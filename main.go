package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"prolog4go/config"
	_ "prolog4go/drivers/ichiban"
	_ "prolog4go/drivers/mangle"
	_ "prolog4go/drivers/trealla"
	"prolog4go/logging"
)

type globalFlags struct {
	config  string
	driver  string
	store   string
	verbose bool
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	a := &app{}
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "prolog4go",
		Short: "Run Prolog goals through pluggable logic engines",
		Long: `prolog4go runs goals against named provers. Each prover wraps one
engine (ichiban, trealla or mangle) and may be journaled to SQLite so that
asserted facts survive restarts.

Example:
  prolog4go consult family.pl
  prolog4go query 'parent(?, Child)' tom`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.config)
			if err != nil {
				return err
			}
			if flags.driver != "" {
				cfg.Driver = flags.driver
			}
			if flags.store != "" {
				cfg.Store.Path = flags.store
			}
			log, err := logging.New(cfg.Logging, flags.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.cfg = cfg
			a.log = log
			a.timeout = flags.timeout
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", config.DefaultPath, "Config file")
	pf.StringVarP(&flags.driver, "driver", "d", "", "Engine driver (or set "+config.EnvDriver+")")
	pf.StringVar(&flags.store, "store", "", "SQLite journal path (or set "+config.EnvStore+")")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	pf.DurationVar(&flags.timeout, "timeout", time.Minute, "Operation timeout, 0 for none")

	root.AddCommand(
		newDriversCmd(),
		newQueryCmd(a),
		newConsultCmd(a),
		newAssertCmd(a),
		newRetractCmd(a),
		newExplainCmd(a),
		newJournalCmd(a),
		newServeCmd(a),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
