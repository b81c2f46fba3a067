package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prolog4go/server"
	"prolog4go/watch"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr       string
		watchFiles bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve provers over a JSON HTTP API",
		Long: `Starts an HTTP server with the endpoints

  POST   /solve          {"prover", "goal", "args", "limit"}
  POST   /theory         {"prover", "text"}
  GET    /provers
  DELETE /provers/{name}
  GET    /drivers

Configured provers are opened at startup. With --watch their theory files
are watched and a prover is reopened when one of its files changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx := cmd.Context()
			if err := a.open(ctx); err != nil {
				return err
			}
			defer func() {
				if cerr := a.close(); err == nil {
					err = cerr
				}
			}()
			for _, pc := range a.cfg.Provers {
				if _, err := a.prover(ctx, pc.Name); err != nil {
					return fmt.Errorf("open prover %s: %w", pc.Name, err)
				}
			}

			if watchFiles {
				w, err := a.startWatcher(cmd)
				if err != nil {
					return err
				}
				if w != nil {
					defer w.Stop()
				}
			}

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			return server.New(a.factory, a.log.Named("server")).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().BoolVarP(&watchFiles, "watch", "w", false, "Reload provers when their theory files change")
	return cmd
}

func (a *app) startWatcher(cmd *cobra.Command) (*watch.Watcher, error) {
	files, err := a.theoryFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		a.log.Warn("--watch given but no prover lists theory files")
		return nil, nil
	}
	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	debounce, err := a.cfg.DebounceDuration()
	if err != nil {
		return nil, err
	}
	w, err := watch.New(paths, debounce, a.reloadTheory, a.log.Named("watch"))
	if err != nil {
		return nil, err
	}
	if err := w.Start(cmd.Context()); err != nil {
		w.Stop()
		return nil, err
	}
	a.log.Info("watching theory files", zap.Int("files", len(paths)))
	return w, nil
}
