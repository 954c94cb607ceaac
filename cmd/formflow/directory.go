package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow/pkg/lookup/directory"
	"github.com/goliatone/go-formflow/pkg/sink"
)

const shutdownTimeout = 5 * time.Second

func newDirectoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "directory",
		Short: "Local postal code directory for development",
	}

	var addr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve ViaCEP-shaped lookups and the submission endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.Directory.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serveDirectory(ctx, addr)
		},
	}
	serve.Flags().StringVar(&addr, "addr", "", "listen address (overrides FORMFLOW_DIRECTORY_ADDR)")
	cmd.AddCommand(serve)
	return cmd
}

func (a *app) directoryHandler() (http.Handler, error) {
	contract, err := sink.BuiltinContract()
	if err != nil {
		return nil, err
	}
	router, err := directory.NewRouter(
		directory.WithContract(contract),
		directory.WithLatency(a.cfg.Directory.Latency),
		directory.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	router.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return router, nil
}

func (a *app) serveDirectory(ctx context.Context, addr string) error {
	handler, err := a.directoryHandler()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("directory listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.logger.Info("directory shutting down")
	return srv.Shutdown(shutdownCtx)
}
