package main

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow/internal/config"
	"github.com/goliatone/go-formflow/internal/logger"
	"github.com/goliatone/go-formflow/internal/metrics"
	"github.com/goliatone/go-formflow/pkg/lookup/viacep"
	"github.com/goliatone/go-formflow/pkg/model"
)

// app carries the dependencies every subcommand shares. It is filled in by
// the root command before any subcommand runs.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	locale   string
	logLevel string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "formflow",
		Short:         "Interactive account forms with masked input and postal code verification",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.locale, "locale", "", "message locale (overrides FORMFLOW_LOCALE)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (overrides FORMFLOW_LOG_LEVEL)")

	root.AddCommand(
		newFormCmd(a, "signup", model.FormSignUp, "Create an account"),
		newFormCmd(a, "reset-password", model.FormPasswordReset, "Reset a password with a verification code"),
		newFormCmd(a, "login", model.FormLogin, "Sign in"),
		newLookupCmd(a),
		newDirectoryCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}
	if a.locale != "" {
		cfg.Locale = a.locale
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg
	a.logger = logger.New(cmd.ErrOrStderr(), cfg.Log.Format, cfg.Log.Level)
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New("formflow", a.registry)
	a.logger.Debug("configuration loaded",
		"locale", cfg.Locale,
		"lookup_base_url", cfg.Lookup.BaseURL,
		"sink_configured", cfg.Sink.URL != "",
	)
	return nil
}

func (a *app) lookupClient() *viacep.Client {
	return viacep.New(
		viacep.WithBaseURL(a.cfg.Lookup.BaseURL),
		viacep.WithHTTPClient(&http.Client{Timeout: a.cfg.Lookup.Timeout}),
		viacep.WithLogger(a.logger),
	)
}
