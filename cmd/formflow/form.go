package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/renderers/tui"
	"github.com/goliatone/go-formflow/pkg/session"
	"github.com/goliatone/go-formflow/pkg/sink"
)

func newFormCmd(a *app, use, formID, short string) *cobra.Command {
	var (
		maxAttempts   int
		clipboardFile string
	)
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runForm(ctx, cmd.OutOrStdout(), formID, maxAttempts, clipboardFile)
		},
	}
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "give up after this many rejected submissions (0 = unlimited)")
	cmd.Flags().StringVar(&clipboardFile, "clipboard-file", "", "file read when a prompt is answered with :paste")
	return cmd
}

func (a *app) runForm(ctx context.Context, out io.Writer, formID string, maxAttempts int, clipboardFile string) error {
	registry, err := model.Builtin()
	if err != nil {
		return err
	}
	def, ok := registry.Form(formID)
	if !ok {
		return fmt.Errorf("unknown form %q", formID)
	}

	target, err := a.sinkFor(def, out)
	if err != nil {
		return err
	}

	s, err := session.New(def,
		session.WithLocale(a.cfg.Locale),
		session.WithLookup(a.lookupClient()),
		session.WithLookupTimeout(a.cfg.Lookup.Timeout),
		session.WithSink(target),
		session.WithObserver(a.metrics),
		session.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	defer s.Close()

	opts := []tui.Option{
		tui.WithLocale(a.cfg.Locale),
		tui.WithMaxAttempts(maxAttempts),
		tui.WithLogger(a.logger),
	}
	if clipboardFile != "" {
		opts = append(opts, tui.WithClipboard(fileClipboard(clipboardFile)))
	}
	runner, err := tui.New(opts...)
	if err != nil {
		return err
	}

	decision, err := runner.Run(ctx, s)
	switch {
	case errors.Is(err, tui.ErrAborted):
		a.logger.Info("form abandoned", "form", formID)
		return nil
	case err != nil:
		return err
	}
	a.logger.Debug("form finished", "form", formID, "outcome", decision.Outcome.String())
	return nil
}

// sinkFor posts to the configured endpoint, or prints the payload with secret
// fields redacted when no endpoint is configured.
func (a *app) sinkFor(def model.FormModel, out io.Writer) (sink.Sink, error) {
	if a.cfg.Sink.URL != "" {
		return sink.NewHTTP(a.cfg.Sink.URL, sink.WithLogger(a.logger))
	}
	return printSink(out, secretFields(def)), nil
}

func printSink(out io.Writer, secret []string) sink.Sink {
	return sink.Func(func(_ context.Context, payload sink.Payload) error {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(payload.Redacted(secret...))
	})
}

func secretFields(def model.FormModel) []string {
	var out []string
	for _, field := range def.Fields {
		if field.Kind.Secret() {
			out = append(out, field.Name)
		}
	}
	return out
}

func fileClipboard(path string) session.Clipboard {
	return session.ClipboardFunc(func(context.Context) (string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	})
}
