package tui

import (
	"io"
	"log/slog"
	"strings"

	"github.com/goliatone/go-formflow/pkg/i18n"
	"github.com/goliatone/go-formflow/pkg/session"
)

// Theme captures optional prefixes the runner applies when printing messages.
type Theme struct {
	InfoPrefix  string
	ErrorPrefix string
}

// DefaultTheme marks errors so they stand out beneath the field prompt.
var DefaultTheme = Theme{ErrorPrefix: "  ! "}

// Option configures the Runner.
type Option func(*Runner)

// WithPromptDriver overrides the prompt driver used by the runner.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Runner) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithLocale selects the locale for labels and status messages.
func WithLocale(locale string) Option {
	return func(r *Runner) {
		if trimmed := strings.TrimSpace(locale); trimmed != "" {
			r.locale = trimmed
		}
	}
}

// WithMessages overrides the message source.
func WithMessages(messages *i18n.Messages) Option {
	return func(r *Runner) {
		if messages != nil {
			r.messages = messages
		}
	}
}

// WithTheme applies optional message prefixes.
func WithTheme(theme Theme) Option {
	return func(r *Runner) {
		r.theme = theme
	}
}

// WithMaxAttempts bounds how many rejected submissions the runner tolerates
// before giving up. Zero means unlimited.
func WithMaxAttempts(n int) Option {
	return func(r *Runner) {
		if n >= 0 {
			r.maxAttempts = n
		}
	}
}

// WithDatePicker replaces the typed DD/MM/YYYY prompt used for date fields.
func WithDatePicker(picker session.DatePicker) Option {
	return func(r *Runner) {
		r.picker = picker
	}
}

// WithClipboard enables pasting into a field by answering a prompt with the
// paste command (":paste").
func WithClipboard(clipboard session.Clipboard) Option {
	return func(r *Runner) {
		r.clipboard = clipboard
	}
}

// WithLogger routes runner diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
