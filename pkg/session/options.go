package session

import (
	"log/slog"
	"strings"
	"time"

	"github.com/goliatone/go-formflow/pkg/i18n"
	"github.com/goliatone/go-formflow/pkg/mask"
	"github.com/goliatone/go-formflow/pkg/sink"
	"github.com/goliatone/go-formflow/pkg/validation"
	"github.com/goliatone/go-formflow/pkg/verify"
)

// Observer receives lookup and submission events.
type Observer interface {
	verify.Observer
	SubmissionDecided(form, outcome string)
}

type nopObserver struct{}

func (nopObserver) LookupIssued()                              {}
func (nopObserver) LookupApplied(verify.Status, time.Duration) {}
func (nopObserver) LookupDiscarded()                           {}
func (nopObserver) SubmissionDecided(string, string)           {}

// Option customises a Session.
type Option func(*Session)

// WithLogger routes session diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLocale selects the locale for error messages.
func WithLocale(locale string) Option {
	return func(s *Session) {
		if trimmed := strings.TrimSpace(locale); trimmed != "" {
			s.locale = trimmed
		}
	}
}

// WithMessages overrides the message source. Defaults to the built-in catalog.
func WithMessages(messages *i18n.Messages) Option {
	return func(s *Session) {
		if messages != nil {
			s.messages = messages
		}
	}
}

// WithSink sets where accepted submissions go. Defaults to sink.Discard.
func WithSink(target sink.Sink) Option {
	return func(s *Session) {
		if target != nil {
			s.sink = target
		}
	}
}

// WithLookup sets the postal code lookup service.
func WithLookup(lookup verify.Lookup) Option {
	return func(s *Session) {
		s.lookup = lookup
	}
}

// WithLookupTimeout bounds each postal code lookup.
func WithLookupTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.lookupTimeout = d
		}
	}
}

// WithMaskRegistry overrides the masker registry.
func WithMaskRegistry(reg *mask.Registry) Option {
	return func(s *Session) {
		if reg != nil {
			s.masks = reg
		}
	}
}

// WithValidator overrides the validator.
func WithValidator(v *validation.Validator) Option {
	return func(s *Session) {
		if v != nil {
			s.validator = v
		}
	}
}

// WithObserver registers an observer for lookup and submission events.
func WithObserver(observer Observer) Option {
	return func(s *Session) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// WithClock overrides the time source used as the date picker maximum.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}
