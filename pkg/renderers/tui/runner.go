package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/i18n"
	"github.com/goliatone/go-formflow/pkg/mask"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/session"
	"github.com/goliatone/go-formflow/pkg/verify"
)

const pasteCommand = ":paste"

// Runner drives a form session from a terminal. It prompts every field in
// order, submits, and on rejection shows each error beneath its field and
// prompts only the fields that failed.
type Runner struct {
	driver      PromptDriver
	locale      string
	messages    *i18n.Messages
	theme       Theme
	maxAttempts int
	picker      session.DatePicker
	clipboard   session.Clipboard
	logger      *slog.Logger
}

// New constructs a Runner backed by survey prompts unless a driver is given.
func New(options ...Option) (*Runner, error) {
	r := &Runner{
		driver: newSurveyDriver(),
		locale: i18n.DefaultLocale,
		theme:  DefaultTheme,
		logger: discardLogger(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.messages == nil {
		catalog, err := i18n.Builtin()
		if err != nil {
			return nil, fmt.Errorf("tui: load messages: %w", err)
		}
		r.messages = i18n.NewMessages(catalog, nil)
	}
	return r, nil
}

// Run prompts until s accepts a submission, the user aborts or ctx ends. The
// returned decision is the last one the session made.
func (r *Runner) Run(ctx context.Context, s *session.Session) (session.Decision, error) {
	if ctx == nil {
		return session.Decision{}, errors.New("tui: context is required")
	}
	if s == nil {
		return session.Decision{}, session.ErrNotInitialized
	}

	f := s.Form()
	if f.Title != "" {
		_ = r.info(ctx, f.Title)
	}

	fields := f.Fields
	for attempt := 1; ; attempt++ {
		for _, field := range fields {
			if err := r.promptField(ctx, s, field); err != nil {
				return session.Decision{}, err
			}
		}

		decision, err := r.submit(ctx, s)
		if err != nil {
			return decision, err
		}
		if decision.Outcome == session.OutcomeAccepted {
			r.reportAccepted(ctx, s)
			return decision, nil
		}

		_ = r.info(ctx, r.text("submit.rejected", "Please fix the highlighted fields."))
		r.logger.Debug("form rejected", "attempt", attempt, "errors", len(decision.Errors))
		if r.maxAttempts > 0 && attempt >= r.maxAttempts {
			return decision, ErrTooManyAttempts
		}
		again, err := r.driver.Confirm(ctx, ConfirmConfig{
			Message: r.text("submit.retry", "Fix the fields now?"),
			Default: true,
		})
		if err != nil {
			return decision, err
		}
		if !again {
			return decision, ErrAborted
		}
		fields = failing(f, decision.Errors)
	}
}

func (r *Runner) submit(ctx context.Context, s *session.Session) (session.Decision, error) {
	status, err := s.VerificationStatus()
	if err != nil {
		return session.Decision{}, err
	}
	if status == verify.StatusPending {
		_ = r.info(ctx, r.text("submit.pending", "Waiting for postal code verification..."))
	}
	return s.Submit(ctx)
}

func (r *Runner) reportAccepted(ctx context.Context, s *session.Session) {
	_ = r.info(ctx, r.text("submit.accepted", "Submitted successfully."))
	if addr, ok, err := s.Address(); err == nil && ok {
		_ = r.info(ctx, formatAddress(addr))
	}
}

// promptField asks for one field, showing its current error first. Date
// entries that cannot be parsed are re-asked in place.
func (r *Runner) promptField(ctx context.Context, s *session.Session, field model.Field) error {
	fe, err := s.Error(field.Name)
	if err != nil {
		return err
	}
	if !fe.IsZero() {
		r.showError(ctx, fe.Message)
	}

	for {
		err := r.askField(ctx, s, field)
		switch {
		case err == nil, errors.Is(err, session.ErrPickerCancelled):
			return nil
		case errors.Is(err, ErrInvalidDate), errors.Is(err, session.ErrFutureDate):
			r.showError(ctx, r.messages.FieldError(r.locale, field.Name, form.KindInvalidFormat).Message)
		default:
			return err
		}
	}
}

func (r *Runner) askField(ctx context.Context, s *session.Session, field model.Field) error {
	cfg := InputConfig{
		Message: r.messages.Label(r.locale, field.Name, field.Label),
		Help:    fieldHelp(field),
	}

	if !field.Kind.Secret() {
		current, err := s.Value(field.Name)
		if err != nil {
			return err
		}
		cfg.Default = current
	}

	if field.Kind == model.FieldKindDate {
		_, err := s.PickDate(ctx, field.Name, r.datePicker(cfg))
		return err
	}

	var (
		raw string
		err error
	)
	if field.Kind.Secret() {
		raw, err = r.driver.Password(ctx, cfg)
	} else {
		raw, err = r.driver.Input(ctx, cfg)
	}
	if err != nil {
		return err
	}

	if r.clipboard != nil && strings.TrimSpace(raw) == pasteCommand {
		_, err = s.Paste(ctx, field.Name, r.clipboard)
		return err
	}
	_, err = s.SetInput(field.Name, raw)
	return err
}

func (r *Runner) datePicker(cfg InputConfig) session.DatePicker {
	if r.picker != nil {
		return r.picker
	}
	return session.DatePickerFunc(func(ctx context.Context, max time.Time) (time.Time, error) {
		cfg.Validator = func(value string) error {
			if strings.TrimSpace(value) == "" {
				return nil
			}
			picked, err := mask.ParseDate(value, max.Location())
			if err != nil {
				return ErrInvalidDate
			}
			if picked.After(max) {
				return session.ErrFutureDate
			}
			return nil
		}
		raw, err := r.driver.Input(ctx, cfg)
		if err != nil {
			return time.Time{}, err
		}
		if strings.TrimSpace(raw) == "" {
			return time.Time{}, session.ErrPickerCancelled
		}
		picked, err := mask.ParseDate(raw, max.Location())
		if err != nil {
			return time.Time{}, ErrInvalidDate
		}
		return picked, nil
	})
}

func (r *Runner) showError(ctx context.Context, msg string) {
	if strings.TrimSpace(msg) == "" {
		return
	}
	_ = r.driver.Info(ctx, r.theme.ErrorPrefix+msg)
}

func (r *Runner) info(ctx context.Context, msg string) error {
	return r.driver.Info(ctx, r.theme.InfoPrefix+msg)
}

func (r *Runner) text(key, fallback string) string {
	return r.messages.Text(r.locale, key, fallback)
}

// failing returns the fields of f that carry an error, in display order.
func failing(f model.FormModel, errs map[string]form.FieldError) []model.Field {
	out := make([]model.Field, 0, len(errs))
	for _, field := range f.Fields {
		if _, ok := errs[field.Name]; ok {
			out = append(out, field)
		}
	}
	return out
}

var maskHints = map[string]string{
	mask.MaskPhone:      "(DD) DDDDD-DDDD",
	mask.MaskPostalCode: "DDDDDDDD",
}

func fieldHelp(field model.Field) string {
	help := field.Description
	if help == "" {
		help = field.Placeholder
	}
	if field.Kind == model.FieldKindDate {
		return strings.TrimSpace(help + " DD/MM/YYYY")
	}
	if hint, ok := maskHints[field.Metadata[mask.MetadataKey]]; ok {
		return strings.TrimSpace(help + " " + hint)
	}
	return help
}

func formatAddress(addr verify.Address) string {
	parts := make([]string, 0, 4)
	for _, part := range []string{addr.Street, addr.District, cityState(addr)} {
		if strings.TrimSpace(part) != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return addr.PostalCode
	}
	return addr.PostalCode + ": " + strings.Join(parts, ", ")
}

func cityState(addr verify.Address) string {
	switch {
	case addr.City != "" && addr.State != "":
		return addr.City + "/" + addr.State
	case addr.City != "":
		return addr.City
	default:
		return addr.State
	}
}
