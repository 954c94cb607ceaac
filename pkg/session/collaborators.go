package session

import (
	"context"
	"errors"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// ErrPickerCancelled is returned by a DatePicker when the user dismisses it.
var ErrPickerCancelled = errors.New("session: date picker cancelled")

// ErrFutureDate is returned when a picker yields a date after its maximum.
var ErrFutureDate = errors.New("session: picked date is after the allowed maximum")

// DatePicker asks the user for a calendar date no later than max.
type DatePicker interface {
	PickDate(ctx context.Context, max time.Time) (time.Time, error)
}

// DatePickerFunc adapts a function to DatePicker.
type DatePickerFunc func(ctx context.Context, max time.Time) (time.Time, error)

// PickDate implements DatePicker.
func (fn DatePickerFunc) PickDate(ctx context.Context, max time.Time) (time.Time, error) {
	return fn(ctx, max)
}

// Clipboard reads text the user copied elsewhere.
type Clipboard interface {
	ReadText(ctx context.Context) (string, error)
}

// ClipboardFunc adapts a function to Clipboard.
type ClipboardFunc func(ctx context.Context) (string, error)

// ReadText implements Clipboard.
func (fn ClipboardFunc) ReadText(ctx context.Context) (string, error) {
	return fn(ctx)
}

var (
	pastePolicyOnce sync.Once
	pastePolicy     *bluemonday.Policy
)

// sanitizePaste strips any markup from clipboard text, leaving plain text.
func sanitizePaste(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	pastePolicyOnce.Do(func() {
		pastePolicy = bluemonday.StrictPolicy()
	})
	return strings.TrimSpace(html.UnescapeString(pastePolicy.Sanitize(trimmed)))
}

// afterDay reports whether t falls on a later calendar day than max, both
// compared in max's location.
func afterDay(t, max time.Time) bool {
	t = t.In(max.Location())
	ty, tm, td := t.Date()
	my, mm, md := max.Date()
	if ty != my {
		return ty > my
	}
	if tm != mm {
		return tm > mm
	}
	return td > md
}
