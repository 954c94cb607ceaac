package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C) or declined to
	// correct a rejected form.
	ErrAborted = errors.New("tui: aborted")
	// ErrTooManyAttempts is returned when the form is still rejected after
	// the configured number of submissions.
	ErrTooManyAttempts = errors.New("tui: too many rejected submissions")
	// ErrInvalidDate is reported when typed text is not a DD/MM/YYYY date.
	ErrInvalidDate = errors.New("tui: date must be DD/MM/YYYY")
)
