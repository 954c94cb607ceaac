package sink

import (
	"context"
	"errors"
	"net/http"
)

// ErrUnknownOperation is returned when a payload names an operation the
// contract does not declare.
var ErrUnknownOperation = errors.New("sink: unknown operation")

// Payload is the canonical submission of an accepted form. Fields holds only
// submittable fields, already canonicalised.
type Payload struct {
	Form      string            `json:"form"`
	Operation string            `json:"operation"`
	Fields    map[string]string `json:"fields"`
}

// Redacted returns a copy with the named fields replaced by a placeholder.
func (p Payload) Redacted(fields ...string) Payload {
	out := Payload{Form: p.Form, Operation: p.Operation, Fields: make(map[string]string, len(p.Fields))}
	for key, value := range p.Fields {
		out.Fields[key] = value
	}
	for _, field := range fields {
		if _, ok := out.Fields[field]; ok {
			out.Fields[field] = "***"
		}
	}
	return out
}

// Sink receives accepted submissions.
type Sink interface {
	Submit(ctx context.Context, payload Payload) error
}

// Func adapts a function to the Sink interface.
type Func func(ctx context.Context, payload Payload) error

// Submit implements Sink.
func (fn Func) Submit(ctx context.Context, payload Payload) error {
	return fn(ctx, payload)
}

// Discard accepts and drops every payload.
var Discard Sink = Func(func(context.Context, Payload) error { return nil })

// StatusError reports a non-success response from a remote sink.
type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "sink: " + http.StatusText(e.StatusCode())
}

func (e StatusError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status, defaulting to 500.
func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}
