package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/mask"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/sink"
	"github.com/goliatone/go-formflow/pkg/verify"
)

type evaluation struct {
	errors  map[string]form.FieldError
	wait    <-chan struct{}
	payload sink.Payload
}

func (e evaluation) rejected() bool { return len(e.errors) > 0 }

// Submit validates every field, records the resulting errors and, when the
// form is valid and the postal code is confirmed, hands the canonical payload
// to the sink.
//
// A pending postal code lookup holds the decision until it resolves; editing
// continues to work meanwhile. A failed lookup is retried once per call. When
// ctx ends first, Submit returns OutcomePending with ctx.Err().
func (s *Session) Submit(ctx context.Context) (Decision, error) {
	if s == nil || s.cmds == nil {
		return Decision{}, ErrNotInitialized
	}

	retry := true
	for {
		var ev evaluation
		if err := s.do(func() {
			ev = s.evaluate(retry)
		}); err != nil {
			return Decision{}, err
		}
		retry = false

		if ev.rejected() {
			return s.decide(Decision{Outcome: OutcomeRejected, Errors: ev.errors}), nil
		}
		if ev.wait != nil {
			s.logger.Debug("submission waiting for postal code verification")
			select {
			case <-ev.wait:
				continue
			case <-ctx.Done():
				return s.decide(Decision{Outcome: OutcomePending, Errors: ev.errors}), ctx.Err()
			case <-s.done:
				return Decision{}, ErrClosed
			}
		}

		decision := s.decide(Decision{Outcome: OutcomeAccepted, Errors: ev.errors, Payload: ev.payload})
		if err := s.sink.Submit(ctx, ev.payload); err != nil {
			s.logger.Error("submission sink failed", "operation", ev.payload.Operation, "error", err)
			return decision, fmt.Errorf("session: submit %s: %w", ev.payload.Operation, err)
		}
		return decision, nil
	}
}

func (s *Session) decide(d Decision) Decision {
	if d.Errors == nil {
		d.Errors = map[string]form.FieldError{}
	}
	s.observer.SubmissionDecided(s.form.ID, d.Outcome.String())
	s.logger.Info("submission decided", "outcome", d.Outcome.String(), "errors", len(d.Errors))
	return d
}

// evaluate runs one validation pass on the session goroutine and records its
// errors. It never issues a lookup while some field fails synchronously, so a
// rejected submission causes no network traffic.
func (s *Session) evaluate(retry bool) evaluation {
	snapshot := s.store.Snapshot()
	results := s.validator.Validate(s.form, snapshot)

	syncFailed := false
	for _, result := range results {
		if !result.OK() {
			syncFailed = true
			break
		}
	}

	var wait <-chan struct{}
	for _, field := range s.form.Fields {
		result := results[field.Name]
		if !result.OK() {
			s.setError(field.Name, result.Kind)
			continue
		}
		if !result.Verify || s.verifier == nil || field.Name != s.lookupField {
			s.store.ClearError(field.Name)
			continue
		}
		if s.reconcileOnSubmit(field, snapshot, syncFailed, retry) {
			wait = s.verifier.Wait()
		}
	}

	ev := evaluation{errors: s.store.Errors()}
	if len(ev.errors) > 0 {
		return ev
	}
	if wait != nil {
		ev.wait = wait
		return ev
	}
	ev.payload = s.payload(snapshot)
	return ev
}

// reconcileOnSubmit records the lookup field's deferred error and reports
// whether the decision has to wait for a lookup.
func (s *Session) reconcileOnSubmit(field model.Field, snapshot form.Snapshot, syncFailed, retry bool) bool {
	code := mask.Digits(snapshot.Value(field.Name))
	current := s.verifier.Current()
	status := s.verifier.Status()

	if status == verify.StatusIdle || current.PostalCode != code {
		s.store.ClearError(field.Name)
		if syncFailed {
			return false
		}
		s.verifier.Issue(s.ctx, code)
		return true
	}

	switch status {
	case verify.StatusPending:
		s.store.ClearError(field.Name)
		return true
	case verify.StatusConfirmed:
		s.store.ClearError(field.Name)
	case verify.StatusNotFound:
		s.setError(field.Name, form.KindNotFound)
	case verify.StatusFailed:
		if retry && !syncFailed {
			s.store.ClearError(field.Name)
			s.verifier.Issue(s.ctx, code)
			return true
		}
		s.setError(field.Name, form.KindLookupFailed)
	}
	return false
}

// payload builds the canonical submission: transient fields are dropped,
// phone and postal code are reduced to digits and free text is trimmed.
func (s *Session) payload(snapshot form.Snapshot) sink.Payload {
	fields := make(map[string]string, len(s.form.Fields))
	for _, field := range s.form.Fields {
		if field.Transient {
			continue
		}
		fields[field.Name] = canonical(field, snapshot.Value(field.Name))
	}
	return sink.Payload{Form: s.form.ID, Operation: s.form.Operation, Fields: fields}
}

func canonical(field model.Field, value string) string {
	switch field.Kind {
	case model.FieldKindPhone, model.FieldKindPostalCode:
		return mask.Digits(value)
	case model.FieldKindPassword:
		return value
	default:
		return strings.TrimSpace(value)
	}
}
