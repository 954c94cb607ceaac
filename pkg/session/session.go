package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/i18n"
	"github.com/goliatone/go-formflow/pkg/mask"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/sink"
	"github.com/goliatone/go-formflow/pkg/validation"
	"github.com/goliatone/go-formflow/pkg/verify"
)

var (
	// ErrNotInitialized is returned by every method of a zero or nil Session.
	ErrNotInitialized = errors.New("session: not initialized")
	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("session: closed")
)

// Outcome is the result of a submission attempt.
type Outcome int

const (
	// OutcomePending means the decision was still waiting on a postal code
	// lookup when the caller's context ended.
	OutcomePending Outcome = iota
	OutcomeAccepted
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRejected:
		return "rejected"
	default:
		return "pending"
	}
}

// Decision reports a submission attempt. Errors always reflects the field
// errors recorded by the attempt; Payload is set only when accepted.
type Decision struct {
	Outcome Outcome
	Errors  map[string]form.FieldError
	Payload sink.Payload
}

// Session is one display of a form. It owns the field values and errors and
// the postal code verifier, and serialises every mutation through a single
// goroutine. Methods are safe for concurrent use.
type Session struct {
	id            string
	form          model.FormModel
	lookupField   string
	locale        string
	messages      *i18n.Messages
	masks         *mask.Registry
	validator     *validation.Validator
	sink          sink.Sink
	lookup        verify.Lookup
	lookupTimeout time.Duration
	logger        *slog.Logger
	observer      Observer
	now           func() time.Time

	// Owned by the run loop.
	store    *form.Store
	verifier *verify.Verifier
	closed   bool

	ctx       context.Context
	cancel    context.CancelFunc
	cmds      chan func()
	done      chan struct{}
	closeOnce sync.Once
}

// New starts a session for f. Call Close when the form is dismissed.
func New(f model.FormModel, opts ...Option) (*Session, error) {
	if strings.TrimSpace(f.ID) == "" || len(f.Fields) == 0 {
		return nil, fmt.Errorf("%w: form definition is empty", ErrNotInitialized)
	}
	s := &Session{
		id:            uuid.NewString(),
		form:          f,
		locale:        i18n.DefaultLocale,
		masks:         mask.NewRegistry(),
		validator:     validation.New(),
		sink:          sink.Discard,
		lookupTimeout: verify.DefaultTimeout,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer:      nopObserver{},
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.messages == nil {
		catalog, err := i18n.Builtin()
		if err != nil {
			return nil, fmt.Errorf("session: load messages: %w", err)
		}
		s.messages = i18n.NewMessages(catalog, nil)
	}
	decorated, err := model.Decorate(f, s.masks)
	if err != nil {
		return nil, fmt.Errorf("session: decorate form: %w", err)
	}
	s.form = decorated
	s.logger = s.logger.With("session_id", s.id, "form", f.ID)
	s.store = form.NewStore(f.FieldNames()...)
	if field, ok := f.LookupField(); ok {
		s.lookupField = field.Name
		s.verifier = verify.New(s.lookup, s.deliver,
			verify.WithTimeout(s.lookupTimeout),
			verify.WithLogger(s.logger),
			verify.WithObserver(s.observer),
		)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cmds = make(chan func())
	s.done = make(chan struct{})
	go s.run()

	s.logger.Debug("form session started", "fields", len(f.Fields))
	return s, nil
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

// Form returns the form definition the session was started with.
func (s *Session) Form() model.FormModel {
	if s == nil {
		return model.FormModel{}
	}
	return s.form
}

func (s *Session) run() {
	for {
		select {
		case fn := <-s.cmds:
			fn()
		case <-s.done:
			return
		}
	}
}

// do runs fn on the session goroutine and waits for it.
func (s *Session) do(fn func()) error {
	if s == nil || s.cmds == nil {
		return ErrNotInitialized
	}
	reply := make(chan struct{})
	var closed bool
	cmd := func() {
		if s.closed {
			closed = true
		} else {
			fn()
		}
		close(reply)
	}
	select {
	case s.cmds <- cmd:
	case <-s.done:
		return ErrClosed
	}
	<-reply
	if closed {
		return ErrClosed
	}
	return nil
}

// post queues fn without waiting; it is dropped once the session is closed.
func (s *Session) post(fn func()) {
	select {
	case s.cmds <- fn:
	case <-s.done:
	}
}

func (s *Session) deliver(o verify.Outcome) {
	s.post(func() { s.applyOutcome(o) })
}

func (s *Session) applyOutcome(o verify.Outcome) {
	if !s.verifier.Resolve(o) {
		return
	}
	switch o.Status {
	case verify.StatusConfirmed:
		s.store.ClearError(s.lookupField)
	case verify.StatusNotFound:
		s.setError(s.lookupField, form.KindNotFound)
	case verify.StatusFailed:
		s.setError(s.lookupField, form.KindLookupFailed)
	}
}

func (s *Session) setError(field string, kind form.ErrorKind) {
	_ = s.store.SetError(field, s.messages.FieldError(s.locale, field, kind))
}

// SetInput applies raw user input to field through its masker and returns the
// stored value. A changed value drops the field's error; a changed postal
// code starts a new lookup when it is complete and cancels interest in the
// previous one otherwise.
func (s *Session) SetInput(field, raw string) (string, error) {
	var (
		value string
		err   error
	)
	if doErr := s.do(func() {
		value, err = s.setInput(field, raw)
	}); doErr != nil {
		return "", doErr
	}
	return value, err
}

func (s *Session) setInput(field, raw string) (string, error) {
	def, ok := s.form.Field(field)
	if !ok {
		return "", fmt.Errorf("%w: %q", form.ErrUnknownField, field)
	}
	masked := s.masks.Apply(def, s.store.Value(field), raw)
	changed, err := s.store.SetValue(field, masked)
	if err != nil {
		return "", err
	}
	if changed && field == s.lookupField {
		s.reconcileLookup(def)
	}
	return masked, nil
}

func (s *Session) reconcileLookup(def model.Field) {
	result := s.validator.ValidateField(def, s.store.Snapshot())
	if result.OK() && result.Verify {
		s.verifier.Issue(s.ctx, mask.Digits(s.store.Value(def.Name)))
		return
	}
	s.verifier.Invalidate()
}

// PickDate asks picker for a date no later than today and stores it as
// DD/MM/YYYY. Cancelling the picker leaves the field unchanged and returns
// ErrPickerCancelled with the current value.
func (s *Session) PickDate(ctx context.Context, field string, picker DatePicker) (string, error) {
	if s == nil || s.cmds == nil {
		return "", ErrNotInitialized
	}
	if _, ok := s.form.Field(field); !ok {
		return "", fmt.Errorf("%w: %q", form.ErrUnknownField, field)
	}
	max := s.now()
	picked, err := picker.PickDate(ctx, max)
	if err != nil {
		current, valueErr := s.Value(field)
		if valueErr != nil {
			return "", valueErr
		}
		return current, err
	}
	if afterDay(picked, max) {
		current, _ := s.Value(field)
		return current, ErrFutureDate
	}

	value := mask.FormatDate(picked.In(max.Location()))
	if err := s.do(func() { _, _ = s.store.SetValue(field, value) }); err != nil {
		return "", err
	}
	return value, nil
}

// Paste reads clipboard text, strips markup and applies it as input.
func (s *Session) Paste(ctx context.Context, field string, clipboard Clipboard) (string, error) {
	if s == nil || s.cmds == nil {
		return "", ErrNotInitialized
	}
	text, err := clipboard.ReadText(ctx)
	if err != nil {
		return "", fmt.Errorf("session: read clipboard: %w", err)
	}
	return s.SetInput(field, sanitizePaste(text))
}

// Value returns the stored value of field.
func (s *Session) Value(field string) (string, error) {
	var (
		value string
		err   error
	)
	if doErr := s.do(func() {
		if !s.store.Has(field) {
			err = fmt.Errorf("%w: %q", form.ErrUnknownField, field)
			return
		}
		value = s.store.Value(field)
	}); doErr != nil {
		return "", doErr
	}
	return value, err
}

// Values returns every stored value.
func (s *Session) Values() (map[string]string, error) {
	var out map[string]string
	err := s.do(func() {
		out = make(map[string]string, len(s.form.Fields))
		for _, name := range s.store.Fields() {
			out[name] = s.store.Value(name)
		}
	})
	return out, err
}

// Error returns the current error of field, if any.
func (s *Session) Error(field string) (form.FieldError, error) {
	var fe form.FieldError
	err := s.do(func() { fe, _ = s.store.Error(field) })
	return fe, err
}

// Errors returns every current field error.
func (s *Session) Errors() (map[string]form.FieldError, error) {
	var out map[string]form.FieldError
	err := s.do(func() { out = s.store.Errors() })
	return out, err
}

// VerificationStatus reports the postal code verification state. Forms
// without a lookup field are always idle.
func (s *Session) VerificationStatus() (verify.Status, error) {
	status := verify.StatusIdle
	err := s.do(func() {
		if s.verifier != nil {
			status = s.verifier.Status()
		}
	})
	return status, err
}

// Address returns the confirmed address, if the postal code was confirmed.
func (s *Session) Address() (verify.Address, bool, error) {
	var (
		addr verify.Address
		ok   bool
	)
	err := s.do(func() {
		if s.verifier != nil && s.verifier.Status() == verify.StatusConfirmed {
			addr, ok = s.verifier.Address(), true
		}
	})
	return addr, ok, err
}

// AwaitVerification blocks until no lookup is pending and returns the
// resulting status.
func (s *Session) AwaitVerification(ctx context.Context) (verify.Status, error) {
	for {
		var (
			status verify.Status
			wait   <-chan struct{}
		)
		if err := s.do(func() {
			if s.verifier == nil {
				return
			}
			status = s.verifier.Status()
			if status == verify.StatusPending {
				wait = s.verifier.Wait()
			}
		}); err != nil {
			return verify.StatusIdle, err
		}
		if wait == nil {
			return status, nil
		}
		select {
		case <-wait:
		case <-ctx.Done():
			return verify.StatusPending, ctx.Err()
		case <-s.done:
			return verify.StatusIdle, ErrClosed
		}
	}
}

// Close resets the form and stops the session. Outstanding lookups are
// cancelled and their results dropped. Close is idempotent.
func (s *Session) Close() error {
	if s == nil || s.cmds == nil {
		return ErrNotInitialized
	}
	s.closeOnce.Do(func() {
		_ = s.do(func() {
			s.store.Reset()
			if s.verifier != nil {
				s.verifier.Invalidate()
			}
			s.closed = true
		})
		s.cancel()
		close(s.done)
		s.logger.Debug("form session closed")
	})
	return nil
}
