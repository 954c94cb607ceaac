package verify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"
)

// DefaultTimeout bounds a single lookup.
const DefaultTimeout = 5 * time.Second

// ErrNoLookup is reported when a verifier has no lookup service configured.
var ErrNoLookup = errors.New("verify: lookup service not configured")

// Option customises a Verifier.
type Option func(*Verifier)

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithLogger routes lookup diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithObserver registers an observer for lookup events.
func WithObserver(observer Observer) Option {
	return func(v *Verifier) {
		if observer != nil {
			v.observer = observer
		}
	}
}

// Verifier tracks the remote confirmation of one postal code field.
//
// A Verifier is not safe for concurrent use: Issue, Invalidate, Resolve and
// the accessors must all be called from the goroutine that owns it. Lookups
// run on their own goroutines and hand their Outcome to the deliver function,
// which is expected to pass it back to the owner for Resolve.
type Verifier struct {
	lookup   Lookup
	deliver  func(Outcome)
	timeout  time.Duration
	logger   *slog.Logger
	observer Observer
	now      func() time.Time

	seq     uint64
	current Request
	status  Status
	address Address
	err     error
	changed chan struct{}
}

// New constructs a Verifier. deliver receives every completed lookup,
// including stale ones.
func New(lookup Lookup, deliver func(Outcome), opts ...Option) *Verifier {
	v := &Verifier{
		lookup:   lookup,
		deliver:  deliver,
		timeout:  DefaultTimeout,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer: nopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	if v.deliver == nil {
		v.deliver = func(Outcome) {}
	}
	return v
}

// Issue starts a lookup for postalCode and makes it the current request.
// Any request still in flight becomes stale. The lookup is bounded by the
// verifier timeout even when the service ignores ctx.
func (v *Verifier) Issue(ctx context.Context, postalCode string) Request {
	v.seq++
	req := Request{Seq: v.seq, PostalCode: postalCode}
	v.current = req
	v.status = StatusPending
	v.address = Address{}
	v.err = nil
	v.notify()
	v.observer.LookupIssued()
	v.logger.Debug("postal lookup issued", "seq", req.Seq, "postal_code", postalCode)

	lookup, deliver, timeout, now := v.lookup, v.deliver, v.timeout, v.now
	go func() {
		start := now()
		lctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		resp, err := call(lctx, lookup, postalCode)
		out := Outcome{Request: req, Latency: now().Sub(start)}
		switch {
		case err != nil:
			out.Status = StatusFailed
			out.Err = err
		case !resp.Found:
			out.Status = StatusNotFound
		default:
			out.Status = StatusConfirmed
			out.Address = resp.Address
		}
		deliver(out)
	}()
	return req
}

// Invalidate forgets the current request without issuing a new one, returning
// the verifier to idle. Outcomes of earlier requests will be discarded.
func (v *Verifier) Invalidate() {
	v.seq++
	if v.status == StatusIdle && v.current == (Request{}) {
		return
	}
	v.current = Request{}
	v.status = StatusIdle
	v.address = Address{}
	v.err = nil
	v.notify()
}

// Resolve applies o when it answers the current pending request and reports
// whether it did. Stale or duplicate outcomes leave the state untouched.
func (v *Verifier) Resolve(o Outcome) bool {
	if v.status != StatusPending || o.Seq != v.current.Seq {
		v.observer.LookupDiscarded()
		v.logger.Debug("postal lookup discarded",
			"seq", o.Seq, "current_seq", v.current.Seq, "status", o.Status.String())
		return false
	}
	v.status = o.Status
	v.address = o.Address
	v.err = o.Err
	v.observer.LookupApplied(o.Status, o.Latency)
	if o.Err != nil {
		v.logger.Warn("postal lookup failed", "seq", o.Seq, "postal_code", o.PostalCode, "error", o.Err)
	} else {
		v.logger.Debug("postal lookup applied", "seq", o.Seq, "status", o.Status.String(), "latency", o.Latency)
	}
	v.notify()
	return true
}

// Status returns the verification state of the current request.
func (v *Verifier) Status() Status {
	return v.status
}

// Current returns the current request; its Seq is zero before the first Issue
// and after Invalidate.
func (v *Verifier) Current() Request {
	return v.current
}

// Address returns the confirmed address, if any.
func (v *Verifier) Address() Address {
	return v.address
}

// Err returns the failure of the current request when Status is failed.
func (v *Verifier) Err() error {
	return v.err
}

// Wait returns a channel closed at the next state change.
func (v *Verifier) Wait() <-chan struct{} {
	if v.changed == nil {
		v.changed = make(chan struct{})
	}
	return v.changed
}

func (v *Verifier) notify() {
	if v.changed != nil {
		close(v.changed)
		v.changed = nil
	}
}

type lookupResult struct {
	resp Response
	err  error
}

func call(ctx context.Context, lookup Lookup, postalCode string) (Response, error) {
	if lookup == nil {
		return Response{}, ErrNoLookup
	}
	ch := make(chan lookupResult, 1)
	go func() {
		resp, err := lookup.Lookup(ctx, postalCode)
		ch <- lookupResult{resp: resp, err: err}
	}()
	select {
	case res := <-ch:
		return res.resp, res.err
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}
