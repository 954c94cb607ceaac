package verify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-formflow/pkg/testsupport"
	"github.com/goliatone/go-formflow/pkg/verify"
)

type harness struct {
	lookup   *testsupport.FakeLookup
	outcomes chan verify.Outcome
	verifier *verify.Verifier
	observer *countingObserver
}

func newHarness(opts ...verify.Option) *harness {
	h := &harness{
		lookup:   testsupport.NewFakeLookup(),
		outcomes: make(chan verify.Outcome, 8),
		observer: &countingObserver{},
	}
	opts = append(opts, verify.WithObserver(h.observer))
	h.verifier = verify.New(h.lookup, func(o verify.Outcome) { h.outcomes <- o }, opts...)
	return h
}

func (h *harness) outcome(t *testing.T) verify.Outcome {
	t.Helper()
	select {
	case o := <-h.outcomes:
		return o
	case <-time.After(testsupport.CallTimeout):
		t.Fatalf("no outcome delivered")
		return verify.Outcome{}
	}
}

type countingObserver struct {
	issued, applied, discarded int
}

func (o *countingObserver) LookupIssued()                             { o.issued++ }
func (o *countingObserver) LookupApplied(verify.Status, time.Duration) { o.applied++ }
func (o *countingObserver) LookupDiscarded()                          { o.discarded++ }

func TestVerifier_NewerResultWins(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	h.verifier.Issue(ctx, "01310100")
	first := h.lookup.Next(t)
	second := h.verifier.Issue(ctx, "04567000")
	latest := h.lookup.Next(t)

	latest.Found(verify.Address{City: "São Paulo"})
	if !h.verifier.Resolve(h.outcome(t)) {
		t.Fatalf("expected latest outcome to apply")
	}
	first.Found(verify.Address{City: "Elsewhere"})
	if h.verifier.Resolve(h.outcome(t)) {
		t.Fatalf("expected stale outcome to be discarded")
	}

	if got := h.verifier.Status(); got != verify.StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", got)
	}
	if got := h.verifier.Address(); got.PostalCode != second.PostalCode || got.City != "São Paulo" {
		t.Fatalf("unexpected address %+v", got)
	}
	if h.observer.issued != 2 || h.observer.applied != 1 || h.observer.discarded != 1 {
		t.Fatalf("unexpected observer counts %+v", h.observer)
	}
}

func TestVerifier_StaleArrivingFirstIsDiscarded(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	h.verifier.Issue(ctx, "01310100")
	first := h.lookup.Next(t)
	h.verifier.Issue(ctx, "04567000")
	latest := h.lookup.Next(t)

	first.Found(verify.Address{})
	if h.verifier.Resolve(h.outcome(t)) {
		t.Fatalf("stale outcome applied")
	}
	if got := h.verifier.Status(); got != verify.StatusPending {
		t.Fatalf("expected still pending, got %s", got)
	}

	latest.NotFound()
	if !h.verifier.Resolve(h.outcome(t)) {
		t.Fatalf("latest outcome discarded")
	}
	if got := h.verifier.Status(); got != verify.StatusNotFound {
		t.Fatalf("expected not found, got %s", got)
	}
}

func TestVerifier_InvalidateDiscardsInFlight(t *testing.T) {
	h := newHarness()
	h.verifier.Issue(context.Background(), "01310100")
	call := h.lookup.Next(t)

	wait := h.verifier.Wait()
	h.verifier.Invalidate()
	select {
	case <-wait:
	default:
		t.Fatalf("expected waiters to be released on invalidate")
	}

	call.Found(verify.Address{})
	if h.verifier.Resolve(h.outcome(t)) {
		t.Fatalf("outcome applied after invalidate")
	}
	if got := h.verifier.Status(); got != verify.StatusIdle {
		t.Fatalf("expected idle, got %s", got)
	}
	if got := h.verifier.Current(); got.Seq != 0 || got.PostalCode != "" {
		t.Fatalf("expected no current request, got %+v", got)
	}
}

func TestVerifier_FailureAndDuplicate(t *testing.T) {
	h := newHarness()
	h.verifier.Issue(context.Background(), "01310100")

	boom := errors.New("service unavailable")
	h.lookup.Next(t).Fail(boom)
	out := h.outcome(t)
	if !h.verifier.Resolve(out) {
		t.Fatalf("failure outcome discarded")
	}
	if h.verifier.Status() != verify.StatusFailed || !errors.Is(h.verifier.Err(), boom) {
		t.Fatalf("unexpected state %s / %v", h.verifier.Status(), h.verifier.Err())
	}
	if h.verifier.Resolve(out) {
		t.Fatalf("duplicate outcome applied twice")
	}
}

func TestVerifier_TimeoutBoundsUnresponsiveLookup(t *testing.T) {
	outcomes := make(chan verify.Outcome, 1)
	stuck := verify.LookupFunc(func(context.Context, string) (verify.Response, error) {
		select {} // ignores ctx entirely
	})
	v := verify.New(stuck, func(o verify.Outcome) { outcomes <- o }, verify.WithTimeout(20*time.Millisecond))
	v.Issue(context.Background(), "01310100")

	select {
	case out := <-outcomes:
		if out.Status != verify.StatusFailed || !errors.Is(out.Err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline failure, got %s / %v", out.Status, out.Err)
		}
		if !v.Resolve(out) {
			t.Fatalf("timeout outcome discarded")
		}
	case <-time.After(time.Second):
		t.Fatalf("lookup was not bounded by the timeout")
	}
}

func TestVerifier_WithoutLookupFails(t *testing.T) {
	outcomes := make(chan verify.Outcome, 1)
	v := verify.New(nil, func(o verify.Outcome) { outcomes <- o })
	v.Issue(context.Background(), "01310100")

	out := <-outcomes
	if !errors.Is(out.Err, verify.ErrNoLookup) {
		t.Fatalf("expected ErrNoLookup, got %v", out.Err)
	}
}
