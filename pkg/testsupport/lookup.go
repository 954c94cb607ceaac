package testsupport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-formflow/pkg/verify"
)

// CallTimeout bounds how long Next waits for a lookup to arrive.
const CallTimeout = 2 * time.Second

type reply struct {
	resp verify.Response
	err  error
}

// Call is one lookup captured by FakeLookup. The lookup blocks until the test
// answers it with Found, NotFound or Fail, or its context ends.
type Call struct {
	PostalCode string
	reply      chan reply
	once       sync.Once
}

// Found answers the call with addr.
func (c *Call) Found(addr verify.Address) {
	if addr.PostalCode == "" {
		addr.PostalCode = c.PostalCode
	}
	c.answer(reply{resp: verify.Response{Found: true, Address: addr}})
}

// NotFound answers that the code does not exist.
func (c *Call) NotFound() {
	c.answer(reply{resp: verify.Response{}})
}

// Fail answers with a service error.
func (c *Call) Fail(err error) {
	c.answer(reply{err: err})
}

func (c *Call) answer(r reply) {
	c.once.Do(func() { c.reply <- r })
}

// FakeLookup is a verify.Lookup whose answers are scripted by the test, in
// any order, so out-of-order completions can be reproduced.
type FakeLookup struct {
	mu    sync.Mutex
	codes []string
	calls chan *Call
}

// NewFakeLookup returns an empty FakeLookup.
func NewFakeLookup() *FakeLookup {
	return &FakeLookup{calls: make(chan *Call, 64)}
}

// Lookup implements verify.Lookup.
func (f *FakeLookup) Lookup(ctx context.Context, postalCode string) (verify.Response, error) {
	call := &Call{PostalCode: postalCode, reply: make(chan reply, 1)}

	f.mu.Lock()
	f.codes = append(f.codes, postalCode)
	f.mu.Unlock()
	f.calls <- call

	select {
	case r := <-call.reply:
		return r.resp, r.err
	case <-ctx.Done():
		return verify.Response{}, ctx.Err()
	}
}

// Next returns the next captured call, failing the test if none arrives.
func (f *FakeLookup) Next(t testing.TB) *Call {
	t.Helper()
	select {
	case call := <-f.calls:
		return call
	case <-time.After(CallTimeout):
		t.Fatalf("testsupport: no lookup issued within %s", CallTimeout)
		return nil
	}
}

// Calls returns every postal code looked up so far, in arrival order.
func (f *FakeLookup) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.codes...)
}

// Count returns the number of lookups received.
func (f *FakeLookup) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.codes)
}
