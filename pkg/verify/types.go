package verify

import (
	"context"
	"time"
)

// Address is the street-level information a postal lookup returns.
type Address struct {
	PostalCode string `json:"postalCode"`
	Street     string `json:"street,omitempty"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
}

// Response is the answer of a lookup service that was reached. Found is false
// when the service reports the code does not exist.
type Response struct {
	Found   bool
	Address Address
}

// Lookup confirms a postal code against a remote service. Implementations
// return an error only when the service could not answer.
type Lookup interface {
	Lookup(ctx context.Context, postalCode string) (Response, error)
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc func(ctx context.Context, postalCode string) (Response, error)

// Lookup implements Lookup.
func (fn LookupFunc) Lookup(ctx context.Context, postalCode string) (Response, error) {
	return fn(ctx, postalCode)
}

// Status is the verification state of the current postal code.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusConfirmed
	StatusNotFound
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPending:
		return "pending"
	case StatusConfirmed:
		return "confirmed"
	case StatusNotFound:
		return "not_found"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Request identifies one issued lookup. Seq increases with every Issue and
// Invalidate so only the newest request can be applied.
type Request struct {
	Seq        uint64
	PostalCode string
}

// Outcome is the result of a lookup, delivered back to the verifier's owner.
type Outcome struct {
	Request
	Status  Status
	Address Address
	Err     error
	Latency time.Duration
}

// Observer receives lookup lifecycle events.
type Observer interface {
	LookupIssued()
	LookupApplied(status Status, latency time.Duration)
	LookupDiscarded()
}

type nopObserver struct{}

func (nopObserver) LookupIssued()                      {}
func (nopObserver) LookupApplied(Status, time.Duration) {}
func (nopObserver) LookupDiscarded()                   {}
