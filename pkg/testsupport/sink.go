package testsupport

import (
	"context"
	"sync"

	"github.com/goliatone/go-formflow/pkg/sink"
)

// RecordingSink captures accepted payloads. Err, when set, is returned from
// every Submit after the payload is recorded.
type RecordingSink struct {
	mu       sync.Mutex
	payloads []sink.Payload
	Err      error
}

// Submit implements sink.Sink.
func (s *RecordingSink) Submit(_ context.Context, payload sink.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, payload)
	return s.Err
}

// Payloads returns every recorded payload.
func (s *RecordingSink) Payloads() []sink.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sink.Payload(nil), s.payloads...)
}

// Count returns how many payloads were recorded.
func (s *RecordingSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}
