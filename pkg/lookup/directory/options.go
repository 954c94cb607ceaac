package directory

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/goliatone/go-formflow/pkg/sink"
	"github.com/goliatone/go-formflow/pkg/verify"
)

// GuardFunc can reject a request before it is served. Errors implementing
// HTTPError choose the response status; anything else yields 403.
type GuardFunc func(r *http.Request) error

// Options configures the directory service.
type Options struct {
	// Entries maps eight-digit codes to addresses. Nil means the built-in
	// seed; an empty map answers every code with not found.
	Entries map[string]verify.Address
	// Latency is added before every lookup answer, to exercise pending
	// states in clients.
	Latency  time.Duration
	Guard    GuardFunc
	Contract *sink.Contract
	Logger   *slog.Logger
}

type OptionFn func(*Options)

func DefaultOptions() Options {
	return Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	if opts.Latency < 0 {
		opts.Latency = 0
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Entries != nil {
		copied := make(map[string]verify.Address, len(opts.Entries))
		for code, addr := range opts.Entries {
			copied[code] = addr
		}
		opts.Entries = copied
	}
	return opts
}

func WithEntries(entries map[string]verify.Address) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Entries = entries
	}
}

func WithLatency(d time.Duration) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Latency = d
	}
}

func WithGuard(guard GuardFunc) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Guard = guard
	}
}

// WithContract mounts a submission endpoint for every contract operation.
func WithContract(contract *sink.Contract) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Contract = contract
	}
}

func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Logger = logger
	}
}
