package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const maxErrorBody = 4 << 10

// HTTPOption customises an HTTP sink.
type HTTPOption func(*HTTP)

// WithHTTPClient overrides the client used for submissions.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(h *HTTP) {
		if client != nil {
			h.client = client
		}
	}
}

// WithContract sets the contract used to route and check payloads.
func WithContract(contract *Contract) HTTPOption {
	return func(h *HTTP) {
		if contract != nil {
			h.contract = contract
		}
	}
}

// WithLogger routes submission diagnostics to logger.
func WithLogger(logger *slog.Logger) HTTPOption {
	return func(h *HTTP) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// HTTP posts accepted payloads as JSON to the endpoint the contract declares
// for their operation.
type HTTP struct {
	baseURL  string
	client   *http.Client
	contract *Contract
	logger   *slog.Logger
}

// NewHTTP builds an HTTP sink rooted at baseURL. Without WithContract the
// built-in contract is used.
func NewHTTP(baseURL string, opts ...HTTPOption) (*HTTP, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errors.New("sink: base url is required")
	}
	h := &HTTP{
		baseURL: trimmed,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.contract == nil {
		contract, err := BuiltinContract()
		if err != nil {
			return nil, err
		}
		h.contract = contract
	}
	return h, nil
}

// Submit implements Sink.
func (h *HTTP) Submit(ctx context.Context, payload Payload) error {
	if err := h.contract.Check(payload); err != nil {
		return err
	}
	ep, _ := h.contract.Endpoint(payload.Operation)

	body, err := json.Marshal(payload.Fields)
	if err != nil {
		return fmt.Errorf("sink: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, ep.method(), h.baseURL+ep.Path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sink: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("sink: %s %s: %w", ep.method(), ep.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		h.logger.Warn("submission rejected by remote",
			"operation", payload.Operation, "status", resp.StatusCode)
		var cause error
		if msg := strings.TrimSpace(string(snippet)); msg != "" {
			cause = fmt.Errorf("sink: %s: %s", http.StatusText(resp.StatusCode), msg)
		}
		return StatusError{Code: resp.StatusCode, Err: cause}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	h.logger.Info("submission delivered", "operation", payload.Operation, "status", resp.StatusCode)
	return nil
}
