// Package viacep implements verify.Lookup against the ViaCEP postal code
// service (https://viacep.com.br).
package viacep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-formflow/pkg/mask"
	"github.com/goliatone/go-formflow/pkg/verify"
)

// DefaultBaseURL is the public ViaCEP endpoint.
const DefaultBaseURL = "https://viacep.com.br/ws"

// ErrInvalidPostalCode is returned for codes that are not eight digits; they
// are never sent to the service.
var ErrInvalidPostalCode = errors.New("viacep: postal code must have 8 digits")

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithBaseURL points the client at another ViaCEP-compatible service.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimRight(strings.TrimSpace(base), "/"); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithLogger routes request diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client queries {base}/{cep}/json/.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

var _ verify.Lookup = (*Client)(nil)

// New constructs a Client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

type response struct {
	CEP         string `json:"cep"`
	Logradouro  string `json:"logradouro"`
	Complemento string `json:"complemento"`
	Bairro      string `json:"bairro"`
	Localidade  string `json:"localidade"`
	UF          string `json:"uf"`
	Erro        any    `json:"erro"`
}

func (r response) notFound() bool {
	switch v := r.Erro.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	default:
		return false
	}
}

// Lookup implements verify.Lookup.
func (c *Client) Lookup(ctx context.Context, postalCode string) (verify.Response, error) {
	digits := mask.Digits(postalCode)
	if len(digits) != mask.PostalCodeDigits {
		return verify.Response{}, ErrInvalidPostalCode
	}
	endpoint := c.baseURL + "/" + url.PathEscape(digits) + "/json/"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return verify.Response{}, fmt.Errorf("viacep: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return verify.Response{}, fmt.Errorf("viacep: request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("viacep response", "postal_code", digits, "status", resp.StatusCode,
		"elapsed", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return verify.Response{}, fmt.Errorf("viacep: unexpected status %d", resp.StatusCode)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return verify.Response{}, fmt.Errorf("viacep: decode response: %w", err)
	}
	if payload.notFound() {
		return verify.Response{Found: false}, nil
	}
	if mask.Digits(payload.CEP) != digits {
		return verify.Response{}, fmt.Errorf("viacep: response for %q does not match request", payload.CEP)
	}
	return verify.Response{
		Found: true,
		Address: verify.Address{
			PostalCode: digits,
			Street:     payload.Logradouro,
			Complement: payload.Complemento,
			District:   payload.Bairro,
			City:       payload.Localidade,
			State:      payload.UF,
		},
	}, nil
}
