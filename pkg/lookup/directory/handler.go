// Package directory serves a ViaCEP-compatible postal code directory from an
// in-memory table, plus optional submission endpoints checked against a
// sink.Contract. It backs local development and end-to-end tests.
package directory

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/goliatone/go-formflow/pkg/sink"
	"github.com/goliatone/go-formflow/pkg/verify"
)

type HTTPError interface {
	error
	StatusCode() int
}

type lookupResponse struct {
	CEP         string `json:"cep,omitempty"`
	Logradouro  string `json:"logradouro,omitempty"`
	Complemento string `json:"complemento,omitempty"`
	Bairro      string `json:"bairro,omitempty"`
	Localidade  string `json:"localidade,omitempty"`
	UF          string `json:"uf,omitempty"`
	Erro        bool   `json:"erro,omitempty"`
}

type submitResponse struct {
	ID        string `json:"id"`
	Operation string `json:"operation"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewRouter builds the directory routes with default options plus overrides:
//
//	GET  /health
//	GET  /ws/{cep}/json/
//	POST <contract paths>   (when WithContract is set)
func NewRouter(fns ...OptionFn) (*mux.Router, error) {
	return RouterWithOptions(NewOptions(fns...))
}

// RouterWithOptions builds the router from a pre-constructed Options value.
func RouterWithOptions(opts Options) (*mux.Router, error) {
	opts = NewOptions(func(o *Options) { *o = opts })
	entries := opts.Entries
	if entries == nil {
		loaded, err := DefaultEntries()
		if err != nil {
			return nil, err
		}
		entries = loaded
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	lookup := guarded(opts.Guard, lookupHandler(entries, opts))
	r.Handle("/ws/{cep:[0-9]{8}}/json/", lookup).Methods(http.MethodGet, http.MethodHead)
	r.Handle("/ws/{cep:[0-9]{8}}/json", lookup).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/ws/{cep}/json/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "postal code must have 8 digits"})
	}).Methods(http.MethodGet, http.MethodHead)

	if opts.Contract != nil {
		for _, operation := range opts.Contract.Operations() {
			ep, _ := opts.Contract.Endpoint(operation)
			r.Handle(ep.Path, guarded(opts.Guard, submitHandler(operation, opts))).Methods(ep.Method)
		}
	}
	return r, nil
}

func lookupHandler(entries map[string]verify.Address, opts Options) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := mux.Vars(r)["cep"]
		if opts.Latency > 0 {
			timer := time.NewTimer(opts.Latency)
			select {
			case <-timer.C:
			case <-r.Context().Done():
				timer.Stop()
				return
			}
		}

		addr, ok := entries[code]
		opts.Logger.Debug("directory lookup", "postal_code", code, "found", ok)
		if !ok {
			writeJSON(w, http.StatusOK, lookupResponse{Erro: true})
			return
		}
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			return
		}
		writeJSON(w, http.StatusOK, lookupResponse{
			CEP:         code[:5] + "-" + code[5:],
			Logradouro:  addr.Street,
			Complemento: addr.Complement,
			Bairro:      addr.District,
			Localidade:  addr.City,
			UF:          addr.State,
		})
	})
}

func submitHandler(operation string, opts Options) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var fields map[string]string
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&fields); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed JSON body"})
			return
		}
		if err := opts.Contract.Check(sink.Payload{Operation: operation, Fields: fields}); err != nil {
			opts.Logger.Info("submission rejected", "operation", operation, "error", err)
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
			return
		}
		id := uuid.NewString()
		opts.Logger.Info("submission accepted", "operation", operation, "id", id)
		writeJSON(w, http.StatusCreated, submitResponse{ID: id, Operation: operation})
	})
}

func guarded(guard GuardFunc, next http.Handler) http.Handler {
	if guard == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := guard(r); err != nil {
			writeGuardError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeGuardError(w http.ResponseWriter, err error) {
	code := http.StatusForbidden
	var httpErr HTTPError
	if errors.As(err, &httpErr) && httpErr != nil {
		if c := httpErr.StatusCode(); c > 0 {
			code = c
		}
	}
	http.Error(w, http.StatusText(code), code)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}
