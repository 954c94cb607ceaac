package sink

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var builtinDocument []byte

var (
	builtinOnce     sync.Once
	builtinContract *Contract
	builtinErr      error
)

// ErrContractViolation wraps schema failures reported by Check.
var ErrContractViolation = errors.New("sink: payload violates contract")

// Endpoint is one submit target declared by the contract.
type Endpoint struct {
	OperationID string
	Method      string
	Path        string
	schema      *openapi3.Schema
}

// Contract maps operation ids to endpoints and their request body schemas.
type Contract struct {
	endpoints map[string]Endpoint
}

// BuiltinContract returns the contract shipped with the module.
func BuiltinContract() (*Contract, error) {
	builtinOnce.Do(func() {
		builtinContract, builtinErr = LoadContract(context.Background(), builtinDocument)
	})
	return builtinContract, builtinErr
}

// LoadContract parses an OpenAPI 3 document. Operations without an
// operationId or without a JSON request body are ignored.
func LoadContract(ctx context.Context, data []byte) (*Contract, error) {
	if len(data) == 0 {
		return nil, errors.New("sink: contract document is empty")
	}
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("sink: load contract: %w", err)
	}
	if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, fmt.Errorf("sink: validate contract: %w", err)
	}

	c := &Contract{endpoints: make(map[string]Endpoint)}
	if doc.Paths != nil {
		for path, item := range doc.Paths.Map() {
			if item == nil {
				continue
			}
			for method, op := range item.Operations() {
				c.collect(method, path, op)
			}
		}
	}
	if len(c.endpoints) == 0 {
		return nil, errors.New("sink: contract declares no operations")
	}
	return c, nil
}

func (c *Contract) collect(method, path string, op *openapi3.Operation) {
	if op == nil || op.OperationID == "" || op.RequestBody == nil || op.RequestBody.Value == nil {
		return
	}
	mt := op.RequestBody.Value.Content.Get("application/json")
	if mt == nil || mt.Schema == nil || mt.Schema.Value == nil {
		return
	}
	c.endpoints[op.OperationID] = Endpoint{
		OperationID: op.OperationID,
		Method:      strings.ToUpper(method),
		Path:        path,
		schema:      mt.Schema.Value,
	}
}

// Operations lists the declared operation ids in sorted order.
func (c *Contract) Operations() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.endpoints))
	for id := range c.endpoints {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Endpoint returns the endpoint for an operation id.
func (c *Contract) Endpoint(operation string) (Endpoint, bool) {
	if c == nil {
		return Endpoint{}, false
	}
	ep, ok := c.endpoints[operation]
	return ep, ok
}

// Check validates payload fields against the operation's request schema.
func (c *Contract) Check(payload Payload) error {
	ep, ok := c.Endpoint(payload.Operation)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOperation, payload.Operation)
	}
	body := make(map[string]any, len(payload.Fields))
	for key, value := range payload.Fields {
		body[key] = value
	}
	if err := ep.schema.VisitJSON(body); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrContractViolation, payload.Operation, err)
	}
	return nil
}

func (ep Endpoint) method() string {
	if ep.Method == "" {
		return http.MethodPost
	}
	return ep.Method
}
