package mask

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-formflow/pkg/model"
)

// Built-in masker identifiers.
const (
	MaskPhone      = "phone"
	MaskPostalCode = "postalCode"
	MaskToken      = "token"
	MaskText       = "text"
)

// MetadataKey is the field metadata entry that pins a masker explicitly.
const MetadataKey = "mask"

// Matcher decides whether a masker should handle the supplied field.
type Matcher func(field model.Field) bool

type rule struct {
	name     string
	priority int
	match    Matcher
	order    int
}

// Registry selects a masker for each field. An explicit "mask" metadata
// entry wins; otherwise the highest-priority matching rule is used, ties
// falling back to registration order. Fields nothing matches use Text.
type Registry struct {
	mu      sync.RWMutex
	rules   []rule
	maskers map[string]Func
}

// NewRegistry constructs a registry with the built-in maskers registered.
func NewRegistry() *Registry {
	reg := &Registry{maskers: make(map[string]Func)}
	reg.registerBuiltins()
	return reg
}

// Register adds a named masker with a matcher and priority. Registering an
// existing name replaces its function; the latest matcher wins on ties.
func (r *Registry) Register(name string, priority int, fn Func, matcher Matcher) {
	if r == nil || fn == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maskers == nil {
		r.maskers = make(map[string]Func)
	}
	r.maskers[trimmed] = fn
	if matcher == nil {
		return
	}
	r.rules = append(r.rules, rule{
		name:     trimmed,
		priority: priority,
		match:    matcher,
		order:    len(r.rules),
	})
}

// Resolve returns the masker name and function for a field.
func (r *Registry) Resolve(field model.Field) (string, Func) {
	if r == nil {
		return MaskText, textFunc
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if explicit := strings.TrimSpace(field.Metadata[MetadataKey]); explicit != "" {
		if fn, ok := r.maskers[explicit]; ok {
			return explicit, fn
		}
	}

	rules := append([]rule(nil), r.rules...)
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order > rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if entry.match(field) {
			if fn, ok := r.maskers[entry.name]; ok {
				return entry.name, fn
			}
		}
	}
	return MaskText, textFunc
}

// Apply masks raw input for field given its previous value.
func (r *Registry) Apply(field model.Field, previous, raw string) string {
	_, fn := r.Resolve(field)
	return fn(previous, raw)
}

// Decorate implements model.Decorator, recording the resolved masker in each
// field's metadata so renderers can pick matching keyboards or hints.
func (r *Registry) Decorate(form *model.FormModel) error {
	if r == nil || form == nil {
		return nil
	}
	for idx := range form.Fields {
		name, _ := r.Resolve(form.Fields[idx])
		if form.Fields[idx].Metadata == nil {
			form.Fields[idx].Metadata = make(map[string]string)
		}
		form.Fields[idx].Metadata[MetadataKey] = name
	}
	return nil
}

func (r *Registry) registerBuiltins() {
	r.Register(MaskText, 0, textFunc, nil)
	r.Register(MaskPhone, 10, phoneFunc, kindIs(model.FieldKindPhone))
	r.Register(MaskPostalCode, 10, postalFunc, kindIs(model.FieldKindPostalCode))
	r.Register(MaskToken, 10, tokenFunc, kindIs(model.FieldKindToken))
}

func kindIs(kind model.FieldKind) Matcher {
	return func(field model.Field) bool {
		return field.Kind == kind
	}
}
