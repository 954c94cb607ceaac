package model

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed forms/*.yaml
var builtinForms embed.FS

var (
	builtinOnce     sync.Once
	builtinRegistry *Registry
	builtinErr      error
)

// Registry holds form definitions keyed by ID.
type Registry struct {
	forms map[string]FormModel
}

// Builtin returns the embedded sign-up, password-reset and login forms. The
// definitions are parsed once.
func Builtin() (*Registry, error) {
	builtinOnce.Do(func() {
		sub, err := fs.Sub(builtinForms, "forms")
		if err != nil {
			builtinErr = fmt.Errorf("model: embedded forms: %w", err)
			return
		}
		builtinRegistry, builtinErr = LoadFS(sub)
	})
	return builtinRegistry, builtinErr
}

// MustBuiltin panics when the embedded definitions are invalid.
func MustBuiltin() *Registry {
	reg, err := Builtin()
	if err != nil {
		panic(err)
	}
	return reg
}

// LoadFS walks fsys and parses every YAML/JSON form definition. A nil fsys
// yields an empty registry.
func LoadFS(fsys fs.FS) (*Registry, error) {
	reg := &Registry{forms: make(map[string]FormModel)}
	if fsys == nil {
		return reg, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDefinitionFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("model: read %s: %w", path, err)
		}

		form, err := ParseForm(data)
		if err != nil {
			return fmt.Errorf("model: %s: %w", path, err)
		}
		if _, exists := reg.forms[form.ID]; exists {
			return fmt.Errorf("model: duplicate form %q (file %s)", form.ID, path)
		}
		reg.forms[form.ID] = form
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// ParseForm decodes and validates a single form definition.
func ParseForm(data []byte) (FormModel, error) {
	var form FormModel
	if err := yaml.Unmarshal(data, &form); err != nil {
		return FormModel{}, fmt.Errorf("decode: %w", err)
	}
	form.ID = strings.TrimSpace(form.ID)
	if err := validateForm(form); err != nil {
		return FormModel{}, err
	}
	return form, nil
}

// Form returns the definition with the given ID.
func (r *Registry) Form(id string) (FormModel, bool) {
	if r == nil {
		return FormModel{}, false
	}
	form, ok := r.forms[id]
	return form, ok
}

// IDs lists the registered form IDs in sorted order.
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.forms))
	for id := range r.forms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func isDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}

var (
	errFormIDMissing    = errors.New("form id is required")
	errFormFieldsEmpty  = errors.New("form declares no fields")
	errFieldNameMissing = errors.New("field name is required")
)

func validateForm(form FormModel) error {
	if form.ID == "" {
		return errFormIDMissing
	}
	if len(form.Fields) == 0 {
		return errFormFieldsEmpty
	}

	names := make(map[string]struct{}, len(form.Fields))
	for _, field := range form.Fields {
		if strings.TrimSpace(field.Name) == "" {
			return errFieldNameMissing
		}
		if _, dup := names[field.Name]; dup {
			return fmt.Errorf("duplicate field %q", field.Name)
		}
		names[field.Name] = struct{}{}
	}

	lookups := 0
	for _, field := range form.Fields {
		if !field.Kind.Known() {
			return fmt.Errorf("field %q: unknown kind %q", field.Name, field.Kind)
		}
		for _, rule := range field.Validations {
			if err := validateRule(rule, names); err != nil {
				return fmt.Errorf("field %q: %w", field.Name, err)
			}
			if rule.Kind == ValidationRuleLookup {
				lookups++
			}
		}
	}
	if lookups > 1 {
		return errors.New("at most one field may declare a lookup rule")
	}
	return nil
}

func validateRule(rule ValidationRule, fields map[string]struct{}) error {
	switch rule.Kind {
	case ValidationRulePattern:
		expr := rule.Params["pattern"]
		if expr == "" {
			return errors.New("pattern rule requires a pattern")
		}
		if _, err := regexp.Compile(expr); err != nil {
			return fmt.Errorf("pattern rule: %w", err)
		}
		if norm := rule.Params["normalize"]; norm != "" && norm != "nfc" {
			return fmt.Errorf("pattern rule: unsupported normalization %q", norm)
		}
	case ValidationRuleDigits:
		if n, err := strconv.Atoi(rule.Params["value"]); err != nil || n <= 0 {
			return fmt.Errorf("digits rule: invalid value %q", rule.Params["value"])
		}
	case ValidationRulePasswordStrength:
		if raw := rule.Params["minLength"]; raw != "" {
			if n, err := strconv.Atoi(raw); err != nil || n <= 0 {
				return fmt.Errorf("passwordStrength rule: invalid minLength %q", raw)
			}
		}
	case ValidationRuleMatchesField:
		other := rule.Params["field"]
		if _, ok := fields[other]; !ok {
			return fmt.Errorf("matchesField rule: unknown field %q", other)
		}
	case ValidationRuleLookup:
		if service := rule.Params["service"]; service != "postal" {
			return fmt.Errorf("lookup rule: unsupported service %q", service)
		}
	default:
		return fmt.Errorf("unknown rule kind %q", rule.Kind)
	}
	return nil
}
