package model

// FieldKind is the semantic kind of an input. It decides which masker applies
// and how the value is canonicalised for submission.
type FieldKind string

const (
	FieldKindText       FieldKind = "text"
	FieldKindEmail      FieldKind = "email"
	FieldKindDate       FieldKind = "date"
	FieldKindPhone      FieldKind = "phone"
	FieldKindPostalCode FieldKind = "postalCode"
	FieldKindPassword   FieldKind = "password"
	FieldKindToken      FieldKind = "token"
)

// Known reports whether the kind is one of the declared kinds.
func (k FieldKind) Known() bool {
	switch k {
	case FieldKindText, FieldKindEmail, FieldKindDate, FieldKindPhone,
		FieldKindPostalCode, FieldKindPassword, FieldKindToken:
		return true
	default:
		return false
	}
}

// Secret reports whether values of this kind must be masked on screen and
// kept out of logs.
func (k FieldKind) Secret() bool {
	return k == FieldKindPassword
}

const (
	ValidationRulePattern          = "pattern"
	ValidationRuleDigits           = "digits"
	ValidationRulePasswordStrength = "passwordStrength"
	ValidationRuleMatchesField     = "matchesField"
	ValidationRuleLookup           = "lookup"
)

// Field names used by the built-in forms.
const (
	FieldName            = "name"
	FieldEmail           = "email"
	FieldBirthDate       = "birthDate"
	FieldPhone           = "phone"
	FieldPostalCode      = "postalCode"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
	FieldToken           = "token"
)

// Built-in form identifiers.
const (
	FormSignUp        = "signup"
	FormPasswordReset = "password-reset"
	FormLogin         = "login"
)

// ValidationRule is a single constraint applied after the required check.
// Parameters are strings so definitions stay declarative:
//
//   - pattern: Params["pattern"] holds the expression, Params["normalize"]
//     may be "nfc" to normalise the value before matching.
//   - digits: Params["value"] is the exact digit count.
//   - passwordStrength: Params["minLength"] is the minimum rune count.
//   - matchesField: Params["field"] names the field that must be equal.
//   - lookup: Params["service"] names the remote check (only "postal").
type ValidationRule struct {
	Kind   string            `json:"kind" yaml:"kind"`
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

// Field describes one input of a form.
type Field struct {
	Name        string            `json:"name" yaml:"name"`
	Kind        FieldKind         `json:"kind" yaml:"kind"`
	Required    bool              `json:"required" yaml:"required"`
	Label       string            `json:"label,omitempty" yaml:"label,omitempty"`
	Placeholder string            `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	// Transient fields only take part in validation and are never submitted
	// (confirm-password, for example).
	Transient   bool              `json:"transient,omitempty" yaml:"transient,omitempty"`
	Validations []ValidationRule  `json:"validations,omitempty" yaml:"validations,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Rule returns the first validation rule of the given kind.
func (f Field) Rule(kind string) (ValidationRule, bool) {
	for _, rule := range f.Validations {
		if rule.Kind == kind {
			return rule, true
		}
	}
	return ValidationRule{}, false
}

// NeedsLookup reports whether the field requires remote confirmation.
func (f Field) NeedsLookup() bool {
	_, ok := f.Rule(ValidationRuleLookup)
	return ok
}

// FormModel is a declarative form: its fields in display order plus the
// operation the submission sink should perform on success.
type FormModel struct {
	ID          string            `json:"id" yaml:"id"`
	Title       string            `json:"title,omitempty" yaml:"title,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Operation   string            `json:"operation" yaml:"operation"`
	Fields      []Field           `json:"fields" yaml:"fields"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Field returns the field with the given name.
func (f FormModel) Field(name string) (Field, bool) {
	for _, field := range f.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// FieldNames returns every field name in display order.
func (f FormModel) FieldNames() []string {
	out := make([]string, 0, len(f.Fields))
	for _, field := range f.Fields {
		out = append(out, field.Name)
	}
	return out
}

// LookupField returns the field carrying a lookup rule, if any.
func (f FormModel) LookupField() (Field, bool) {
	for _, field := range f.Fields {
		if field.NeedsLookup() {
			return field, true
		}
	}
	return Field{}, false
}
