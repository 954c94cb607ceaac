package i18n

import (
	"strings"

	"github.com/goliatone/go-formflow/pkg/form"
)

var defaultErrorMessages = map[form.ErrorKind]string{
	form.KindRequired:      "This field is required.",
	form.KindInvalidFormat: "Invalid format.",
	form.KindWrongLength:   "Invalid length.",
	form.KindTooWeak:       "Password is too weak.",
	form.KindMismatch:      "Values do not match.",
	form.KindNotFound:      "Not found.",
	form.KindLookupFailed:  "Could not verify right now. Please try again.",
}

// firstTranslator is implemented by translators that can resolve a list of
// candidate keys per locale in one pass.
type firstTranslator interface {
	TranslateFirst(locale string, keys ...string) (string, error)
}

// Messages turns error kinds and field names into display strings.
type Messages struct {
	translator Translator
	onMissing  MissingTranslationHandler
}

// NewMessages wraps t. A nil t yields the built-in English defaults.
func NewMessages(t Translator, onMissing MissingTranslationHandler) *Messages {
	if onMissing == nil {
		onMissing = DefaultMissing
	}
	return &Messages{translator: t, onMissing: onMissing}
}

// FieldError returns the message for kind on field. Keys are tried as
// "errors.<field>.<kind>" then "errors.<kind>".
func (m *Messages) FieldError(locale, field string, kind form.ErrorKind) form.FieldError {
	if kind == form.KindNone {
		return form.FieldError{}
	}
	fallback := defaultErrorMessages[kind]
	if fallback == "" {
		fallback = string(kind)
	}
	if m == nil {
		return form.FieldError{Kind: kind, Message: fallback}
	}

	keys := []string{"errors." + field + "." + string(kind), "errors." + string(kind)}
	if ft, ok := m.translator.(firstTranslator); ok {
		if msg, err := ft.TranslateFirst(locale, keys...); err == nil && strings.TrimSpace(msg) != "" {
			return form.FieldError{Kind: kind, Message: msg}
		}
		return form.FieldError{Kind: kind, Message: m.missing(locale, keys[1], fallback)}
	}
	if m.translator != nil {
		for _, key := range keys {
			if msg, err := m.translator.Translate(locale, key); err == nil && strings.TrimSpace(msg) != "" {
				return form.FieldError{Kind: kind, Message: msg}
			}
		}
	}
	return form.FieldError{Kind: kind, Message: m.missing(locale, keys[1], fallback)}
}

// Label returns the display label for field, or fallback.
func (m *Messages) Label(locale, field, fallback string) string {
	if m == nil {
		if fallback != "" {
			return fallback
		}
		return field
	}
	if fallback == "" {
		fallback = field
	}
	return Translate(m.translator, locale, "labels."+field, fallback, m.onMissing)
}

// Text translates an arbitrary key.
func (m *Messages) Text(locale, key, fallback string) string {
	if m == nil {
		return fallback
	}
	return Translate(m.translator, locale, key, fallback, m.onMissing)
}

func (m *Messages) missing(locale, key, fallback string) string {
	err := ErrMissingTranslation
	if m.translator == nil {
		err = ErrMissingTranslator
	}
	return m.onMissing(locale, key, []any{map[string]any{"default": fallback}}, err)
}
