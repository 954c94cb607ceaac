package i18n

import (
	"errors"
	"strings"
)

var (
	// ErrMissingTranslator is passed to the missing handler when no
	// translator is configured.
	ErrMissingTranslator = errors.New("i18n: translator not configured")
	// ErrMissingTranslation is returned when no locale in the fallback chain
	// defines a key.
	ErrMissingTranslation = errors.New("i18n: missing translation")
)

// Translator resolves a message key for a locale.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// MissingTranslationHandler decides the string shown when a key cannot be
// translated. args carries a map with a "default" entry when the caller has
// a fallback.
type MissingTranslationHandler func(locale, key string, args []any, err error) string

// DefaultMissing returns the caller's default when present and the key
// otherwise.
func DefaultMissing(_ string, key string, args []any, _ error) string {
	if fallback := defaultArg(args); fallback != "" {
		return fallback
	}
	return key
}

// Translate resolves key through t, falling back to onMissing (or
// DefaultMissing) with fallback as the default.
func Translate(t Translator, locale, key, fallback string, onMissing MissingTranslationHandler) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}
	if onMissing == nil {
		onMissing = DefaultMissing
	}
	args := []any{map[string]any{"default": fallback}}
	if t == nil {
		return onMissing(locale, key, args, ErrMissingTranslator)
	}
	msg, err := t.Translate(locale, key)
	if err == nil && strings.TrimSpace(msg) != "" {
		return msg
	}
	return onMissing(locale, key, args, err)
}

func defaultArg(args []any) string {
	for _, arg := range args {
		if m, ok := arg.(map[string]any); ok {
			if s, ok := m["default"].(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return ""
}
