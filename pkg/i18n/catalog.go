package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultLocale is used when neither the requested locale nor its base
// language defines a key.
const DefaultLocale = "pt-BR"

//go:embed locales/*.yaml
var embeddedLocales embed.FS

var (
	builtinOnce    sync.Once
	builtinCatalog *Catalog
	builtinErr     error
)

// Catalog is an in-memory Translator backed by per-locale YAML files. Nested
// keys are flattened with dots, so `errors: {required: ...}` becomes
// "errors.required".
type Catalog struct {
	defaultLocale string
	messages      map[string]map[string]string
}

// CatalogOption customises a Catalog.
type CatalogOption func(*Catalog)

// WithDefaultLocale sets the last locale tried during fallback.
func WithDefaultLocale(locale string) CatalogOption {
	return func(c *Catalog) {
		if trimmed := strings.TrimSpace(locale); trimmed != "" {
			c.defaultLocale = trimmed
		}
	}
}

// Builtin returns the catalog compiled into the binary.
func Builtin() (*Catalog, error) {
	builtinOnce.Do(func() {
		sub, err := fs.Sub(embeddedLocales, "locales")
		if err != nil {
			builtinErr = err
			return
		}
		builtinCatalog, builtinErr = LoadFS(sub)
	})
	return builtinCatalog, builtinErr
}

// MustBuiltin is Builtin for package initialisation paths.
func MustBuiltin() *Catalog {
	catalog, err := Builtin()
	if err != nil {
		panic(err)
	}
	return catalog
}

// LoadFS reads every <locale>.yaml (or .yml) file at the root of fsys.
func LoadFS(fsys fs.FS, opts ...CatalogOption) (*Catalog, error) {
	c := &Catalog{
		defaultLocale: DefaultLocale,
		messages:      make(map[string]map[string]string),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("i18n: read locales: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := path.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		data, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("i18n: %s: %w", entry.Name(), err)
		}
		if err := c.Add(strings.TrimSuffix(entry.Name(), ext), data); err != nil {
			return nil, fmt.Errorf("i18n: %s: %w", entry.Name(), err)
		}
	}
	return c, nil
}

// Add merges a YAML document into locale, overriding existing keys.
func (c *Catalog) Add(locale string, data []byte) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	if c.messages == nil {
		c.messages = make(map[string]map[string]string)
	}
	dst := c.messages[locale]
	if dst == nil {
		dst = make(map[string]string)
		c.messages[locale] = dst
	}
	flatten("", raw, dst)
	return nil
}

// Locales lists the loaded locales in sorted order.
func (c *Catalog) Locales() []string {
	out := make([]string, 0, len(c.messages))
	for locale := range c.messages {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// Translate implements Translator. It tries locale, then its base language
// ("pt" for "pt-BR"), then the catalog default. When args are supplied the
// message is used as a format string.
func (c *Catalog) Translate(locale, key string, args ...any) (string, error) {
	if c == nil {
		return "", ErrMissingTranslator
	}
	for _, candidate := range c.chain(locale) {
		if msg, ok := c.messages[candidate][key]; ok {
			if len(args) > 0 {
				return fmt.Sprintf(msg, args...), nil
			}
			return msg, nil
		}
	}
	return "", fmt.Errorf("%w: %s (%s)", ErrMissingTranslation, key, locale)
}

// TranslateFirst returns the first of keys defined for the most specific
// locale in the fallback chain. A generic key in the requested locale beats a
// specific key that only exists in a fallback locale.
func (c *Catalog) TranslateFirst(locale string, keys ...string) (string, error) {
	if c == nil {
		return "", ErrMissingTranslator
	}
	for _, candidate := range c.chain(locale) {
		for _, key := range keys {
			if msg, ok := c.messages[candidate][key]; ok {
				return msg, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s (%s)", ErrMissingTranslation, strings.Join(keys, "|"), locale)
}

func (c *Catalog) chain(locale string) []string {
	locale = strings.TrimSpace(locale)
	out := make([]string, 0, 3)
	add := func(candidate string) {
		if candidate == "" {
			return
		}
		for _, existing := range out {
			if existing == candidate {
				return
			}
		}
		out = append(out, candidate)
	}
	add(locale)
	if base, _, ok := strings.Cut(locale, "-"); ok {
		add(base)
	}
	add(c.defaultLocale)
	return out
}

func flatten(prefix string, in map[string]any, dst map[string]string) {
	for key, value := range in {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		switch typed := value.(type) {
		case map[string]any:
			flatten(full, typed, dst)
		case string:
			dst[full] = typed
		case nil:
		default:
			dst[full] = fmt.Sprint(typed)
		}
	}
}
