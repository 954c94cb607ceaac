package validation

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/mask"
	"github.com/goliatone/go-formflow/pkg/model"
)

// PasswordSymbols is the fixed set of characters that satisfy the symbol
// requirement of the password strength rule.
const PasswordSymbols = "!@#$%^&*()-_=+[]{};:'\",.<>/?\\|`~"

// DefaultPasswordMinLength applies when a passwordStrength rule omits
// minLength.
const DefaultPasswordMinLength = 8

// Result is the outcome of evaluating one field. A zero Kind means every
// synchronous check passed; Verify is then set when the value still needs
// remote confirmation before it counts as valid.
type Result struct {
	Kind   form.ErrorKind
	Verify bool
}

// OK reports whether no synchronous check failed.
func (r Result) OK() bool {
	return r.Kind == form.KindNone
}

// Validator evaluates field rules against a form snapshot. It is stateless
// apart from a cache of compiled patterns and safe for concurrent use.
type Validator struct {
	mu       sync.Mutex
	patterns map[string]*regexp.Regexp
}

// New returns a Validator.
func New() *Validator {
	return &Validator{patterns: make(map[string]*regexp.Regexp)}
}

// Validate evaluates every field of f independently so callers can surface
// all errors from one pass.
func (v *Validator) Validate(f model.FormModel, snapshot form.Snapshot) map[string]Result {
	out := make(map[string]Result, len(f.Fields))
	for _, field := range f.Fields {
		out[field.Name] = v.ValidateField(field, snapshot)
	}
	return out
}

// ValidateField evaluates a single field. Checks run in a fixed order
// (required, then format and length, then cross-field) and the first
// failure wins.
func (v *Validator) ValidateField(field model.Field, snapshot form.Snapshot) Result {
	value := snapshot.Value(field.Name)
	if strings.TrimSpace(value) == "" {
		if field.Required {
			return Result{Kind: form.KindRequired}
		}
		return Result{}
	}

	var verify bool
	for _, rule := range orderedRules(field.Validations) {
		switch rule.Kind {
		case model.ValidationRulePattern:
			if !v.matchPattern(rule, value) {
				return Result{Kind: form.KindInvalidFormat}
			}
		case model.ValidationRuleDigits:
			want, _ := strconv.Atoi(rule.Params["value"])
			if len(mask.Digits(value)) != want {
				return Result{Kind: form.KindWrongLength}
			}
		case model.ValidationRulePasswordStrength:
			if !PasswordStrong(value, minLength(rule)) {
				return Result{Kind: form.KindTooWeak}
			}
		case model.ValidationRuleMatchesField:
			if value != snapshot.Value(rule.Params["field"]) {
				return Result{Kind: form.KindMismatch}
			}
		case model.ValidationRuleLookup:
			verify = true
		}
	}
	return Result{Verify: verify}
}

// PasswordStrong reports whether value has at least minLen characters and
// contains a letter, a digit and a symbol from PasswordSymbols.
func PasswordStrong(value string, minLen int) bool {
	if utf8.RuneCountInString(value) < minLen {
		return false
	}
	var letter, digit, symbol bool
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
			digit = true
		case unicode.IsLetter(r):
			letter = true
		case strings.ContainsRune(PasswordSymbols, r):
			symbol = true
		}
	}
	return letter && digit && symbol
}

func (v *Validator) matchPattern(rule model.ValidationRule, value string) bool {
	re := v.compile(rule.Params["pattern"])
	if re == nil {
		return false
	}
	if rule.Params["normalize"] == "nfc" {
		value = norm.NFC.String(value)
	}
	return re.MatchString(value)
}

func (v *Validator) compile(expr string) *regexp.Regexp {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.patterns == nil {
		v.patterns = make(map[string]*regexp.Regexp)
	}
	if re, ok := v.patterns[expr]; ok {
		return re
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		re = nil
	}
	v.patterns[expr] = re
	return re
}

func minLength(rule model.ValidationRule) int {
	if n, err := strconv.Atoi(rule.Params["minLength"]); err == nil && n > 0 {
		return n
	}
	return DefaultPasswordMinLength
}

// orderedRules sorts rules into evaluation phases, keeping declaration order
// within a phase.
func orderedRules(rules []model.ValidationRule) []model.ValidationRule {
	out := append([]model.ValidationRule(nil), rules...)
	sort.SliceStable(out, func(i, j int) bool {
		return phase(out[i].Kind) < phase(out[j].Kind)
	})
	return out
}

func phase(kind string) int {
	switch kind {
	case model.ValidationRuleMatchesField:
		return 2
	case model.ValidationRuleLookup:
		return 3
	default:
		return 1
	}
}
