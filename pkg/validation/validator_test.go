package validation

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/model"
)

func signupForm(t *testing.T) model.FormModel {
	t.Helper()
	form, ok := model.MustBuiltin().Form(model.FormSignUp)
	if !ok {
		t.Fatalf("signup form not registered")
	}
	return form
}

func validSignup() map[string]string {
	return map[string]string{
		model.FieldName:            "José da Silva",
		model.FieldEmail:           "jose@example.com",
		model.FieldBirthDate:       "07/03/1990",
		model.FieldPhone:           "(11) 98765-4321",
		model.FieldPostalCode:      "01310100",
		model.FieldPassword:        "Abc123!x",
		model.FieldConfirmPassword: "Abc123!x",
	}
}

func kinds(results map[string]Result) map[string]form.ErrorKind {
	out := make(map[string]form.ErrorKind, len(results))
	for field, result := range results {
		out[field] = result.Kind
	}
	return out
}

func TestValidate_AllEmptyReportsRequiredEverywhere(t *testing.T) {
	f := signupForm(t)
	got := kinds(New().Validate(f, form.NewSnapshot(nil)))

	want := make(map[string]form.ErrorKind)
	for _, name := range f.FieldNames() {
		want[name] = form.KindRequired
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected results (-want +got):\n%s", diff)
	}
}

func TestValidate_ValidSignupNeedsOnlyVerification(t *testing.T) {
	results := New().Validate(signupForm(t), form.NewSnapshot(validSignup()))
	for field, result := range results {
		if !result.OK() {
			t.Fatalf("field %s: unexpected %q", field, result.Kind)
		}
		if result.Verify != (field == model.FieldPostalCode) {
			t.Fatalf("field %s: verify=%v", field, result.Verify)
		}
	}
}

func TestValidateField_Rules(t *testing.T) {
	f := signupForm(t)
	v := New()

	cases := []struct {
		name  string
		field string
		value string
		want  form.ErrorKind
	}{
		{name: "name with digits", field: model.FieldName, value: "Ana 2", want: form.KindInvalidFormat},
		{name: "name blank", field: model.FieldName, value: "   ", want: form.KindRequired},
		{name: "name decomposed accent", field: model.FieldName, value: "Jose\u0301", want: form.KindNone},
		{name: "email missing dot", field: model.FieldEmail, value: "ana@example", want: form.KindInvalidFormat},
		{name: "email with space", field: model.FieldEmail, value: "ana @example.com", want: form.KindInvalidFormat},
		{name: "phone partial", field: model.FieldPhone, value: "(11) 98765", want: form.KindWrongLength},
		{name: "postal seven digits", field: model.FieldPostalCode, value: "0131010", want: form.KindWrongLength},
		{name: "password without symbol", field: model.FieldPassword, value: "abc12345", want: form.KindTooWeak},
		{name: "password too short", field: model.FieldPassword, value: "Ab1!", want: form.KindTooWeak},
		{name: "password strong", field: model.FieldPassword, value: "Abc123!x", want: form.KindNone},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			values := validSignup()
			values[tc.field] = tc.value
			field, _ := f.Field(tc.field)
			if got := v.ValidateField(field, form.NewSnapshot(values)); got.Kind != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got.Kind)
			}
		})
	}
}

func TestValidate_ConfirmPasswordMismatch(t *testing.T) {
	f := signupForm(t)
	v := New()

	values := validSignup()
	values[model.FieldConfirmPassword] = "Abc123!y"
	got := v.Validate(f, form.NewSnapshot(values))
	if got[model.FieldConfirmPassword].Kind != form.KindMismatch {
		t.Fatalf("expected mismatch, got %q", got[model.FieldConfirmPassword].Kind)
	}
	if !got[model.FieldPassword].OK() {
		t.Fatalf("password itself should pass, got %q", got[model.FieldPassword].Kind)
	}

	// A weak password that the confirmation repeats reports only on password.
	values[model.FieldPassword] = "abc12345"
	values[model.FieldConfirmPassword] = "abc12345"
	got = v.Validate(f, form.NewSnapshot(values))
	if got[model.FieldPassword].Kind != form.KindTooWeak {
		t.Fatalf("expected too weak, got %q", got[model.FieldPassword].Kind)
	}
	if !got[model.FieldConfirmPassword].OK() {
		t.Fatalf("matching confirmation should pass, got %q", got[model.FieldConfirmPassword].Kind)
	}
}

func TestValidateField_OptionalEmptySkipsRules(t *testing.T) {
	field := model.Field{
		Name: "nickname",
		Kind: model.FieldKindText,
		Validations: []model.ValidationRule{
			{Kind: model.ValidationRulePattern, Params: map[string]string{"pattern": `^\d+$`}},
		},
	}
	if got := New().ValidateField(field, form.NewSnapshot(nil)); !got.OK() || got.Verify {
		t.Fatalf("expected optional empty field to pass, got %+v", got)
	}
}

func TestValidateField_OrdersPhases(t *testing.T) {
	field := model.Field{
		Name:     "code",
		Kind:     model.FieldKindPostalCode,
		Required: true,
		Validations: []model.ValidationRule{
			{Kind: model.ValidationRuleLookup, Params: map[string]string{"service": "postal"}},
			{Kind: model.ValidationRuleMatchesField, Params: map[string]string{"field": "other"}},
			{Kind: model.ValidationRuleDigits, Params: map[string]string{"value": "8"}},
		},
	}
	snap := form.NewSnapshot(map[string]string{"code": "123", "other": "456"})
	if got := New().ValidateField(field, snap); got.Kind != form.KindWrongLength {
		t.Fatalf("expected length check before cross-field check, got %q", got.Kind)
	}
}

func TestPasswordStrong(t *testing.T) {
	cases := map[string]bool{
		"Abc123!x":  true,
		"ção1234#":  true,
		"ABCDEFG1":  false,
		"abc!defg":  false,
		"12345678!": false,
		"Ab1 cdefg": false,
	}
	for value, want := range cases {
		if got := PasswordStrong(value, DefaultPasswordMinLength); got != want {
			t.Fatalf("PasswordStrong(%q) = %v, want %v", value, got, want)
		}
	}
}
