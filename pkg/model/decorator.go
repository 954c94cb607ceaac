package model

// Decorator annotates a form after it is loaded, typically by writing
// resolved hints into field metadata (the mask registry does this).
type Decorator interface {
	Decorate(*FormModel) error
}

// DecoratorFunc adapts a function into a Decorator.
type DecoratorFunc func(*FormModel) error

// Decorate calls fn.
func (fn DecoratorFunc) Decorate(form *FormModel) error {
	return fn(form)
}

// Decorate returns a copy of form with every decorator applied in order.
// The original field slice and metadata maps are left untouched.
func Decorate(form FormModel, decorators ...Decorator) (FormModel, error) {
	out := cloneForm(form)
	for _, decorator := range decorators {
		if decorator == nil {
			continue
		}
		if err := decorator.Decorate(&out); err != nil {
			return FormModel{}, err
		}
	}
	return out, nil
}

func cloneForm(form FormModel) FormModel {
	out := form
	out.Metadata = cloneStrings(form.Metadata)
	out.Fields = make([]Field, len(form.Fields))
	for idx, field := range form.Fields {
		field.Metadata = cloneStrings(field.Metadata)
		rules := make([]ValidationRule, len(field.Validations))
		for i, rule := range field.Validations {
			rules[i] = ValidationRule{Kind: rule.Kind, Params: cloneStrings(rule.Params)}
		}
		field.Validations = rules
		out.Fields[idx] = field
	}
	return out
}

func cloneStrings(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
