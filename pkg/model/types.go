package model

import (
	"context"
	"errors"

	"github.com/goliatone/go-formflow/pkg/values"
)

var (
	// ErrInvalidSchema marks schema validation failures.
	ErrInvalidSchema = errors.New("model: invalid schema")
	// ErrUnknownKind marks type names that do not map onto a FieldKind.
	ErrUnknownKind = errors.New("model: unknown field kind")
	// ErrUnknownField marks lookups of field ids the schema does not define.
	ErrUnknownField = errors.New("model: unknown field")
	// ErrNotInput marks value writes against section descriptors.
	ErrNotInput = errors.New("model: field does not hold a value")
)

// ChangeFunc transforms a raw value before it lands in FormData.
type ChangeFunc func(value any, schema *Schema) (any, error)

// ComputeFunc derives the ComputedData entry for a raw value.
type ComputeFunc func(ctx context.Context, value any, schema *Schema) (any, error)

// Validator returns the validation messages for a value, or none when valid.
type Validator func(ctx context.Context, value any, schema *Schema) ([]string, error)

// Condition decides whether a field is currently visible.
type Condition func(data FormData, computed ComputedData) bool

// OptionsLoader loads the option list of a field. filter carries UI search
// input (empty when the load is dependency driven) and deps the current
// values of the fields listed in DependsOn.
type OptionsLoader func(ctx context.Context, filter string, deps map[string]any) ([]Option, error)

// ValueResolver produces a field's initial value lazily.
type ValueResolver func(ctx context.Context) (any, error)

// Transform adapts a pure function into a ChangeFunc.
func Transform(fn func(value any) any) ChangeFunc {
	return func(value any, _ *Schema) (any, error) {
		return fn(value), nil
	}
}

// Compute adapts a pure function into a ComputeFunc.
func Compute(fn func(value any) any) ComputeFunc {
	return func(_ context.Context, value any, _ *Schema) (any, error) {
		return fn(value), nil
	}
}

// OptionDescription is optional descriptive text shown next to an option.
type OptionDescription struct {
	Color string `json:"color,omitempty" yaml:"color,omitempty"`
	Show  string `json:"show,omitempty" yaml:"show,omitempty"`
	Text  string `json:"text" yaml:"text"`
}

// Option is a selectable entry. For list-valued fields with Children, Other
// holds one raw sub-value per child field id.
type Option struct {
	Label       string             `json:"label" yaml:"label"`
	Value       any                `json:"value" yaml:"value"`
	Other       map[string]any     `json:"other,omitempty" yaml:"other,omitempty"`
	IsChecked   bool               `json:"isChecked,omitempty" yaml:"isChecked,omitempty"`
	Disabled    bool               `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Description *OptionDescription `json:"description,omitempty" yaml:"description,omitempty"`
}

// Field describes one schema entry.
type Field struct {
	Type        FieldKind
	Label       string
	Placeholder string

	Value   any
	Resolve ValueResolver

	Required bool
	Disabled bool
	Hidden   bool
	Multiple bool

	MinLength int
	MaxLength int
	Pattern   string

	Options       []Option
	OptionsLoader OptionsLoader
	DependsOn     []string

	OnChange      ChangeFunc
	ComputedValue ComputeFunc
	Children      *Schema

	Condition  Condition
	Validation Validator

	// Error holds the last validation message rendered for the field.
	Error string
}

// Clone returns a copy of the descriptor with values, options and children
// deep copied. Callbacks are shared.
func (f Field) Clone() Field {
	out := f
	out.Value = values.Clone(f.Value)
	if f.Options != nil {
		out.Options = CloneOptions(f.Options)
	}
	if f.DependsOn != nil {
		out.DependsOn = append([]string(nil), f.DependsOn...)
	}
	if f.Children != nil {
		out.Children = f.Children.Clone()
	}
	return out
}

// Visible evaluates the field condition. Fields without one are visible.
func (f Field) Visible(data FormData, computed ComputedData) bool {
	if f.Condition == nil {
		return true
	}
	return f.Condition(data, computed)
}

// Interactive reports whether a user can currently edit the field.
func (f Field) Interactive(data FormData, computed ComputedData) bool {
	return !f.Disabled && !f.Hidden && f.Visible(data, computed)
}

// CloneOptions deep copies an option list.
func CloneOptions(options []Option) []Option {
	if options == nil {
		return nil
	}
	out, _ := values.Clone(options).([]Option)
	return out
}

// OptionsOf interprets a raw field value as an ordered option list. Single
// options, pointers and generic maps carrying label/value keys are accepted.
func OptionsOf(value any) ([]Option, bool) {
	switch v := value.(type) {
	case []Option:
		return v, true
	case Option:
		return []Option{v}, true
	case []*Option:
		out := make([]Option, 0, len(v))
		for _, item := range v {
			if item != nil {
				out = append(out, *item)
			}
		}
		return out, true
	case []any:
		out := make([]Option, 0, len(v))
		for _, item := range v {
			opt, ok := optionFrom(item)
			if !ok {
				return nil, false
			}
			out = append(out, opt)
		}
		return out, true
	default:
		return nil, false
	}
}

func optionFrom(item any) (Option, bool) {
	switch v := item.(type) {
	case Option:
		return v, true
	case *Option:
		if v == nil {
			return Option{}, false
		}
		return *v, true
	case map[string]any:
		opt := Option{Value: v["value"]}
		if label, ok := v["label"].(string); ok {
			opt.Label = label
		}
		if other, ok := v["other"].(map[string]any); ok {
			opt.Other = other
		}
		if checked, ok := v["isChecked"].(bool); ok {
			opt.IsChecked = checked
		}
		if disabled, ok := v["disabled"].(bool); ok {
			opt.Disabled = disabled
		}
		return opt, true
	default:
		return Option{}, false
	}
}

// FormData maps field ids to raw values after OnChange. Undefined (nil)
// values are never stored.
type FormData map[string]any

// Clone deep copies the data map.
func (d FormData) Clone() FormData {
	if d == nil {
		return FormData{}
	}
	out := make(FormData, len(d))
	for key, value := range d {
		out[key] = values.Clone(value)
	}
	return out
}

// ComputedData maps field ids to values derived by ComputedValue or by
// per-item children processing.
type ComputedData map[string]any

// Clone deep copies the computed map.
func (d ComputedData) Clone() ComputedData {
	if d == nil {
		return ComputedData{}
	}
	out := make(ComputedData, len(d))
	for key, value := range d {
		out[key] = values.Clone(value)
	}
	return out
}
