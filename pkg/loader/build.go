package loader

import (
	"context"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/goliatone/go-formflow/pkg/condition"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/multistep"
	"github.com/goliatone/go-formflow/pkg/options"
	"github.com/goliatone/go-formflow/pkg/validation"
)

// StepValidationRequired is the built-in step validation that requires every
// field marked required in the step.
const StepValidationRequired = "required"

// ValidationConfig returns the validation configuration the document asks
// for.
func (d Document) ValidationConfig() validation.Config {
	return validation.Config{ErrorMessages: d.Messages, Locale: d.Locale}
}

// NewForm binds the document fields and builds a form.
func (d Document) NewForm(ctx context.Context, reg *Registry, opts ...form.Option) (*form.Form, error) {
	schema, err := reg.BuildSchema(d.Fields)
	if err != nil {
		return nil, err
	}
	opts = append([]form.Option{form.WithValidation(d.ValidationConfig())}, opts...)
	return form.New(ctx, schema, opts...)
}

// NewMachine binds the document steps and builds a multi-step machine.
func (d Document) NewMachine(ctx context.Context, reg *Registry, opts ...multistep.Option) (*multistep.Machine, error) {
	if !d.IsMultiStep() {
		return nil, goerr.Wrap(ErrInvalidDocument, "document has no steps")
	}
	steps, err := reg.BuildSteps(d.Steps)
	if err != nil {
		return nil, err
	}
	opts = append([]multistep.Option{
		multistep.WithConfig(d.MultiStep),
		multistep.WithFormOptions(form.WithValidation(d.ValidationConfig())),
	}, opts...)
	return multistep.New(ctx, steps, opts...)
}

// BuildSchema binds field specs into a schema. Every binding failure is
// reported, joined.
func (r *Registry) BuildSchema(specs []FieldSpec) (*model.Schema, error) {
	schema := model.NewSchema()
	var errs []error
	seen := make(map[string]struct{}, len(specs))
	for idx, spec := range specs {
		id := strings.TrimSpace(spec.ID)
		if id == "" {
			errs = append(errs, goerr.Wrap(ErrInvalidDocument, "field id is empty", goerr.V("index", idx)))
			continue
		}
		if _, dup := seen[id]; dup {
			errs = append(errs, goerr.Wrap(ErrInvalidDocument, "duplicate field id", goerr.V("field", id)))
			continue
		}
		seen[id] = struct{}{}

		field, fieldErrs := r.buildField(id, spec)
		errs = append(errs, fieldErrs...)
		schema.Add(id, field)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return schema, nil
}

func (r *Registry) buildField(id string, spec FieldSpec) (model.Field, []error) {
	var errs []error
	fail := func(err error) {
		errs = append(errs, goerr.Wrap(err, "cannot bind field", goerr.V("field", id)))
	}

	kind := model.KindText
	if strings.TrimSpace(spec.Type) != "" {
		parsed, err := model.ParseFieldKind(spec.Type)
		if err != nil {
			fail(err)
		}
		kind = parsed
	}

	field := model.Field{
		Type:        kind,
		Label:       spec.Label,
		Placeholder: spec.Placeholder,
		Value:       normalizeValue(spec.Value),
		Required:    spec.Required,
		Disabled:    spec.Disabled,
		Hidden:      spec.Hidden,
		Multiple:    spec.Multiple,
		MinLength:   spec.MinLength,
		MaxLength:   spec.MaxLength,
		Pattern:     spec.Pattern,
		Options:     model.CloneOptions(spec.Options),
		DependsOn:   append([]string(nil), spec.DependsOn...),
	}

	if spec.Loader != "" && spec.Endpoint != nil {
		fail(goerr.Wrap(ErrInvalidDocument, "loader and endpoint are mutually exclusive"))
	}
	if spec.Loader != "" {
		fn, err := lookup(r, r.loaders, "loader", spec.Loader)
		if err != nil {
			fail(err)
		}
		field.OptionsLoader = fn
	}
	if spec.Endpoint != nil {
		field.OptionsLoader = options.HTTPLoader(r.client, *spec.Endpoint)
	}
	if spec.OnChange != "" {
		fn, err := lookup(r, r.changes, "change", spec.OnChange)
		if err != nil {
			fail(err)
		}
		field.OnChange = fn
	}
	if spec.Computed != "" {
		fn, err := lookup(r, r.computes, "compute", spec.Computed)
		if err != nil {
			fail(err)
		}
		field.ComputedValue = fn
	}
	if spec.Validation != "" {
		fn, err := lookup(r, r.validators, "validator", spec.Validation)
		if err != nil {
			fail(err)
		}
		field.Validation = fn
	}
	if spec.Resolve != "" {
		fn, err := lookup(r, r.resolvers, "resolver", spec.Resolve)
		if err != nil {
			fail(err)
		}
		field.Resolve = fn
	}
	if rule := strings.TrimSpace(spec.Condition); rule != "" {
		fn, err := r.fieldCondition(rule)
		if err != nil {
			fail(err)
		}
		field.Condition = fn
	}
	if len(spec.Children) > 0 {
		children, err := r.BuildSchema(spec.Children)
		if err != nil {
			fail(err)
		}
		field.Children = children
	}
	return field, errs
}

func (r *Registry) fieldCondition(rule string) (model.Condition, error) {
	if name, ok := strings.CutPrefix(rule, "@"); ok {
		return lookup(r, r.conditions, "condition", name)
	}
	expr, err := condition.Compile(rule)
	if err != nil {
		return nil, err
	}
	return expr.Field(), nil
}

// BuildSteps binds step specs into multi-step steps.
func (r *Registry) BuildSteps(specs []StepSpec) ([]multistep.Step, error) {
	steps := make([]multistep.Step, 0, len(specs))
	var errs []error
	for _, spec := range specs {
		id := strings.TrimSpace(spec.ID)
		fail := func(err error) {
			errs = append(errs, goerr.Wrap(err, "cannot bind step", goerr.V("step", id)))
		}

		step := multistep.Step{
			ID:        id,
			Title:     spec.Title,
			Subtitle:  spec.Subtitle,
			Component: spec.Component,
		}
		if len(spec.Fields) > 0 {
			schema, err := r.BuildSchema(spec.Fields)
			if err != nil {
				fail(err)
			}
			step.Schema = schema
		}
		if rule := strings.TrimSpace(spec.Condition); rule != "" {
			expr, err := condition.Compile(rule)
			if err != nil {
				fail(err)
			} else {
				step.Condition = expr.Step()
			}
		}
		switch name := strings.TrimSpace(spec.Validation); name {
		case "":
		case StepValidationRequired:
			step.Validation = requiredFields(spec.Fields)
		default:
			fn, err := lookup(r, r.steps, "validation", name)
			if err != nil {
				fail(err)
			}
			step.Validation = fn
		}
		steps = append(steps, step)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return steps, nil
}

func requiredFields(specs []FieldSpec) multistep.Validation {
	var ids []string
	labels := make(map[string]string, len(specs))
	for _, spec := range specs {
		if !spec.Required {
			continue
		}
		id := strings.TrimSpace(spec.ID)
		ids = append(ids, id)
		labels[id] = spec.Label
	}
	return RequireFields(ids, labels)
}

// normalizeValue converts decoded option maps into model.Option values so
// documents can carry option-shaped defaults.
func normalizeValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		if _, ok := v["value"]; ok {
			if opts, ok := model.OptionsOf([]any{v}); ok && len(opts) == 1 {
				return opts[0]
			}
		}
		return v
	case []any:
		if len(v) == 0 {
			return v
		}
		for _, item := range v {
			if m, ok := item.(map[string]any); !ok || (m["value"] == nil && m["other"] == nil) {
				return v
			}
		}
		if opts, ok := model.OptionsOf(v); ok {
			return opts
		}
		return v
	default:
		return value
	}
}
