package form

import (
	"context"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/values"
)

// ShouldPreserve reports whether a reset keeps the current value of field:
// disabled, hidden and condition-false fields cannot be edited, so their
// state survives.
func ShouldPreserve(field model.Field, data model.FormData, computed model.ComputedData) bool {
	if field.Disabled || field.Hidden {
		return true
	}
	return field.Condition != nil && !field.Condition(data, computed)
}

// Reset restores every field to its schema default except the fields the
// preservation policy keeps, clears validation errors, and recomputes.
func (f *Form) Reset(ctx context.Context) error {
	f.mu.Lock()
	data := f.pipeline.FormData()
	computed := f.pipeline.ComputedData()
	var restored []string
	f.schema.Range(func(id string, field *model.Field) bool {
		if !field.Type.IsInput() {
			return true
		}
		if ShouldPreserve(*field, data, computed) {
			return true
		}
		var def any
		if original, ok := f.defaults.Field(id); ok {
			def = values.Clone(original.Value)
		}
		field.Value = def
		field.Error = ""
		restored = append(restored, id)
		return true
	})
	f.errors = make(map[string][]string)
	f.mu.Unlock()

	err := f.recompute(ctx)
	f.publish(EventReset, restored...)
	if isFieldFailure(err) {
		return nil
	}
	return err
}

// Defaults returns a copy of the schema as it was when the form was built.
func (f *Form) Defaults() *model.Schema {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.defaults.Clone()
}
