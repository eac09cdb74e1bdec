package form

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/validation"
)

type validationTarget struct {
	id    string
	field model.Field
}

// Validate checks every interactive input field and stores the messages.
// Hidden, disabled and condition-false fields are skipped and their stored
// errors cleared. It reports whether every field passed.
func (f *Form) Validate(ctx context.Context) bool {
	targets, skipped, schema := f.validationTargets("")
	results := f.runValidators(ctx, targets, schema)

	f.mu.Lock()
	defer f.mu.Unlock()
	valid := true
	for _, id := range skipped {
		f.storeErrors(id, nil)
	}
	for _, target := range targets {
		msgs := results[target.id]
		if len(msgs) > 0 {
			valid = false
		}
		f.storeErrors(target.id, msgs)
	}
	return valid
}

// ValidateField validates a single field. Non-interactive fields pass.
func (f *Form) ValidateField(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	_, ok := f.schema.Field(id)
	f.mu.Unlock()
	if !ok {
		return false, goerr.Wrap(model.ErrUnknownField, "cannot validate field", goerr.V("field", id))
	}

	targets, skipped, schema := f.validationTargets(id)
	results := f.runValidators(ctx, targets, schema)

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, skip := range skipped {
		f.storeErrors(skip, nil)
	}
	msgs := results[id]
	f.storeErrors(id, msgs)
	return len(msgs) == 0, nil
}

// Errors returns a copy of the stored validation messages per field.
func (f *Form) Errors() map[string][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string][]string, len(f.errors))
	for id, msgs := range f.errors {
		out[id] = append([]string(nil), msgs...)
	}
	return out
}

// ClearErrors drops every stored validation message.
func (f *Form) ClearErrors() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id := range f.errors {
		f.storeErrors(id, nil)
	}
}

// Validator returns the validator used by the form.
func (f *Form) Validator() *validation.Validator {
	return f.validator
}

// validationTargets snapshots the fields to validate (only id when set),
// returning the skipped non-interactive ids separately and a schema copy for
// the custom validators.
func (f *Form) validationTargets(only string) ([]validationTarget, []string, *model.Schema) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data := f.pipeline.FormData()
	computed := f.pipeline.ComputedData()

	var (
		targets []validationTarget
		skipped []string
	)
	f.schema.Range(func(id string, field *model.Field) bool {
		if only != "" && id != only {
			return true
		}
		if !field.Type.IsInput() {
			return true
		}
		if !field.Interactive(data, computed) {
			skipped = append(skipped, id)
			return true
		}
		targets = append(targets, validationTarget{id: id, field: field.Clone()})
		return true
	})
	return targets, skipped, f.schema.Clone()
}

func (f *Form) runValidators(ctx context.Context, targets []validationTarget, schema *model.Schema) map[string][]string {
	results := make(map[string][]string, len(targets))
	for _, target := range targets {
		msgs, err := f.validator.Field(ctx, target.id, target.field, schema)
		if err != nil {
			f.logger.Error("field validator failed", slog.String("field", target.id), slog.Any("error", err))
		}
		results[target.id] = msgs
	}
	return results
}

// storeErrors must be called with f.mu held.
func (f *Form) storeErrors(id string, msgs []string) {
	field, ok := f.schema.Field(id)
	if len(msgs) == 0 {
		delete(f.errors, id)
		if ok {
			field.Error = ""
		}
		return
	}
	f.errors[id] = msgs
	if ok {
		field.Error = validation.Join(msgs)
	}
}

// ApplyErrors stores server-side messages mapped onto field ids and returns
// the form-level messages that matched no field.
func (f *Form) ApplyErrors(payload map[string][]string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	mapping := validation.MapErrorPayload(f.schema, payload)
	for id, msgs := range mapping.Fields {
		merged := validation.MergeMessages(f.errors[id], msgs...)
		if _, ok := f.schema.Field(id); ok {
			f.storeErrors(id, merged)
			continue
		}
		f.errors[id] = merged
	}
	return mapping.Form
}
