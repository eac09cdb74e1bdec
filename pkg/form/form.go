package form

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/options"
	"github.com/goliatone/go-formflow/pkg/transform"
	"github.com/goliatone/go-formflow/pkg/validation"
)

// Form owns a schema and its derived data. It is the only writer of the
// schema: value writes go through SetValue and resolver output arrives as
// events through Apply. Methods are safe for concurrent use.
//
// Callbacks on the schema (transforms, computed values, conditions) run while
// the form holds its lock and must not call back into the Form.
type Form struct {
	mu       sync.Mutex
	schema   *model.Schema
	defaults *model.Schema
	pipeline *transform.Pipeline
	errors   map[string][]string

	resolver     *options.Resolver
	resolverOpts []options.Option
	validator    *validation.Validator
	logger       *slog.Logger

	subsMu  sync.RWMutex
	subs    map[uint64]Listener
	nextSub uint64
}

// New takes ownership of schema, resolves lazy values, derives the initial
// data, and registers every field that declares an OptionsLoader. Callback
// failures during the first pass are logged, not returned.
func New(ctx context.Context, schema *model.Schema, opts ...Option) (*Form, error) {
	if schema == nil {
		return nil, goerr.Wrap(model.ErrInvalidSchema, "schema is nil")
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	f := &Form{
		schema:   schema,
		pipeline: transform.NewPipeline(),
		errors:   make(map[string][]string),
		logger:   slog.Default(),
		subs:     make(map[uint64]Listener),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	if f.validator == nil {
		f.validator = validation.New(validation.Config{})
	}
	resolverOpts := append([]options.Option{options.WithLogger(f.logger)}, f.resolverOpts...)
	f.resolver = options.NewResolver(f, f, resolverOpts...)

	if err := f.resolveValues(ctx); err != nil {
		return nil, err
	}
	f.defaults = schema.Clone()
	if err := f.recompute(ctx); err != nil {
		if !isFieldFailure(err) {
			return nil, err
		}
		f.logger.Warn("initial derivation reported field failures", slog.Any("error", err))
	}

	for _, id := range schema.IDs() {
		field, _ := schema.Field(id)
		if field.OptionsLoader == nil {
			continue
		}
		if _, err := f.resolver.Register(ctx, id, field.DependsOn, field.OptionsLoader); err != nil {
			return nil, err
		}
		if len(field.DependsOn) == 0 {
			f.resolver.FilterOptions(ctx, id, "")
		}
	}
	return f, nil
}

// SetValue writes the raw value of an input field and recomputes derived
// data. A nil value marks the field undefined. The returned error is either a
// lookup failure or the transform.Errors of the pass.
func (f *Form) SetValue(ctx context.Context, id string, value any) error {
	return f.SetValues(ctx, map[string]any{id: value})
}

// SetValues writes several values in one batch and recomputes once.
func (f *Form) SetValues(ctx context.Context, updates map[string]any) error {
	if f == nil {
		return goerr.Wrap(model.ErrUnknownField, "form is nil")
	}
	f.mu.Lock()
	for id := range updates {
		field, ok := f.schema.Field(id)
		if !ok {
			f.mu.Unlock()
			return goerr.Wrap(model.ErrUnknownField, "cannot set value", goerr.V("field", id))
		}
		if !field.Type.IsInput() {
			f.mu.Unlock()
			return goerr.Wrap(model.ErrNotInput, "cannot set value", goerr.V("field", id))
		}
	}
	for id, value := range updates {
		field, _ := f.schema.Field(id)
		field.Value = value
	}
	f.mu.Unlock()
	return f.recompute(ctx)
}

// ClearValue marks a field undefined.
func (f *Form) ClearValue(ctx context.Context, id string) error {
	return f.SetValue(ctx, id, nil)
}

// Value returns the FormData entry for id.
func (f *Form) Value(id string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pipeline.Value(id)
}

// FormData returns a copy of the current FormData.
func (f *Form) FormData() model.FormData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pipeline.FormData()
}

// ComputedData returns a copy of the current ComputedData.
func (f *Form) ComputedData() model.ComputedData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pipeline.ComputedData()
}

// Field returns a copy of the descriptor stored under id.
func (f *Form) Field(id string) (model.Field, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	field, ok := f.schema.Field(id)
	if !ok {
		return model.Field{}, false
	}
	return field.Clone(), true
}

// Schema returns a copy of the live schema.
func (f *Form) Schema() *model.Schema {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.schema.Clone()
}

// Visible reports whether the field under id passes its condition.
func (f *Form) Visible(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	field, ok := f.schema.Field(id)
	if !ok {
		return false
	}
	return !field.Hidden && field.Visible(f.pipeline.FormData(), f.pipeline.ComputedData())
}

// VisibleFields lists the ids of the fields currently shown, in order.
func (f *Form) VisibleFields() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	data := f.pipeline.FormData()
	computed := f.pipeline.ComputedData()
	var out []string
	f.schema.Range(func(id string, field *model.Field) bool {
		if !field.Hidden && field.Visible(data, computed) {
			out = append(out, id)
		}
		return true
	})
	return out
}

// RegisterDependency wires loader to fieldID and attempts an initial load.
func (f *Form) RegisterDependency(ctx context.Context, fieldID string, dependsOn []string, loader model.OptionsLoader) (options.Outcome, error) {
	f.mu.Lock()
	field, ok := f.schema.Field(fieldID)
	if ok {
		field.DependsOn = append([]string(nil), dependsOn...)
		field.OptionsLoader = loader
	}
	f.mu.Unlock()
	if !ok {
		return options.OutcomeSkipped, goerr.Wrap(model.ErrUnknownField, "cannot register dependency", goerr.V("field", fieldID))
	}
	return f.resolver.Register(ctx, fieldID, dependsOn, loader)
}

// DependencyValues returns the current values of fieldID's dependencies.
func (f *Form) DependencyValues(fieldID string) map[string]any {
	return f.resolver.DependencyValues(fieldID)
}

// UpdateOptions reloads the options of fieldID if its dependencies resolve.
func (f *Form) UpdateOptions(ctx context.Context, fieldID string) options.Outcome {
	return f.resolver.UpdateOptions(ctx, fieldID)
}

// FilterOptions reloads the options of fieldID for a search filter.
func (f *Form) FilterOptions(ctx context.Context, fieldID, filter string) options.Outcome {
	return f.resolver.FilterOptions(ctx, fieldID, filter)
}

// Apply implements options.Sink.
func (f *Form) Apply(ctx context.Context, event options.Event) error {
	f.mu.Lock()
	field, ok := f.schema.Field(event.Field)
	if !ok {
		f.mu.Unlock()
		return goerr.Wrap(model.ErrUnknownField, "cannot apply options event", goerr.V("field", event.Field))
	}

	switch event.Kind {
	case options.EventOptionsUpdated:
		field.Options = model.CloneOptions(event.Options)
		f.mu.Unlock()
		f.publish(EventOptionsUpdated, event.Field)
		return nil
	case options.EventValueReset:
		field.Value = event.Value
		f.mu.Unlock()
		err := f.recompute(ctx)
		f.publish(EventValueReset, event.Field)
		if isFieldFailure(err) {
			f.logger.Warn("recompute after value reset reported field failures", slog.Any("error", err))
			return nil
		}
		return err
	default:
		f.mu.Unlock()
		return goerr.New("unknown options event", goerr.V("kind", int(event.Kind)))
	}
}

// ResolveValues runs every field's value resolver and recomputes.
func (f *Form) ResolveValues(ctx context.Context) error {
	if err := f.resolveValues(ctx); err != nil {
		return err
	}
	return f.recompute(ctx)
}

func (f *Form) resolveValues(ctx context.Context) error {
	f.mu.Lock()
	type pending struct {
		id      string
		resolve model.ValueResolver
	}
	var work []pending
	f.schema.Range(func(id string, field *model.Field) bool {
		if field.Resolve != nil && field.Type.IsInput() {
			work = append(work, pending{id: id, resolve: field.Resolve})
		}
		return true
	})
	f.mu.Unlock()

	for _, item := range work {
		if err := ctx.Err(); err != nil {
			return err
		}
		value, err := item.resolve(ctx)
		if err != nil {
			f.logger.Error("failed to resolve field value", slog.String("field", item.id), slog.Any("error", err))
			continue
		}
		f.mu.Lock()
		if field, ok := f.schema.Field(item.id); ok {
			field.Value = value
		}
		f.mu.Unlock()
	}
	return nil
}

func (f *Form) recompute(ctx context.Context) error {
	f.mu.Lock()
	changes, err := f.pipeline.Recompute(ctx, f.schema)
	f.mu.Unlock()

	if len(changes.Data) > 0 {
		f.publish(EventValueChanged, changes.Data...)
	}
	if len(changes.Computed) > 0 {
		f.publish(EventComputedChanged, changes.Computed...)
	}
	if !changes.Empty() {
		f.resolver.Notify(ctx, append(changes.Data, changes.Computed...)...)
	}
	return err
}

func isFieldFailure(err error) bool {
	var errs transform.Errors
	return errors.As(err, &errs)
}
