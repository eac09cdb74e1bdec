package options

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/values"
)

// ErrInvalidRegistration marks Register calls without a field id or loader.
var ErrInvalidRegistration = errors.New("options: invalid dependency registration")

// Resolver tracks fields whose options depend on other fields' values and
// reloads them when those values change.
//
// Every load takes a per-field request token; a response that is no longer
// the latest for its field is discarded, so an older, slower load can never
// overwrite a newer one.
type Resolver struct {
	mu         sync.Mutex
	state      State
	sink       Sink
	logger     *slog.Logger
	sanitize   func(string) string
	loaders    map[string]model.OptionsLoader
	dependents map[string][]string
	depOrder   []string
	tokens     map[string]uint64
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for loader failures and stale responses.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver constructs a resolver reading from state and emitting events
// to sink.
func NewResolver(state State, sink Sink, opts ...Option) *Resolver {
	r := &Resolver{
		state:      state,
		sink:       sink,
		logger:     slog.Default(),
		loaders:    make(map[string]model.OptionsLoader),
		dependents: make(map[string][]string),
		tokens:     make(map[string]uint64),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Register stores loader for fieldID, indexes it under every id in
// dependsOn, and immediately attempts an initial load.
func (r *Resolver) Register(ctx context.Context, fieldID string, dependsOn []string, loader model.OptionsLoader) (Outcome, error) {
	if r == nil {
		return OutcomeSkipped, goerr.Wrap(ErrInvalidRegistration, "resolver is nil")
	}
	fieldID = strings.TrimSpace(fieldID)
	if fieldID == "" {
		return OutcomeSkipped, goerr.Wrap(ErrInvalidRegistration, "field id is empty")
	}
	if loader == nil {
		return OutcomeSkipped, goerr.Wrap(ErrInvalidRegistration, "loader is nil", goerr.V("field", fieldID))
	}

	r.mu.Lock()
	r.loaders[fieldID] = loader
	for _, dep := range dependsOn {
		dep = strings.TrimSpace(dep)
		if dep == "" || dep == fieldID {
			continue
		}
		if _, known := r.dependents[dep]; !known {
			r.depOrder = append(r.depOrder, dep)
		}
		if !contains(r.dependents[dep], fieldID) {
			r.dependents[dep] = append(r.dependents[dep], fieldID)
		}
	}
	r.mu.Unlock()

	return r.UpdateOptions(ctx, fieldID), nil
}

// Unregister drops the loader and every dependency edge of fieldID.
func (r *Resolver) Unregister(fieldID string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.loaders, fieldID)
	delete(r.tokens, fieldID)
	for dep, fields := range r.dependents {
		r.dependents[dep] = remove(fields, fieldID)
	}
}

// Registered reports whether fieldID has a loader.
func (r *Resolver) Registered(fieldID string) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.loaders[fieldID]
	return ok
}

// Dependencies returns the ids fieldID depends on, in registration order.
func (r *Resolver) Dependencies(fieldID string) []string {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dependenciesLocked(fieldID)
}

// Dependents returns the fields registered against depID.
func (r *Resolver) Dependents(depID string) []string {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.dependents[depID]...)
}

func (r *Resolver) dependenciesLocked(fieldID string) []string {
	var deps []string
	for _, dep := range r.depOrder {
		if contains(r.dependents[dep], fieldID) {
			deps = append(deps, dep)
		}
	}
	return deps
}

// DependencyValues reads the current value of every dependency of fieldID,
// preferring FormData and falling back to ComputedData when the FormData
// entry is missing or empty.
func (r *Resolver) DependencyValues(fieldID string) map[string]any {
	return r.dependencyValues(r.Dependencies(fieldID))
}

func (r *Resolver) dependencyValues(deps []string) map[string]any {
	out := make(map[string]any, len(deps))
	if len(deps) == 0 || r.state == nil {
		return out
	}
	data := r.state.FormData()
	computed := r.state.ComputedData()
	for _, dep := range deps {
		if v, ok := data[dep]; ok && !values.IsEmpty(v) {
			out[dep] = v
			continue
		}
		out[dep] = computed[dep]
	}
	return out
}

// UpdateOptions reloads the options of fieldID when it has a loader, at
// least one dependency, and every dependency value is resolved.
func (r *Resolver) UpdateOptions(ctx context.Context, fieldID string) Outcome {
	return r.load(ctx, fieldID, "", true)
}

// FilterOptions reloads the options of fieldID for a UI search filter. It
// shares dependency gathering and reconciliation with UpdateOptions but also
// serves loaders registered without dependencies.
func (r *Resolver) FilterOptions(ctx context.Context, fieldID, filter string) Outcome {
	return r.load(ctx, fieldID, filter, false)
}

// Notify is the change hook: for every dependency whose value is defined in
// FormData or ComputedData it reloads each dependent field once. When
// changed ids are given only dependencies among them are considered.
func (r *Resolver) Notify(ctx context.Context, changed ...string) {
	if r == nil || r.state == nil {
		return
	}
	data := r.state.FormData()
	computed := r.state.ComputedData()

	r.mu.Lock()
	var targets []string
	for _, dep := range r.depOrder {
		if len(changed) > 0 && !contains(changed, dep) {
			continue
		}
		if data[dep] == nil && computed[dep] == nil {
			continue
		}
		for _, fieldID := range r.dependents[dep] {
			if !contains(targets, fieldID) {
				targets = append(targets, fieldID)
			}
		}
	}
	r.mu.Unlock()

	for _, fieldID := range targets {
		if ctx.Err() != nil {
			return
		}
		r.UpdateOptions(ctx, fieldID)
	}
}

func (r *Resolver) load(ctx context.Context, fieldID, filter string, requireDeps bool) Outcome {
	if r == nil {
		return OutcomeSkipped
	}
	fieldID = strings.TrimSpace(fieldID)

	r.mu.Lock()
	loader, ok := r.loaders[fieldID]
	deps := r.dependenciesLocked(fieldID)
	r.mu.Unlock()

	if !ok {
		return OutcomeSkipped
	}
	if requireDeps && len(deps) == 0 {
		return OutcomeSkipped
	}
	depValues := r.dependencyValues(deps)
	for _, dep := range deps {
		if values.IsUnset(depValues[dep]) {
			return OutcomeSkipped
		}
	}

	token := r.nextToken(fieldID)
	loaded, err := loader(ctx, filter, depValues)
	if err != nil {
		r.logger.Error("failed to load options", slog.String("field", fieldID), slog.Any("error", err))
		return OutcomeFailed
	}
	if !r.latest(fieldID, token) {
		r.logger.Debug("discarding stale options response", slog.String("field", fieldID))
		return OutcomeStale
	}

	field, ok := r.state.Field(fieldID)
	if !ok || !field.Type.IsInput() {
		return OutcomeDiscarded
	}

	loaded = r.clean(loaded)
	if err := r.emit(ctx, Event{Kind: EventOptionsUpdated, Field: fieldID, Options: loaded}); err != nil {
		return OutcomeFailed
	}

	if !values.IsEmpty(field.Value) && !Matches(field.Value, loaded) {
		var reset any = ""
		if field.Multiple {
			reset = []any{}
		}
		if err := r.emit(ctx, Event{Kind: EventValueReset, Field: fieldID, Value: reset}); err != nil {
			return OutcomeFailed
		}
	}
	return OutcomeUpdated
}

func (r *Resolver) emit(ctx context.Context, event Event) error {
	if r.sink == nil {
		return nil
	}
	if err := r.sink.Apply(ctx, event); err != nil {
		r.logger.Error("failed to apply options event",
			slog.String("field", event.Field),
			slog.String("event", event.Kind.String()),
			slog.Any("error", err),
		)
		return err
	}
	return nil
}

func (r *Resolver) nextToken(fieldID string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[fieldID]++
	return r.tokens[fieldID]
}

func (r *Resolver) latest(fieldID string, token uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tokens[fieldID] == token
}

func (r *Resolver) clean(loaded []model.Option) []model.Option {
	if loaded == nil {
		loaded = []model.Option{}
	}
	if r.sanitize == nil {
		return loaded
	}
	out := make([]model.Option, len(loaded))
	for idx, opt := range loaded {
		opt.Label = r.sanitize(opt.Label)
		out[idx] = opt
	}
	return out
}

// Matches reports whether current is compatible with options: a single value
// must match some option, and every entry of a multi-select value must match
// some option. Option-like values compare by their Value field, primitives
// by string form.
func Matches(current any, options []model.Option) bool {
	rv := reflect.ValueOf(current)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		for i := 0; i < rv.Len(); i++ {
			if !matchesOne(rv.Index(i).Interface(), options) {
				return false
			}
		}
		return true
	}
	return matchesOne(current, options)
}

func matchesOne(selected any, options []model.Option) bool {
	target, isObject := selectedValue(selected)
	for _, opt := range options {
		if isObject {
			if values.DeepEqual(target, opt.Value) {
				return true
			}
			continue
		}
		if values.String(target) == values.String(opt.Value) {
			return true
		}
	}
	return false
}

func selectedValue(selected any) (any, bool) {
	switch v := selected.(type) {
	case model.Option:
		return v.Value, true
	case *model.Option:
		if v == nil {
			return nil, false
		}
		return v.Value, true
	case map[string]any:
		return v["value"], true
	default:
		return selected, false
	}
}

func contains(list []string, id string) bool {
	for _, existing := range list {
		if existing == id {
			return true
		}
	}
	return false
}

func remove(list []string, id string) []string {
	out := list[:0]
	for _, existing := range list {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
