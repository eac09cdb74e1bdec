package loader

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/goliatone/go-formflow/components/timezones"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/multistep"
	"github.com/goliatone/go-formflow/pkg/values"
)

// ErrUnknownCallback marks documents naming a callback the registry lacks.
var ErrUnknownCallback = errors.New("loader: unknown callback")

// Built-in callback names registered by NewRegistry.
const (
	CallbackTrim   = "trim"
	CallbackUpper  = "upper"
	CallbackLower  = "lower"
	CallbackNumber = "number"
	// LoaderTimezones searches the embedded IANA timezone list.
	LoaderTimezones = "timezones"
)

// Registry binds the callback names used in documents to Go functions. The
// zero value is not usable; construct with NewRegistry.
type Registry struct {
	mu         sync.RWMutex
	changes    map[string]model.ChangeFunc
	computes   map[string]model.ComputeFunc
	validators map[string]model.Validator
	loaders    map[string]model.OptionsLoader
	resolvers  map[string]model.ValueResolver
	conditions map[string]model.Condition
	steps      map[string]multistep.Validation
	client     *http.Client
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithHTTPClient sets the client used for endpoint-backed option loaders.
func WithHTTPClient(client *http.Client) RegistryOption {
	return func(r *Registry) {
		if client != nil {
			r.client = client
		}
	}
}

// NewRegistry constructs a registry with the built-in transforms and the
// timezones loader registered.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		changes:    make(map[string]model.ChangeFunc),
		computes:   make(map[string]model.ComputeFunc),
		validators: make(map[string]model.Validator),
		loaders:    make(map[string]model.OptionsLoader),
		resolvers:  make(map[string]model.ValueResolver),
		conditions: make(map[string]model.Condition),
		steps:      make(map[string]multistep.Validation),
		client:     http.DefaultClient,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.registerBuiltins()
	return r
}

func (r *Registry) registerBuiltins() {
	trim := func(v any) any {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
		return v
	}
	upper := func(v any) any {
		if s, ok := v.(string); ok {
			return strings.ToUpper(s)
		}
		return v
	}
	lower := func(v any) any {
		if s, ok := v.(string); ok {
			return strings.ToLower(s)
		}
		return v
	}
	number := func(v any) any {
		if s, ok := v.(string); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return f
			}
		}
		return v
	}

	r.changes[CallbackTrim] = model.Transform(trim)
	r.changes[CallbackUpper] = model.Transform(upper)
	r.changes[CallbackLower] = model.Transform(lower)
	r.changes[CallbackNumber] = model.Transform(number)
	r.computes[CallbackTrim] = model.Compute(trim)
	r.computes[CallbackUpper] = model.Compute(upper)
	r.computes[CallbackLower] = model.Compute(lower)
	r.computes[CallbackNumber] = model.Compute(number)
	r.loaders[LoaderTimezones] = timezones.Loader()
}

func register[T any](r *Registry, dest map[string]T, name string, fn T, isNil bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return goerr.New("loader: callback name is empty")
	}
	if isNil {
		return goerr.New("loader: callback is nil", goerr.V("name", name))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	dest[name] = fn
	return nil
}

func lookup[T any](r *Registry, src map[string]T, kind, name string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := src[strings.TrimSpace(name)]
	if !ok {
		var zero T
		return zero, goerr.Wrap(ErrUnknownCallback, "callback not registered", goerr.V("kind", kind), goerr.V("name", name))
	}
	return fn, nil
}

// RegisterChange binds an onChange transform.
func (r *Registry) RegisterChange(name string, fn model.ChangeFunc) error {
	return register(r, r.changes, name, fn, fn == nil)
}

// RegisterCompute binds a computedValue callback.
func (r *Registry) RegisterCompute(name string, fn model.ComputeFunc) error {
	return register(r, r.computes, name, fn, fn == nil)
}

// RegisterValidator binds a field validator.
func (r *Registry) RegisterValidator(name string, fn model.Validator) error {
	return register(r, r.validators, name, fn, fn == nil)
}

// RegisterLoader binds an options loader.
func (r *Registry) RegisterLoader(name string, fn model.OptionsLoader) error {
	return register(r, r.loaders, name, fn, fn == nil)
}

// RegisterResolver binds a lazy value resolver.
func (r *Registry) RegisterResolver(name string, fn model.ValueResolver) error {
	return register(r, r.resolvers, name, fn, fn == nil)
}

// RegisterCondition binds a named field condition, usable in documents as
// "@name" in place of an expression.
func (r *Registry) RegisterCondition(name string, fn model.Condition) error {
	return register(r, r.conditions, name, fn, fn == nil)
}

// RegisterStepValidation binds a step validation.
func (r *Registry) RegisterStepValidation(name string, fn multistep.Validation) error {
	return register(r, r.steps, name, fn, fn == nil)
}

// Names lists every registered callback name per kind, sorted.
func (r *Registry) Names() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return map[string][]string{
		"change":     sortedNames(r.changes),
		"compute":    sortedNames(r.computes),
		"validator":  sortedNames(r.validators),
		"loader":     sortedNames(r.loaders),
		"resolver":   sortedNames(r.resolvers),
		"condition":  sortedNames(r.conditions),
		"validation": sortedNames(r.steps),
	}
}

func sortedNames[T any](m map[string]T) []string {
	out := make([]string, 0, len(m))
	for name := range m {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RequireFields returns a step validation that reports every listed field
// whose value is empty, using labels[id] (or the id) in the message.
func RequireFields(ids []string, labels map[string]string) multistep.Validation {
	return func(_ context.Context, data model.FormData, _ model.ComputedData) ([]string, error) {
		var msgs []string
		for _, id := range ids {
			if !values.IsEmpty(data[id]) {
				continue
			}
			label := strings.TrimSpace(labels[id])
			if label == "" {
				label = id
			}
			msgs = append(msgs, label+" required")
		}
		return msgs, nil
	}
}
