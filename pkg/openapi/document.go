package openapi

import (
	"context"
	"errors"
	"sort"
	"strings"
	"unicode"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/goccy/go-json"
	"github.com/m-mizutani/goerr/v2"

	"github.com/goliatone/go-formflow/pkg/loader"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/options"
)

var (
	// ErrInvalidDocument marks payloads kin-openapi cannot load.
	ErrInvalidDocument = errors.New("openapi: invalid document")
	// ErrUnknownComponent marks component names missing from the document.
	ErrUnknownComponent = errors.New("openapi: unknown component schema")
)

// Extension keys read from property schemas.
const (
	ExtDependsOn = "x-formflow-depends-on"
	ExtCondition = "x-formflow-condition"
	ExtEndpoint  = "x-formflow-endpoint"
	ExtLoader    = "x-formflow-loader"
	ExtWidget    = "x-formflow-widget"
)

// Options configures an import.
type Options struct {
	// ResolveReferences allows external $ref resolution.
	ResolveReferences bool
	// Registry binds x-formflow-loader names when building schemas.
	Registry *loader.Registry
}

// Option mutates Options.
type Option func(*Options)

// WithExternalRefs enables external reference resolution.
func WithExternalRefs() Option {
	return func(o *Options) {
		o.ResolveReferences = true
	}
}

// DocumentFromComponent converts the component schema name of an OpenAPI 3
// document into a form document. Properties are emitted in name order.
func DocumentFromComponent(ctx context.Context, data []byte, name string, opts ...Option) (loader.Document, error) {
	ref, err := component(ctx, data, name, opts...)
	if err != nil {
		return loader.Document{}, err
	}
	title := strings.TrimSpace(ref.Value.Title)
	if title == "" {
		title = name
	}
	fields := convertProperties(ref.Value, "", map[*openapi3.Schema]bool{ref.Value: true})
	return loader.Document{Title: title, Fields: fields}, nil
}

// WithRegistry binds loader names through reg in SchemaFromComponent.
func WithRegistry(reg *loader.Registry) Option {
	return func(o *Options) {
		o.Registry = reg
	}
}

// SchemaFromComponent converts the component schema name into a bound
// model.Schema. Loader names in x-formflow-loader resolve through the
// registry given by WithRegistry, or a default loader.NewRegistry().
func SchemaFromComponent(ctx context.Context, data []byte, name string, opts ...Option) (*model.Schema, error) {
	doc, err := DocumentFromComponent(ctx, data, name, opts...)
	if err != nil {
		return nil, err
	}
	cfg := collect(opts)
	reg := cfg.Registry
	if reg == nil {
		reg = loader.NewRegistry()
	}
	return reg.BuildSchema(doc.Fields)
}

func component(ctx context.Context, data []byte, name string, opts ...Option) (*openapi3.SchemaRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg := collect(opts)
	if len(data) == 0 {
		return nil, goerr.Wrap(ErrInvalidDocument, "document payload is empty")
	}

	kin := &openapi3.Loader{
		Context:               ctx,
		IsExternalRefsAllowed: cfg.ResolveReferences,
	}
	spec, err := kin.LoadFromData(data)
	if err != nil {
		return nil, goerr.Wrap(ErrInvalidDocument, "failed to load document", goerr.V("cause", err.Error()))
	}
	if spec.Components == nil {
		return nil, goerr.Wrap(ErrUnknownComponent, "document has no components", goerr.V("component", name))
	}
	ref := spec.Components.Schemas[name]
	if ref == nil || ref.Value == nil {
		return nil, goerr.Wrap(ErrUnknownComponent, "component schema not found", goerr.V("component", name))
	}
	return ref, nil
}

func collect(opts []Option) Options {
	var cfg Options
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func convertProperties(schema *openapi3.Schema, prefix string, visiting map[*openapi3.Schema]bool) []loader.FieldSpec {
	if schema == nil || len(schema.Properties) == 0 {
		return nil
	}
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []loader.FieldSpec
	for _, name := range names {
		ref := schema.Properties[name]
		if ref == nil || ref.Value == nil || visiting[ref.Value] {
			continue
		}
		prop := ref.Value
		id := name
		if prefix != "" {
			id = prefix + "_" + name
		}

		if hasType(prop, openapi3.TypeObject) && len(prop.Properties) > 0 {
			out = append(out, loader.FieldSpec{ID: id, Type: model.KindSection.String(), Label: labelFor(prop, name)})
			visiting[prop] = true
			out = append(out, convertProperties(prop, id, visiting)...)
			delete(visiting, prop)
			continue
		}

		spec := convertProperty(id, name, prop, visiting)
		spec.Required = required[name]
		out = append(out, spec)
	}
	return out
}

func convertProperty(id, name string, prop *openapi3.Schema, visiting map[*openapi3.Schema]bool) loader.FieldSpec {
	spec := loader.FieldSpec{
		ID:       id,
		Label:    labelFor(prop, name),
		Value:    prop.Default,
		Disabled: prop.ReadOnly,
		Pattern:  prop.Pattern,
	}
	if prop.MinLength > 0 {
		spec.MinLength = int(prop.MinLength)
	}
	if prop.MaxLength != nil {
		spec.MaxLength = int(*prop.MaxLength)
	}

	switch {
	case len(prop.Enum) > 0:
		spec.Type = model.KindSelect.String()
		spec.Options = enumOptions(prop.Enum)
	case hasType(prop, openapi3.TypeArray):
		spec.Type, spec.Multiple, spec.Options, spec.Children = arrayField(prop, visiting)
	case hasType(prop, openapi3.TypeBoolean):
		spec.Type = model.KindCheckbox.String()
	case hasType(prop, openapi3.TypeInteger), hasType(prop, openapi3.TypeNumber):
		spec.Type = model.KindNumber.String()
	default:
		spec.Type = stringKind(prop).String()
	}

	applyExtensions(&spec, prop.Extensions)
	return spec
}

func arrayField(prop *openapi3.Schema, visiting map[*openapi3.Schema]bool) (string, bool, []model.Option, []loader.FieldSpec) {
	if prop.Items == nil || prop.Items.Value == nil {
		return model.KindRepeat.String(), false, nil, nil
	}
	items := prop.Items.Value
	if len(items.Enum) > 0 {
		return model.KindSelect.String(), true, enumOptions(items.Enum), nil
	}
	if hasType(items, openapi3.TypeObject) && !visiting[items] {
		visiting[items] = true
		children := convertProperties(items, "", visiting)
		delete(visiting, items)
		return model.KindRepeat.String(), false, nil, children
	}
	return model.KindRepeat.String(), false, nil, nil
}

func stringKind(prop *openapi3.Schema) model.FieldKind {
	if widget, ok := prop.Extensions[ExtWidget].(string); ok {
		if kind, err := model.ParseFieldKind(widget); err == nil {
			return kind
		}
	}
	switch strings.ToLower(prop.Format) {
	case "email":
		return model.KindEmail
	case "password":
		return model.KindPassword
	case "date", "date-time":
		return model.KindDate
	case "textarea":
		return model.KindTextArea
	default:
		return model.KindText
	}
}

func applyExtensions(spec *loader.FieldSpec, ext map[string]any) {
	if len(ext) == 0 {
		return
	}
	switch deps := ext[ExtDependsOn].(type) {
	case string:
		spec.DependsOn = []string{deps}
	case []any:
		for _, dep := range deps {
			if s, ok := dep.(string); ok && strings.TrimSpace(s) != "" {
				spec.DependsOn = append(spec.DependsOn, strings.TrimSpace(s))
			}
		}
	}
	if rule, ok := ext[ExtCondition].(string); ok {
		spec.Condition = strings.TrimSpace(rule)
	}
	if name, ok := ext[ExtLoader].(string); ok {
		spec.Loader = strings.TrimSpace(name)
	}
	if raw, ok := ext[ExtEndpoint]; ok && spec.Loader == "" {
		if endpoint, ok := decodeEndpoint(raw); ok {
			spec.Endpoint = &endpoint
		}
	}
}

func decodeEndpoint(raw any) (options.Endpoint, bool) {
	payload, err := json.Marshal(raw)
	if err != nil {
		return options.Endpoint{}, false
	}
	var endpoint options.Endpoint
	if err := json.Unmarshal(payload, &endpoint); err != nil || strings.TrimSpace(endpoint.URL) == "" {
		return options.Endpoint{}, false
	}
	return endpoint, true
}

func enumOptions(enum []any) []model.Option {
	out := make([]model.Option, 0, len(enum))
	for _, value := range enum {
		if value == nil {
			continue
		}
		out = append(out, model.Option{Label: humanize(toString(value)), Value: value})
	}
	return out
}

func hasType(schema *openapi3.Schema, typ string) bool {
	if schema == nil || schema.Type == nil {
		return false
	}
	for _, candidate := range schema.Type.Slice() {
		if candidate == typ {
			return true
		}
	}
	return false
}

func labelFor(schema *openapi3.Schema, name string) string {
	if title := strings.TrimSpace(schema.Title); title != "" {
		return title
	}
	return humanize(name)
}

// humanize turns snake_case and camelCase identifiers into a label.
func humanize(raw string) string {
	var b strings.Builder
	prevLower := false
	for i, r := range raw {
		switch {
		case r == '_' || r == '-' || r == '.':
			b.WriteRune(' ')
			prevLower = false
			continue
		case unicode.IsUpper(r) && prevLower:
			b.WriteRune(' ')
		}
		if i == 0 {
			r = unicode.ToUpper(r)
		}
		b.WriteRune(r)
		prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func toString(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	out, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	return string(out)
}
