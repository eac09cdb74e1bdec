package model

import (
	"errors"
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Schema is an insertion-ordered mapping of field ids to descriptors. The
// zero value is not usable; construct with NewSchema.
type Schema struct {
	ids    []string
	fields map[string]*Field
}

// NewSchema constructs an empty schema.
func NewSchema() *Schema {
	return &Schema{fields: make(map[string]*Field)}
}

// Add stores field under id and returns the schema for chaining. Re-adding an
// id replaces the descriptor while keeping its original position. Empty ids
// are ignored.
func (s *Schema) Add(id string, field Field) *Schema {
	if s == nil {
		return nil
	}
	s.Set(id, field)
	return s
}

// Set stores field under id, keeping the position of an existing entry.
func (s *Schema) Set(id string, field Field) {
	if s == nil {
		return
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	if s.fields == nil {
		s.fields = make(map[string]*Field)
	}
	if existing, ok := s.fields[id]; ok {
		*existing = field
		return
	}
	copied := field
	s.fields[id] = &copied
	s.ids = append(s.ids, id)
}

// Field returns the live descriptor stored under id.
func (s *Schema) Field(id string) (*Field, bool) {
	if s == nil || s.fields == nil {
		return nil, false
	}
	field, ok := s.fields[strings.TrimSpace(id)]
	return field, ok
}

// Has reports whether id is defined.
func (s *Schema) Has(id string) bool {
	_, ok := s.Field(id)
	return ok
}

// Remove deletes id, reporting whether it existed.
func (s *Schema) Remove(id string) bool {
	if s == nil || s.fields == nil {
		return false
	}
	id = strings.TrimSpace(id)
	if _, ok := s.fields[id]; !ok {
		return false
	}
	delete(s.fields, id)
	for idx, existing := range s.ids {
		if existing == id {
			s.ids = append(s.ids[:idx], s.ids[idx+1:]...)
			break
		}
	}
	return true
}

// IDs returns the field ids in insertion order.
func (s *Schema) IDs() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.ids...)
}

// Len returns the number of fields.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// Range visits fields in insertion order until fn returns false.
func (s *Schema) Range(fn func(id string, field *Field) bool) {
	if s == nil || fn == nil {
		return
	}
	for _, id := range s.ids {
		if !fn(id, s.fields[id]) {
			return
		}
	}
}

// Clone deep copies the schema (callbacks are shared).
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	out := &Schema{
		ids:    append([]string(nil), s.ids...),
		fields: make(map[string]*Field, len(s.fields)),
	}
	for id, field := range s.fields {
		cloned := field.Clone()
		out.fields[id] = &cloned
	}
	return out
}

// Validate checks the schema once up front so later stages can rely on the
// kind tag instead of re-checking descriptors ad hoc.
func (s *Schema) Validate() error {
	if s == nil {
		return goerr.Wrap(ErrInvalidSchema, "schema is nil")
	}
	var errs []error
	s.Range(func(id string, field *Field) bool {
		errs = append(errs, validateField(s, id, field)...)
		return true
	})
	return errors.Join(errs...)
}

func validateField(s *Schema, id string, field *Field) []error {
	var errs []error
	fail := func(msg string, opts ...goerr.Option) {
		opts = append([]goerr.Option{goerr.V("field", id)}, opts...)
		errs = append(errs, goerr.Wrap(ErrInvalidSchema, msg, opts...))
	}

	switch {
	case field.Type == KindUnknown:
		fail("field type is not set")
		return errs
	case field.Type == KindSection:
		if field.Value != nil || field.Resolve != nil {
			fail("section cannot hold a value")
		}
		if len(field.Options) > 0 || field.OptionsLoader != nil || len(field.DependsOn) > 0 {
			fail("section cannot declare options")
		}
		if field.ComputedValue != nil || field.OnChange != nil || field.Children != nil {
			fail("section cannot transform values")
		}
		return errs
	}

	seen := make(map[string]struct{}, len(field.DependsOn))
	for _, dep := range field.DependsOn {
		dep = strings.TrimSpace(dep)
		switch {
		case dep == "":
			fail("dependsOn contains an empty id")
		case dep == id:
			fail("field cannot depend on itself")
		case !s.Has(dep):
			fail("dependsOn references an unknown field", goerr.V("dependency", dep))
		}
		if _, dup := seen[dep]; dup {
			fail("dependsOn lists a field twice", goerr.V("dependency", dep))
		}
		seen[dep] = struct{}{}
	}
	if len(field.DependsOn) > 0 && field.OptionsLoader == nil {
		fail("dependsOn requires an options loader")
	}

	if field.Children != nil {
		if !field.Type.AcceptsOptions() {
			fail("children require a list-valued field", goerr.V("type", field.Type.String()))
		}
		field.Children.Range(func(childID string, child *Field) bool {
			if !child.Type.IsInput() {
				fail("child field must be an input", goerr.V("child", childID))
			}
			return true
		})
	}

	if field.MinLength < 0 || field.MaxLength < 0 {
		fail("length bounds cannot be negative")
	}
	if field.MinLength > 0 && field.MaxLength > 0 && field.MinLength > field.MaxLength {
		fail("minLength exceeds maxLength", goerr.V("minLength", field.MinLength), goerr.V("maxLength", field.MaxLength))
	}
	if field.Pattern != "" {
		if _, err := regexp.Compile(field.Pattern); err != nil {
			fail("pattern does not compile", goerr.V("pattern", field.Pattern))
		}
	}
	return errs
}
