package model

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSchemaKeepsInsertionOrder(t *testing.T) {
	schema := NewSchema().
		Add("b", Field{Type: KindText}).
		Add("a", Field{Type: KindText}).
		Add("c", Field{Type: KindNumber})

	schema.Add("a", Field{Type: KindEmail})
	if diff := cmp.Diff([]string{"b", "a", "c"}, schema.IDs()); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	field, ok := schema.Field("a")
	if !ok || field.Type != KindEmail {
		t.Fatalf("expected replaced descriptor, got %+v", field)
	}

	if !schema.Remove("b") || schema.Remove("missing") {
		t.Fatalf("unexpected Remove results")
	}
	if diff := cmp.Diff([]string{"a", "c"}, schema.IDs()); diff != "" {
		t.Fatalf("ids after remove mismatch (-want +got):\n%s", diff)
	}
	schema.Add("  ", Field{Type: KindText})
	if schema.Len() != 2 {
		t.Fatalf("expected empty ids to be ignored, len=%d", schema.Len())
	}
}

func TestSchemaCloneIsIndependent(t *testing.T) {
	schema := NewSchema().Add("tags", Field{
		Type:    KindSelect,
		Value:   []any{"a"},
		Options: []Option{{Label: "A", Value: "a"}},
	})
	cloned := schema.Clone()

	field, _ := cloned.Field("tags")
	field.Value.([]any)[0] = "changed"
	field.Options[0].Label = "changed"

	original, _ := schema.Field("tags")
	if diff := cmp.Diff([]any{"a"}, original.Value); diff != "" {
		t.Fatalf("original value mutated (-want +got):\n%s", diff)
	}
	if original.Options[0].Label != "A" {
		t.Fatalf("original options mutated: %+v", original.Options)
	}
}

func TestSchemaValidate(t *testing.T) {
	loader := func(context.Context, string, map[string]any) ([]Option, error) { return nil, nil }
	tests := []struct {
		name   string
		schema *Schema
		ok     bool
	}{
		{
			name:   "valid",
			schema: NewSchema().Add("country", Field{Type: KindSelect}).Add("city", Field{Type: KindSelect, DependsOn: []string{"country"}, OptionsLoader: loader}),
			ok:     true,
		},
		{name: "nil schema", schema: nil},
		{name: "unknown kind", schema: NewSchema().Add("x", Field{})},
		{name: "section with value", schema: NewSchema().Add("s", Field{Type: KindSection, Value: "x"})},
		{name: "self dependency", schema: NewSchema().Add("x", Field{Type: KindSelect, DependsOn: []string{"x"}, OptionsLoader: loader})},
		{name: "unknown dependency", schema: NewSchema().Add("x", Field{Type: KindSelect, DependsOn: []string{"y"}, OptionsLoader: loader})},
		{name: "dependency without loader", schema: NewSchema().Add("y", Field{Type: KindText}).Add("x", Field{Type: KindSelect, DependsOn: []string{"y"}})},
		{name: "children on text", schema: NewSchema().Add("x", Field{Type: KindText, Children: NewSchema().Add("c", Field{Type: KindText})})},
		{name: "bad bounds", schema: NewSchema().Add("x", Field{Type: KindText, MinLength: 5, MaxLength: 2})},
		{name: "bad pattern", schema: NewSchema().Add("x", Field{Type: KindText, Pattern: "("})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate()
			if tt.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidSchema) {
				t.Fatalf("expected ErrInvalidSchema, got %v", err)
			}
		})
	}
}

func TestParseFieldKind(t *testing.T) {
	tests := map[string]FieldKind{
		"TextInput":     KindText,
		"select":        KindSelect,
		"SELECTINPUT":   KindSelect,
		" section ":     KindSection,
		"RepeatInput":   KindRepeat,
		"checkbox":      KindCheckbox,
		"TextAreaInput": KindTextArea,
	}
	for raw, want := range tests {
		got, err := ParseFieldKind(raw)
		if err != nil {
			t.Fatalf("ParseFieldKind(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseFieldKind(%q) = %v, want %v", raw, got, want)
		}
	}
	if _, err := ParseFieldKind("Slider"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
	if KindSection.IsInput() || !KindRadio.IsInput() {
		t.Fatalf("unexpected IsInput results")
	}
}

func TestFieldKindText(t *testing.T) {
	var kind FieldKind
	if err := kind.UnmarshalText([]byte("date")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	out, err := kind.MarshalText()
	if err != nil || string(out) != "DateInput" {
		t.Fatalf("MarshalText = %q, %v", out, err)
	}
	if _, err := KindUnknown.MarshalText(); err == nil {
		t.Fatalf("expected unknown kind to fail encoding")
	}
}

func TestOptionsOf(t *testing.T) {
	got, ok := OptionsOf([]any{
		map[string]any{"label": "A", "value": "a", "other": map[string]any{"qty": 1}},
		Option{Label: "B", Value: "b"},
	})
	if !ok {
		t.Fatalf("expected list to be recognised")
	}
	want := []Option{
		{Label: "A", Value: "a", Other: map[string]any{"qty": 1}},
		{Label: "B", Value: "b"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
	if _, ok := OptionsOf("plain"); ok {
		t.Fatalf("expected scalars to be rejected")
	}
	if _, ok := OptionsOf([]any{"a"}); ok {
		t.Fatalf("expected scalar lists to be rejected")
	}
}

func TestFieldInteractive(t *testing.T) {
	hidden := Field{Type: KindText, Condition: func(data FormData, _ ComputedData) bool {
		return data["show"] == true
	}}
	if hidden.Interactive(FormData{}, nil) {
		t.Fatalf("expected condition to hide the field")
	}
	if !hidden.Interactive(FormData{"show": true}, nil) {
		t.Fatalf("expected field to be interactive")
	}
	if (Field{Type: KindText, Disabled: true}).Interactive(nil, nil) {
		t.Fatalf("disabled fields are not interactive")
	}
}
