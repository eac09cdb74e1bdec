package values

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDeepEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{name: "identical strings", a: "a", b: "a", want: true},
		{name: "different strings", a: "a", b: "b", want: false},
		{name: "nil pair", a: nil, b: nil, want: true},
		{name: "nil vs null", a: nil, b: Null, want: false},
		{name: "null pair", a: Null, b: Null, want: true},
		{name: "nil vs empty string", a: nil, b: "", want: false},
		{name: "numbers across types", a: 1, b: float64(1), want: true},
		{name: "number vs string", a: 1, b: "1", want: false},
		{name: "large int64 values differ", a: int64(1<<53 + 1), b: int64(1 << 53), want: false},
		{name: "large uint64 values differ", a: uint64(1<<63 + 1), b: uint64(1 << 63), want: false},
		{name: "int64 vs uint64", a: int64(1<<60 + 1), b: uint64(1<<60 + 1), want: true},
		{name: "negative int vs uint", a: -1, b: uint64(1<<64 - 1), want: false},
		{name: "sequences in order", a: []any{"a", 1}, b: []any{"a", 1}, want: true},
		{name: "sequences out of order", a: []any{"a", "b"}, b: []any{"b", "a"}, want: false},
		{name: "sequences different length", a: []any{"a"}, b: []any{"a", "b"}, want: false},
		{name: "maps ignore order", a: map[string]any{"x": 1, "y": "z"}, b: map[string]any{"y": "z", "x": 1}, want: true},
		{name: "maps differ in keys", a: map[string]any{"x": 1}, b: map[string]any{"y": 1}, want: false},
		{name: "nested maps", a: map[string]any{"x": []any{map[string]any{"k": "v"}}}, b: map[string]any{"x": []any{map[string]any{"k": "v"}}}, want: true},
		{name: "nested maps differ", a: map[string]any{"x": []any{map[string]any{"k": "v"}}}, b: map[string]any{"x": []any{map[string]any{"k": "w"}}}, want: false},
		{name: "structs", a: struct{ A string }{"a"}, b: struct{ A string }{"a"}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeepEqual(tt.a, tt.b); got != tt.want {
				t.Fatalf("DeepEqual(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := DeepEqual(tt.b, tt.a); got != tt.want {
				t.Fatalf("DeepEqual is not symmetric for %v, %v", tt.a, tt.b)
			}
		})
	}
}

func TestIsEmpty(t *testing.T) {
	var nilSlice []any
	tests := []struct {
		value any
		want  bool
	}{
		{nil, true},
		{Null, true},
		{"", true},
		{" ", false},
		{false, true},
		{true, false},
		{0, true},
		{0.5, false},
		{[]any{}, true},
		{nilSlice, true},
		{[]any{""}, false},
		{map[string]any{}, true},
		{"x", false},
	}
	for _, tt := range tests {
		if got := IsEmpty(tt.value); got != tt.want {
			t.Fatalf("IsEmpty(%#v) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestIsUnsetDistinguishesEmptyString(t *testing.T) {
	if !IsUnset(nil) || !IsUnset(Null) {
		t.Fatalf("expected nil and Null to be unset")
	}
	if IsUnset("") {
		t.Fatalf("empty string is a defined value")
	}
	if IsNull(nil) {
		t.Fatalf("nil is not the null marker")
	}
}

func TestCloneIsDeep(t *testing.T) {
	original := map[string]any{
		"list": []any{"a", map[string]any{"k": "v"}},
	}
	cloned := Clone(original).(map[string]any)
	cloned["list"].([]any)[1].(map[string]any)["k"] = "changed"

	want := map[string]any{"list": []any{"a", map[string]any{"k": "v"}}}
	if diff := cmp.Diff(want, original); diff != "" {
		t.Fatalf("original mutated through clone (-want +got):\n%s", diff)
	}
	if Clone(nil) != nil {
		t.Fatalf("expected Clone(nil) to stay nil")
	}
	if !IsNull(Clone(Null)) {
		t.Fatalf("expected Null to survive cloning")
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{nil, ""},
		{"x", "x"},
		{true, "true"},
		{float64(2), "2"},
		{1.5, "1.5"},
		{42, "42"},
		{Null, "null"},
	}
	for _, tt := range tests {
		if got := String(tt.value); got != tt.want {
			t.Fatalf("String(%#v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestTruthy(t *testing.T) {
	if Truthy("   ") {
		t.Fatalf("whitespace must not be truthy")
	}
	if !Truthy("x") || !Truthy(1) || !Truthy([]any{"a"}) {
		t.Fatalf("expected non-empty values to be truthy")
	}
	if Truthy(nil) || Truthy(false) {
		t.Fatalf("expected nil and false to be falsy")
	}
}

func TestNullMarshalsAsNull(t *testing.T) {
	out, err := Null.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(out) != "null" {
		t.Fatalf("expected null, got %s", out)
	}
}
