package form

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/condition"
	"github.com/goliatone/go-formflow/pkg/model"
)

func TestResetHonoursPreservation(t *testing.T) {
	schema := model.NewSchema().
		Add("name", model.Field{Type: model.KindText, Value: "", Required: true}).
		Add("mode", model.Field{Type: model.KindSelect, Value: "a"}).
		Add("extra", model.Field{Type: model.KindText, Condition: condition.MustCompile("mode == 'b'").Field()}).
		Add("locked", model.Field{Type: model.KindText, Value: "x", Disabled: true})
	f, err := New(context.Background(), schema)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	_ = f.SetValues(ctx, map[string]any{"name": "bob", "mode": "b"})
	_ = f.SetValue(ctx, "extra", "keep")
	_ = f.SetValues(ctx, map[string]any{"mode": "a", "locked": "y"})
	f.Validate(ctx)

	rec := &recorder{}
	f.Subscribe(rec.listen)
	if err := f.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	want := model.FormData{"name": "", "mode": "a", "extra": "keep", "locked": "y"}
	if diff := cmp.Diff(want, f.FormData()); diff != "" {
		t.Fatalf("form data mismatch (-want +got):\n%s", diff)
	}
	if len(f.Errors()) != 0 {
		t.Fatalf("expected errors cleared, got %v", f.Errors())
	}
	last := rec.events[len(rec.events)-1]
	if diff := cmp.Diff(Event{Kind: EventReset, Fields: []string{"name", "mode"}}, last); diff != "" {
		t.Fatalf("reset event mismatch (-want +got):\n%s", diff)
	}
}

func TestShouldPreserve(t *testing.T) {
	hide := func(model.FormData, model.ComputedData) bool { return false }
	tests := []struct {
		name  string
		field model.Field
		want  bool
	}{
		{name: "editable", field: model.Field{Type: model.KindText}, want: false},
		{name: "disabled", field: model.Field{Type: model.KindText, Disabled: true}, want: true},
		{name: "hidden", field: model.Field{Type: model.KindText, Hidden: true}, want: true},
		{name: "condition false", field: model.Field{Type: model.KindText, Condition: hide}, want: true},
	}
	for _, tt := range tests {
		if got := ShouldPreserve(tt.field, nil, nil); got != tt.want {
			t.Fatalf("%s: ShouldPreserve = %v, want %v", tt.name, got, tt.want)
		}
	}
}
