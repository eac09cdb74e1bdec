package form

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/condition"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/options"
	"github.com/goliatone/go-formflow/pkg/values"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) listen(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func upperCompute() model.ComputeFunc {
	return model.Compute(func(v any) any { return strings.ToUpper(values.String(v)) })
}

func TestNewDerivesData(t *testing.T) {
	schema := model.NewSchema().
		Add("intro", model.Field{Type: model.KindSection, Label: "Intro"}).
		Add("name", model.Field{Type: model.KindText, Value: "ada", ComputedValue: upperCompute()}).
		Add("email", model.Field{Type: model.KindEmail})

	f, err := New(context.Background(), schema)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if diff := cmp.Diff(model.FormData{"name": "ada"}, f.FormData()); diff != "" {
		t.Fatalf("form data mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(model.ComputedData{"name": "ADA"}, f.ComputedData()); diff != "" {
		t.Fatalf("computed data mismatch (-want +got):\n%s", diff)
	}
}

func TestNewRejectsInvalidSchema(t *testing.T) {
	if _, err := New(context.Background(), nil); !errors.Is(err, model.ErrInvalidSchema) {
		t.Fatalf("expected ErrInvalidSchema, got %v", err)
	}
	bad := model.NewSchema().Add("x", model.Field{})
	if _, err := New(context.Background(), bad); !errors.Is(err, model.ErrInvalidSchema) {
		t.Fatalf("expected ErrInvalidSchema, got %v", err)
	}
}

func TestSetValuePublishesChanges(t *testing.T) {
	schema := model.NewSchema().
		Add("name", model.Field{Type: model.KindText, ComputedValue: upperCompute()}).
		Add("other", model.Field{Type: model.KindText, Value: "x"})
	f, err := New(context.Background(), schema)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec := &recorder{}
	unsubscribe := f.Subscribe(rec.listen)

	if err := f.SetValue(context.Background(), "name", "bob"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	want := []Event{
		{Kind: EventValueChanged, Fields: []string{"name"}},
		{Kind: EventComputedChanged, Fields: []string{"name"}},
	}
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}

	// writing the same value again changes nothing
	if err := f.SetValue(context.Background(), "name", "bob"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if len(rec.events) != 2 {
		t.Fatalf("expected no events for an unchanged value, got %v", rec.kinds())
	}

	if err := f.ClearValue(context.Background(), "name"); err != nil {
		t.Fatalf("ClearValue: %v", err)
	}
	if _, ok := f.Value("name"); ok {
		t.Fatalf("expected cleared value to be undefined")
	}
	if _, ok := f.ComputedData()["name"]; ok {
		t.Fatalf("expected computed entry to be removed")
	}

	unsubscribe()
	before := len(rec.events)
	_ = f.SetValue(context.Background(), "other", "y")
	if len(rec.events) != before {
		t.Fatalf("expected no events after unsubscribe")
	}
}

func TestSetValueErrors(t *testing.T) {
	schema := model.NewSchema().
		Add("section", model.Field{Type: model.KindSection}).
		Add("name", model.Field{Type: model.KindText})
	f, err := New(context.Background(), schema)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := f.SetValue(context.Background(), "missing", "x"); !errors.Is(err, model.ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if err := f.SetValue(context.Background(), "section", "x"); !errors.Is(err, model.ErrNotInput) {
		t.Fatalf("expected ErrNotInput, got %v", err)
	}
	if err := f.SetValues(context.Background(), map[string]any{"name": "ok", "missing": 1}); err == nil {
		t.Fatalf("expected batch with unknown field to fail")
	}
	if _, ok := f.Value("name"); ok {
		t.Fatalf("expected failed batch to write nothing")
	}
}

func TestSetValueIsolatesComputeFailures(t *testing.T) {
	schema := model.NewSchema().
		Add("bad", model.Field{Type: model.KindText, ComputedValue: func(context.Context, any, *model.Schema) (any, error) {
			return nil, errors.New("boom")
		}}).
		Add("good", model.Field{Type: model.KindText, ComputedValue: upperCompute()})
	f, err := New(context.Background(), schema)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = f.SetValues(context.Background(), map[string]any{"bad": "x", "good": "y"})
	if err == nil {
		t.Fatalf("expected field failure")
	}
	if diff := cmp.Diff(model.ComputedData{"good": "Y"}, f.ComputedData()); diff != "" {
		t.Fatalf("computed mismatch (-want +got):\n%s", diff)
	}
}

func districtLoader(calls *int) model.OptionsLoader {
	return func(_ context.Context, _ string, deps map[string]any) ([]model.Option, error) {
		*calls++
		switch deps["country"] {
		case "malawi":
			return []model.Option{{Label: "Lilongwe", Value: "lilongwe"}, {Label: "Zomba", Value: "zomba"}}, nil
		case "zambia":
			return []model.Option{{Label: "Lusaka", Value: "lusaka"}}, nil
		}
		return nil, nil
	}
}

func TestDependentOptions(t *testing.T) {
	var calls int
	schema := model.NewSchema().
		Add("country", model.Field{Type: model.KindSelect, Options: []model.Option{{Label: "Malawi", Value: "malawi"}, {Label: "Zambia", Value: "zambia"}}}).
		Add("district", model.Field{Type: model.KindSelect, DependsOn: []string{"country"}, OptionsLoader: districtLoader(&calls)})

	f, err := New(context.Background(), schema)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no load without a country, got %d", calls)
	}

	rec := &recorder{}
	f.Subscribe(rec.listen)

	if err := f.SetValue(context.Background(), "country", "malawi"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one load, got %d", calls)
	}
	district, _ := f.Field("district")
	if len(district.Options) != 2 {
		t.Fatalf("expected malawi districts, got %+v", district.Options)
	}
	if diff := cmp.Diff(map[string]any{"country": "malawi"}, f.DependencyValues("district")); diff != "" {
		t.Fatalf("dependency values mismatch (-want +got):\n%s", diff)
	}

	if err := f.SetValue(context.Background(), "district", "zomba"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if calls != 1 {
		t.Fatalf("changing the dependent must not reload it, got %d loads", calls)
	}

	if err := f.SetValue(context.Background(), "country", "zambia"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected a single reload, got %d loads", calls)
	}
	if got, _ := f.Value("district"); got != "" {
		t.Fatalf("expected stale district reset to empty string, got %#v", got)
	}

	want := []EventKind{
		EventValueChanged, EventOptionsUpdated, // country = malawi
		EventValueChanged,                      // district = zomba
		EventValueChanged, EventOptionsUpdated, // country = zambia
		EventValueChanged, EventValueReset, // district reset
	}
	if diff := cmp.Diff(want, rec.kinds()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestLoaderWithoutDependenciesLoadsOnce(t *testing.T) {
	var calls int
	schema := model.NewSchema().Add("tags", model.Field{
		Type: model.KindSelect,
		OptionsLoader: func(_ context.Context, filter string, _ map[string]any) ([]model.Option, error) {
			calls++
			return []model.Option{{Label: "Go" + filter, Value: "go" + filter}}, nil
		},
	})
	f, err := New(context.Background(), schema)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one initial load, got %d", calls)
	}
	if outcome := f.FilterOptions(context.Background(), "tags", "lang"); outcome != options.OutcomeUpdated {
		t.Fatalf("expected filter load, got %v", outcome)
	}
	field, _ := f.Field("tags")
	if diff := cmp.Diff([]model.Option{{Label: "Golang", Value: "golang"}}, field.Options); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestRegisterDependency(t *testing.T) {
	var calls int
	schema := model.NewSchema().
		Add("country", model.Field{Type: model.KindSelect, Value: "zambia"}).
		Add("district", model.Field{Type: model.KindSelect})
	f, err := New(context.Background(), schema)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	outcome, err := f.RegisterDependency(context.Background(), "district", []string{"country"}, districtLoader(&calls))
	if err != nil || outcome != options.OutcomeUpdated {
		t.Fatalf("RegisterDependency = %v, %v", outcome, err)
	}
	if _, err := f.RegisterDependency(context.Background(), "missing", nil, districtLoader(&calls)); !errors.Is(err, model.ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestVisibility(t *testing.T) {
	schema := model.NewSchema().
		Add("mode", model.Field{Type: model.KindSelect, Value: "a"}).
		Add("extra", model.Field{Type: model.KindText, Condition: condition.MustCompile("mode == 'b'").Field()}).
		Add("secret", model.Field{Type: model.KindText, Hidden: true})
	f, err := New(context.Background(), schema)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if diff := cmp.Diff([]string{"mode"}, f.VisibleFields()); diff != "" {
		t.Fatalf("visible mismatch (-want +got):\n%s", diff)
	}
	_ = f.SetValue(context.Background(), "mode", "b")
	if !f.Visible("extra") || f.Visible("secret") || f.Visible("missing") {
		t.Fatalf("unexpected visibility after mode change")
	}
}

func TestResolveValues(t *testing.T) {
	schema := model.NewSchema().
		Add("user", model.Field{Type: model.KindText, Resolve: func(context.Context) (any, error) { return "ada", nil }}).
		Add("broken", model.Field{Type: model.KindText, Value: "kept", Resolve: func(context.Context) (any, error) { return nil, errors.New("offline") }})
	f, err := New(context.Background(), schema)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := model.FormData{"user": "ada", "broken": "kept"}
	if diff := cmp.Diff(want, f.FormData()); diff != "" {
		t.Fatalf("form data mismatch (-want +got):\n%s", diff)
	}
	defaults, _ := f.Defaults().Field("user")
	if defaults.Value != "ada" {
		t.Fatalf("expected resolved values to become defaults, got %#v", defaults.Value)
	}
}
