package prompt

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/condition"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/multistep"
)

// scriptedDriver answers prompts from queues and records informational
// lines.
type scriptedDriver struct {
	inputs    []string
	passwords []string
	texts     []string
	confirms  []bool
	selects   []int
	multis    [][]int
	infos     []string
	asked     []string
	fail      error
}

func (s *scriptedDriver) record(msg string) error {
	s.asked = append(s.asked, msg)
	return s.fail
}

func next[T any](queue *[]T, what string) (T, error) {
	var zero T
	if len(*queue) == 0 {
		return zero, errors.New("no " + what + " scripted")
	}
	val := (*queue)[0]
	*queue = (*queue)[1:]
	return val, nil
}

func (s *scriptedDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	if err := s.record(cfg.Message); err != nil {
		return "", err
	}
	val, err := next(&s.inputs, "input")
	if err == nil && cfg.Validator != nil {
		err = cfg.Validator(val)
	}
	return val, err
}

func (s *scriptedDriver) Password(_ context.Context, cfg InputConfig) (string, error) {
	if err := s.record(cfg.Message); err != nil {
		return "", err
	}
	return next(&s.passwords, "password")
}

func (s *scriptedDriver) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	if err := s.record(cfg.Message); err != nil {
		return false, err
	}
	return next(&s.confirms, "confirm")
}

func (s *scriptedDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	if err := s.record(cfg.Message); err != nil {
		return -1, err
	}
	return next(&s.selects, "select")
}

func (s *scriptedDriver) MultiSelect(_ context.Context, cfg SelectConfig) ([]int, error) {
	if err := s.record(cfg.Message); err != nil {
		return nil, err
	}
	return next(&s.multis, "multiselect")
}

func (s *scriptedDriver) TextArea(_ context.Context, cfg TextAreaConfig) (string, error) {
	if err := s.record(cfg.Message); err != nil {
		return "", err
	}
	return next(&s.texts, "textarea")
}

func (s *scriptedDriver) Info(_ context.Context, msg string) error {
	s.infos = append(s.infos, msg)
	return nil
}

func profileForm(t *testing.T) *form.Form {
	t.Helper()
	schema := model.NewSchema().
		Add("about", model.Field{Type: model.KindSection, Label: "About you"}).
		Add("name", model.Field{Type: model.KindText, Label: "Name", Required: true}).
		Add("age", model.Field{Type: model.KindNumber, Label: "Age"}).
		Add("plan", model.Field{Type: model.KindSelect, Label: "Plan", Options: []model.Option{
			{Label: "Basic", Value: "basic"},
			{Label: "Pro", Value: "pro"},
		}}).
		Add("seats", model.Field{Type: model.KindNumber, Label: "Seats", Condition: condition.MustCompile("plan == 'pro'").Field()}).
		Add("topics", model.Field{Type: model.KindCheckbox, Label: "Topics", Options: []model.Option{
			{Label: "Go", Value: "go"},
			{Label: "Legacy", Value: "legacy", Disabled: true},
			{Label: "Rust", Value: "rust"},
		}}).
		Add("agree", model.Field{Type: model.KindCheckbox, Label: "Agree"}).
		Add("bio", model.Field{Type: model.KindTextArea, Label: "Bio"}).
		Add("secret", model.Field{Type: model.KindPassword, Label: "Secret"}).
		Add("locked", model.Field{Type: model.KindText, Label: "Locked", Value: "x", Disabled: true})
	f, err := form.New(context.Background(), schema)
	if err != nil {
		t.Fatalf("form.New: %v", err)
	}
	return f
}

func TestRunFormAsksAgainUntilValid(t *testing.T) {
	driver := &scriptedDriver{
		inputs:    []string{"", "42", "Ada"},
		selects:   []int{0},
		multis:    [][]int{{1}},
		confirms:  []bool{true},
		texts:     []string{"hi"},
		passwords: []string{"s3cret"},
	}
	data, err := NewRunner(driver).RunForm(context.Background(), profileForm(t))
	if err != nil {
		t.Fatalf("RunForm: %v", err)
	}

	want := model.FormData{
		"name":   "Ada",
		"age":    42.0,
		"plan":   "basic",
		"topics": []any{"rust"},
		"agree":  true,
		"bio":    "hi",
		"secret": "s3cret",
		"locked": "x",
	}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}

	wantAsked := []string{"Name *", "Age", "Plan", "Topics", "Agree", "Bio", "Secret", "Name *"}
	if diff := cmp.Diff(wantAsked, driver.asked); diff != "" {
		t.Fatalf("asked mismatch (-want +got):\n%s", diff)
	}
	wantInfos := []string{"== About you ==", "  ! Name *: This field is required"}
	if diff := cmp.Diff(wantInfos, driver.infos); diff != "" {
		t.Fatalf("infos mismatch (-want +got):\n%s", diff)
	}
}

func TestRunFormGivesUp(t *testing.T) {
	schema := model.NewSchema().Add("name", model.Field{Type: model.KindText, Required: true})
	f, err := form.New(context.Background(), schema)
	if err != nil {
		t.Fatalf("form.New: %v", err)
	}
	driver := &scriptedDriver{inputs: []string{"", ""}}
	_, err = NewRunner(driver, WithAttempts(2)).RunForm(context.Background(), f)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestRunFormAborted(t *testing.T) {
	schema := model.NewSchema().Add("name", model.Field{Type: model.KindText})
	f, err := form.New(context.Background(), schema)
	if err != nil {
		t.Fatalf("form.New: %v", err)
	}
	_, err = NewRunner(&scriptedDriver{fail: ErrAborted}).RunForm(context.Background(), f)
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
}

func TestRunFormRepeatRows(t *testing.T) {
	children := model.NewSchema().Add("fullName", model.Field{Type: model.KindText, Label: "Full name"})
	schema := model.NewSchema().Add("contacts", model.Field{Type: model.KindRepeat, Label: "Contacts", Children: children})
	f, err := form.New(context.Background(), schema)
	if err != nil {
		t.Fatalf("form.New: %v", err)
	}
	driver := &scriptedDriver{inputs: []string{"Ada", "Grace"}, confirms: []bool{true, true, false}}
	data, err := NewRunner(driver).RunForm(context.Background(), f)
	if err != nil {
		t.Fatalf("RunForm: %v", err)
	}
	want := []model.Option{
		{Label: "1", Value: 0, Other: map[string]any{"fullName": "Ada"}},
		{Label: "2", Value: 1, Other: map[string]any{"fullName": "Grace"}},
	}
	if diff := cmp.Diff(want, data["contacts"]); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func signupMachine(t *testing.T, validation multistep.Validation) *multistep.Machine {
	t.Helper()
	account := model.NewSchema().Add("email", model.Field{Type: model.KindEmail, Label: "Email", Required: true})
	m, err := multistep.New(context.Background(), []multistep.Step{
		{ID: "account", Title: "Account", Schema: account},
		{ID: "confirm", Title: "Confirm", Component: "summary", Validation: validation},
	}, multistep.WithConfig(multistep.Config{ShowProgress: true, AllowStepNavigation: true, ValidateFields: true}))
	if err != nil {
		t.Fatalf("multistep.New: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func TestRunMachineWithBackNavigation(t *testing.T) {
	driver := &scriptedDriver{
		inputs:  []string{"ada@example.com", "ada@example.org"},
		selects: []int{1, 0},
	}
	data, err := NewRunner(driver).RunMachine(context.Background(), signupMachine(t, nil))
	if err != nil {
		t.Fatalf("RunMachine: %v", err)
	}
	if got := data.Steps["account"]["email"]; got != "ada@example.org" {
		t.Fatalf("expected the second answer to win, got %#v", got)
	}
	wantInfos := []string{
		"Step 1/2: Account (50%)",
		"Step 2/2: Confirm (100%)",
		`Step "confirm" is handled by component "summary"`,
		"Step 1/2: Account (50%)",
		"Step 2/2: Confirm (100%)",
		`Step "confirm" is handled by component "summary"`,
	}
	if diff := cmp.Diff(wantInfos, driver.infos); diff != "" {
		t.Fatalf("infos mismatch (-want +got):\n%s", diff)
	}
}

func TestRunMachineStepValidationFails(t *testing.T) {
	reject := func(context.Context, model.FormData, model.ComputedData) ([]string, error) {
		return []string{"Accept the terms"}, nil
	}
	driver := &scriptedDriver{
		inputs:  []string{"ada@example.com"},
		selects: []int{0, 0},
	}
	_, err := NewRunner(driver, WithAttempts(2)).RunMachine(context.Background(), signupMachine(t, reject))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if last := driver.infos[len(driver.infos)-1]; last != "  ! Accept the terms" {
		t.Fatalf("expected step message reported, got %q", last)
	}
}
