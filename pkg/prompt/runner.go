package prompt

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/multistep"
	"github.com/goliatone/go-formflow/pkg/values"
)

const defaultAttempts = 3

// Runner walks forms and multi-step machines through a Driver.
type Runner struct {
	driver   Driver
	logger   *slog.Logger
	attempts int
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger routes runner logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithAttempts bounds how often invalid fields or steps are asked again.
func WithAttempts(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.attempts = n
		}
	}
}

// NewRunner returns a Runner using driver, or a survey driver on stdout
// when driver is nil.
func NewRunner(driver Driver, opts ...Option) *Runner {
	if driver == nil {
		driver = NewSurveyDriver(nil)
	}
	r := &Runner{driver: driver, logger: slog.Default(), attempts: defaultAttempts}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// RunForm asks every visible, enabled input of f in schema order, then
// validates. Fields with errors are asked again until the form is valid or
// the attempts are used up.
func (r *Runner) RunForm(ctx context.Context, f *form.Form) (model.FormData, error) {
	if f == nil {
		return nil, goerr.New("prompt: form is nil")
	}
	var only map[string]bool
	for attempt := 1; ; attempt++ {
		if err := r.askFields(ctx, f, only); err != nil {
			return nil, err
		}
		if f.Validate(ctx) {
			return f.FormData(), nil
		}
		failed := failedFields(f.Errors())
		if err := r.report(ctx, failed, f); err != nil {
			return nil, err
		}
		if attempt >= r.attempts {
			return nil, goerr.Wrap(ErrInvalid, "validation failed", goerr.V("fields", sortedKeys(failed)))
		}
		only = failed
	}
}

// RunMachine walks the visible steps of m. Each schema step is asked
// through its form; component steps are announced and left to their
// component. A step whose validation fails is asked again.
func (r *Runner) RunMachine(ctx context.Context, m *multistep.Machine) (multistep.MultiStepFormData, error) {
	if m == nil {
		return multistep.MultiStepFormData{}, goerr.New("prompt: machine is nil")
	}
	failures := make(map[string]int)
	for {
		if err := ctx.Err(); err != nil {
			return multistep.MultiStepFormData{}, err
		}
		step, ok := m.CurrentStep()
		if !ok {
			return m.MultiStepFormData(), nil
		}
		if err := r.driver.Info(ctx, stepHeader(m, step)); err != nil {
			return multistep.MultiStepFormData{}, err
		}
		if f, ok := m.StepForm(step.ID); ok {
			if err := r.askFields(ctx, f, nil); err != nil {
				return multistep.MultiStepFormData{}, err
			}
		} else if err := r.driver.Info(ctx, fmt.Sprintf("Step %q is handled by component %q", step.ID, step.Component)); err != nil {
			return multistep.MultiStepFormData{}, err
		}

		if back, err := r.askBack(ctx, m); err != nil {
			return multistep.MultiStepFormData{}, err
		} else if back {
			m.PreviousStep(ctx)
			continue
		}

		if m.IsLastStep() {
			if m.ValidateCurrentStep(ctx) {
				return m.MultiStepFormData(), nil
			}
		} else if m.NextStep(ctx) {
			continue
		}

		failures[step.ID]++
		msgs := m.StepErrors(step.ID)
		r.logger.Debug("step validation failed", "step", step.ID, "messages", msgs)
		for _, msg := range msgs {
			if err := r.driver.Info(ctx, "  ! "+msg); err != nil {
				return multistep.MultiStepFormData{}, err
			}
		}
		if failures[step.ID] >= r.attempts {
			return multistep.MultiStepFormData{}, goerr.Wrap(ErrInvalid, "step validation failed", goerr.V("step", step.ID))
		}
	}
}

func (r *Runner) askBack(ctx context.Context, m *multistep.Machine) (bool, error) {
	if !m.Config().AllowStepNavigation || !m.CanGoPrevious() {
		return false, nil
	}
	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      "Continue?",
		Options:      []string{"Next", "Back"},
		DefaultIndex: 0,
	})
	if err != nil {
		return false, err
	}
	return idx == 1, nil
}

func stepHeader(m *multistep.Machine, step multistep.Step) string {
	title := step.Title
	if title == "" {
		title = step.ID
	}
	header := fmt.Sprintf("Step %d/%d: %s", m.CurrentIndex()+1, m.TotalSteps(), title)
	if m.Config().ShowProgress {
		header += fmt.Sprintf(" (%d%%)", m.ProgressPercentage())
	}
	if step.Subtitle != "" {
		header += "\n" + step.Subtitle
	}
	return header
}

func (r *Runner) askFields(ctx context.Context, f *form.Form, only map[string]bool) error {
	for _, id := range f.Schema().IDs() {
		if only != nil && !only[id] {
			continue
		}
		if !f.Visible(id) {
			continue
		}
		field, ok := f.Field(id)
		if !ok {
			continue
		}
		if field.Type == model.KindSection {
			if field.Label != "" {
				if err := r.driver.Info(ctx, "== "+field.Label+" =="); err != nil {
					return err
				}
			}
			continue
		}
		if field.Disabled || !field.Type.IsInput() {
			continue
		}

		current, _ := f.Value(id)
		value, set, err := r.ask(ctx, id, field, current)
		if err != nil {
			return goerr.Wrap(err, "prompt failed", goerr.V("field", id))
		}
		if !set {
			if err := f.ClearValue(ctx, id); err != nil {
				return err
			}
			continue
		}
		if err := f.SetValue(ctx, id, value); err != nil {
			return err
		}
	}
	return nil
}

// ask prompts for one field. set is false when the answer clears the value.
func (r *Runner) ask(ctx context.Context, id string, field model.Field, current any) (any, bool, error) {
	message := label(id, field)
	help := field.Error

	switch field.Type {
	case model.KindPassword:
		s, err := r.driver.Password(ctx, InputConfig{Message: message, Help: help})
		return s, true, err
	case model.KindTextArea:
		s, err := r.driver.TextArea(ctx, TextAreaConfig{Message: message, Help: help, Default: defaultText(current)})
		return s, true, err
	case model.KindNumber:
		s, err := r.driver.Input(ctx, InputConfig{
			Message:   message,
			Help:      help,
			Default:   defaultText(current),
			Validator: numeric,
		})
		if err != nil || strings.TrimSpace(s) == "" {
			return nil, false, err
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return n, true, err
	case model.KindCheckbox:
		if len(field.Options) == 0 {
			ok, err := r.driver.Confirm(ctx, ConfirmConfig{Message: message, Help: help, Default: values.Truthy(current)})
			return ok, true, err
		}
		return r.askChoices(ctx, message, help, field, current, true)
	case model.KindSelect, model.KindRadio:
		return r.askChoices(ctx, message, help, field, current, field.Multiple)
	case model.KindRepeat:
		return r.askRepeat(ctx, message, field, current)
	default:
		s, err := r.driver.Input(ctx, InputConfig{Message: message, Help: help, Default: defaultText(current)})
		return s, true, err
	}
}

func (r *Runner) askChoices(ctx context.Context, message, help string, field model.Field, current any, multiple bool) (any, bool, error) {
	labels, choices := selectable(field.Options)
	if len(choices) == 0 {
		r.logger.Debug("no options to choose from", "field", message)
		return nil, false, r.driver.Info(ctx, message+": no options available")
	}
	if multiple {
		idx, err := r.driver.MultiSelect(ctx, SelectConfig{
			Message:  message,
			Help:     help,
			Options:  labels,
			Defaults: selectedIndices(choices, current),
		})
		if err != nil {
			return nil, false, err
		}
		out := make([]any, 0, len(idx))
		for _, i := range idx {
			if i >= 0 && i < len(choices) {
				out = append(out, choices[i].Value)
			}
		}
		return out, true, nil
	}

	defaultIdx := -1
	if sel := selectedIndices(choices, current); len(sel) > 0 {
		defaultIdx = sel[0]
	}
	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      message,
		Help:         help,
		Options:      labels,
		DefaultIndex: defaultIdx,
	})
	if err != nil {
		return nil, false, err
	}
	if idx < 0 || idx >= len(choices) {
		return nil, false, nil
	}
	return choices[idx].Value, true, nil
}

func (r *Runner) askRepeat(ctx context.Context, message string, field model.Field, current any) (any, bool, error) {
	rows, _ := model.OptionsOf(current)
	if field.Children == nil {
		return rows, len(rows) > 0, nil
	}
	for {
		more, err := r.driver.Confirm(ctx, ConfirmConfig{Message: fmt.Sprintf("Add an entry to %s?", message)})
		if err != nil {
			return nil, false, err
		}
		if !more {
			break
		}
		other := make(map[string]any)
		for _, childID := range field.Children.IDs() {
			child, ok := field.Children.Field(childID)
			if !ok || !child.Type.IsInput() {
				continue
			}
			value, set, err := r.ask(ctx, childID, *child, nil)
			if err != nil {
				return nil, false, err
			}
			if set {
				other[childID] = value
			}
		}
		rows = append(rows, model.Option{Label: strconv.Itoa(len(rows) + 1), Value: len(rows), Other: other})
	}
	return rows, len(rows) > 0, nil
}

func (r *Runner) report(ctx context.Context, failed map[string]bool, f *form.Form) error {
	errs := f.Errors()
	for _, id := range sortedKeys(failed) {
		field, _ := f.Field(id)
		for _, msg := range errs[id] {
			if err := r.driver.Info(ctx, fmt.Sprintf("  ! %s: %s", label(id, field), msg)); err != nil {
				return err
			}
		}
	}
	return nil
}

func label(id string, field model.Field) string {
	text := strings.TrimSpace(field.Label)
	if text == "" {
		text = id
	}
	if field.Required {
		text += " *"
	}
	return text
}

func defaultText(current any) string {
	if values.IsUnset(current) {
		return ""
	}
	return values.String(current)
}

func numeric(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return fmt.Errorf("%q is not a number", s)
	}
	return nil
}

// selectable drops disabled options and returns unique display labels.
func selectable(options []model.Option) ([]string, []model.Option) {
	labels := make([]string, 0, len(options))
	choices := make([]model.Option, 0, len(options))
	seen := make(map[string]int, len(options))
	for _, opt := range options {
		if opt.Disabled {
			continue
		}
		text := strings.TrimSpace(opt.Label)
		if text == "" {
			text = values.String(opt.Value)
		}
		if n := seen[text]; n > 0 {
			seen[text] = n + 1
			text = fmt.Sprintf("%s (%d)", text, n+1)
		} else {
			seen[text] = 1
		}
		labels = append(labels, text)
		choices = append(choices, opt)
	}
	return labels, choices
}

func selectedIndices(choices []model.Option, current any) []int {
	if values.IsEmpty(current) {
		return nil
	}
	var selected []any
	switch v := current.(type) {
	case []any:
		selected = v
	case []string:
		for _, s := range v {
			selected = append(selected, s)
		}
	default:
		selected = []any{v}
	}
	var out []int
	for i, opt := range choices {
		for _, s := range selected {
			if values.DeepEqual(opt.Value, s) {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

func failedFields(errs map[string][]string) map[string]bool {
	out := make(map[string]bool, len(errs))
	for id, msgs := range errs {
		if len(msgs) > 0 {
			out[id] = true
		}
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
