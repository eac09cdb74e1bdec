package multistep

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/m-mizutani/goerr/v2"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/validation"
)

// Machine drives a multi-step form: it tracks the visible steps, the current
// step, per-step data partitions and step validation errors.
//
// Visibility is re-evaluated lazily: step forms flag the machine dirty when
// their data changes, and the next call settles the visible set. A step that
// turns hidden has its data cleared under the preservation policy.
// Step callbacks must not call back into the Machine.
type Machine struct {
	mu       sync.Mutex
	cfg      Config
	logger   *slog.Logger
	formOpts []form.Option

	steps    []Step
	forms    map[string]*form.Form
	data     map[string]model.FormData
	computed map[string]model.ComputedData
	errors   map[string][]string

	visible   []int
	shown     map[string]bool
	index     int
	currentID string

	dirty  atomic.Bool
	unsubs []func()
}

// New builds a machine over steps. Every step with a Schema gets its own
// form.Form that takes ownership of the schema.
func New(ctx context.Context, steps []Step, opts ...Option) (*Machine, error) {
	m := &Machine{
		logger:   slog.Default(),
		forms:    make(map[string]*form.Form),
		data:     make(map[string]model.FormData),
		computed: make(map[string]model.ComputedData),
		errors:   make(map[string][]string),
		shown:    make(map[string]bool),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	if err := m.cfg.Validate(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(steps))
	formOpts := append([]form.Option{form.WithLogger(m.logger)}, m.formOpts...)
	for _, step := range steps {
		step.ID = strings.TrimSpace(step.ID)
		if step.ID == "" {
			return nil, goerr.Wrap(ErrInvalidConfig, "step id is empty", goerr.V("title", step.Title))
		}
		if _, dup := seen[step.ID]; dup {
			return nil, goerr.Wrap(ErrInvalidConfig, "duplicate step id", goerr.V("step", step.ID))
		}
		seen[step.ID] = struct{}{}

		if step.Schema != nil {
			f, err := form.New(ctx, step.Schema, formOpts...)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to build step form", goerr.V("step", step.ID))
			}
			m.forms[step.ID] = f
			m.unsubs = append(m.unsubs, f.Subscribe(func(form.Event) {
				m.dirty.Store(true)
			}))
		} else {
			m.data[step.ID] = model.FormData{}
			m.computed[step.ID] = model.ComputedData{}
		}
		m.steps = append(m.steps, step)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirty.Store(true)
	m.syncLocked(ctx)
	m.index = 0
	m.currentID = m.idAtLocked(0)
	return m, nil
}

// Close detaches the machine from its step forms.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil
}

// Config returns the presentation options.
func (m *Machine) Config() Config {
	return m.cfg
}

// Steps returns every configured step, visible or not.
func (m *Machine) Steps() []Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Step(nil), m.steps...)
}

// Refresh settles visibility and the current step after external changes.
func (m *Machine) Refresh(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncLocked(ctx)
}

// VisibleSteps returns the steps whose condition currently holds, in order.
func (m *Machine) VisibleSteps() []Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncLocked(context.Background())
	out := make([]Step, 0, len(m.visible))
	for _, idx := range m.visible {
		out = append(out, m.steps[idx])
	}
	return out
}

// CurrentIndex returns the position of the current step among the visible
// steps.
func (m *Machine) CurrentIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncLocked(context.Background())
	return m.index
}

// CurrentStep returns the current step, false when no step is visible.
func (m *Machine) CurrentStep() (Step, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncLocked(context.Background())
	return m.stepAtLocked(m.index)
}

// TotalSteps returns the number of visible steps.
func (m *Machine) TotalSteps() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncLocked(context.Background())
	return len(m.visible)
}

// IsFirstStep reports whether the current step is the first visible one.
func (m *Machine) IsFirstStep() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncLocked(context.Background())
	return m.index == 0
}

// IsLastStep reports whether the current step is the last visible one.
func (m *Machine) IsLastStep() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncLocked(context.Background())
	return m.index >= len(m.visible)-1
}

// CanGoNext reports whether a later visible step exists.
func (m *Machine) CanGoNext() bool {
	return !m.IsLastStep()
}

// CanGoPrevious reports whether an earlier visible step exists.
func (m *Machine) CanGoPrevious() bool {
	return !m.IsFirstStep()
}

// ProgressPercentage returns round((index+1)/visible*100), 0 without
// visible steps.
func (m *Machine) ProgressPercentage() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncLocked(context.Background())
	return progress(m.index, len(m.visible))
}

func progress(index, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(index+1) / float64(total) * 100))
}

// GoToStep moves to the visible step at index. Moving forward first
// validates the current step and aborts on failure; moving backward never
// validates.
func (m *Machine) GoToStep(ctx context.Context, index int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncLocked(ctx)
	return m.goToLocked(ctx, index)
}

// NextStep advances when a later visible step exists.
func (m *Machine) NextStep(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncLocked(ctx)
	if m.index >= len(m.visible)-1 {
		return false
	}
	return m.goToLocked(ctx, m.index+1)
}

// PreviousStep moves back when an earlier visible step exists.
func (m *Machine) PreviousStep(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncLocked(ctx)
	if m.index == 0 {
		return false
	}
	return m.goToLocked(ctx, m.index-1)
}

func (m *Machine) goToLocked(ctx context.Context, index int) bool {
	if index < 0 || index >= len(m.visible) {
		return false
	}
	if index > m.index && !m.validateCurrentLocked(ctx) {
		return false
	}
	m.index = index
	m.currentID = m.idAtLocked(index)
	return true
}

// ValidateCurrentStep runs the current step's validation and stores its
// messages under the step id.
func (m *Machine) ValidateCurrentStep(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncLocked(ctx)
	return m.validateCurrentLocked(ctx)
}

func (m *Machine) validateCurrentLocked(ctx context.Context) bool {
	step, ok := m.stepAtLocked(m.index)
	if !ok {
		return true
	}
	msgs := m.validateStepLocked(ctx, step)
	m.storeErrorsLocked(step.ID, msgs)
	return len(msgs) == 0
}

// ValidateAllSteps validates every configured step regardless of
// visibility and reports whether all passed.
func (m *Machine) ValidateAllSteps(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncLocked(ctx)
	valid := true
	for _, step := range m.steps {
		msgs := m.validateStepLocked(ctx, step)
		m.storeErrorsLocked(step.ID, msgs)
		if len(msgs) > 0 {
			valid = false
		}
	}
	return valid
}

func (m *Machine) validateStepLocked(ctx context.Context, step Step) []string {
	var msgs []string
	f := m.forms[step.ID]
	if f != nil && m.cfg.ValidateFields && !f.Validate(ctx) {
		fieldErrs := f.Errors()
		for _, id := range f.Schema().IDs() {
			msgs = append(msgs, fieldErrs[id]...)
		}
	}
	if step.Validation != nil {
		data, computed := m.partitionLocked(step.ID)
		extra, err := step.Validation(ctx, data, computed)
		if err != nil {
			m.logger.Error("step validation failed", slog.String("step", step.ID), slog.Any("error", err))
			msgs = append(msgs, err.Error())
		}
		msgs = append(msgs, extra...)
	}
	return validation.MergeMessages(msgs)
}

func (m *Machine) storeErrorsLocked(id string, msgs []string) {
	if len(msgs) == 0 {
		delete(m.errors, id)
		return
	}
	m.errors[id] = msgs
}

// StepErrors returns the stored validation messages of a step.
func (m *Machine) StepErrors(id string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.errors[id]...)
}

// Errors returns every stored step validation message keyed by step id.
func (m *Machine) Errors() map[string][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]string, len(m.errors))
	for id, msgs := range m.errors {
		out[id] = append([]string(nil), msgs...)
	}
	return out
}

// StepForm returns the form owning a schema step.
func (m *Machine) StepForm(id string) (*form.Form, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.forms[id]
	return f, ok
}

// UpdateStepData merges data into a step. Schema steps route the values
// through their form; component steps merge them into the partition.
func (m *Machine) UpdateStepData(ctx context.Context, id string, data model.FormData) error {
	m.mu.Lock()
	if !m.hasStepLocked(id) {
		m.mu.Unlock()
		return goerr.Wrap(ErrUnknownStep, "cannot update step data", goerr.V("step", id))
	}
	if f, ok := m.forms[id]; ok {
		m.mu.Unlock()
		if err := f.SetValues(ctx, data); err != nil {
			return err
		}
		m.Refresh(ctx)
		return nil
	}
	partition := m.data[id]
	for key, value := range data {
		if value == nil {
			delete(partition, key)
			continue
		}
		partition[key] = value
	}
	m.dirty.Store(true)
	m.syncLocked(ctx)
	m.mu.Unlock()
	return nil
}

// UpdateStepComputedData merges computed entries into a component step.
func (m *Machine) UpdateStepComputedData(ctx context.Context, id string, computed model.ComputedData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasStepLocked(id) {
		return goerr.Wrap(ErrUnknownStep, "cannot update computed data", goerr.V("step", id))
	}
	if _, ok := m.forms[id]; ok {
		return goerr.Wrap(ErrSchemaStep, "computed data is derived by the step form", goerr.V("step", id))
	}
	partition := m.computed[id]
	for key, value := range computed {
		if value == nil {
			delete(partition, key)
			continue
		}
		partition[key] = value
	}
	m.dirty.Store(true)
	m.syncLocked(ctx)
	return nil
}

// ClearStepData restores a step to its defaults. Schema steps keep the
// values of non-interactive fields; component steps are emptied.
func (m *Machine) ClearStepData(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasStepLocked(id) {
		return goerr.Wrap(ErrUnknownStep, "cannot clear step data", goerr.V("step", id))
	}
	if err := m.clearLocked(ctx, id); err != nil {
		return err
	}
	m.syncLocked(ctx)
	return nil
}

func (m *Machine) clearLocked(ctx context.Context, id string) error {
	if f, ok := m.forms[id]; ok {
		return f.Reset(ctx)
	}
	m.data[id] = model.FormData{}
	m.computed[id] = model.ComputedData{}
	m.dirty.Store(true)
	return nil
}

// ResetForm returns to the first step, clears every step's data under the
// preservation policy, and drops all validation errors.
func (m *Machine) ResetForm(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, step := range m.steps {
		if err := m.clearLocked(ctx, step.ID); err != nil {
			return goerr.Wrap(err, "failed to reset step", goerr.V("step", step.ID))
		}
	}
	m.errors = make(map[string][]string)
	m.syncLocked(ctx)
	m.index = 0
	m.currentID = m.idAtLocked(0)
	return nil
}

// MultiStepFormData returns copies of every step partition keyed by step id.
func (m *Machine) MultiStepFormData() MultiStepFormData {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, computed := m.snapshotLocked()
	return MultiStepFormData{Steps: data, ComputedSteps: computed}
}

// StepData returns copies of one step's partitions.
func (m *Machine) StepData(id string) (model.FormData, model.ComputedData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasStepLocked(id) {
		return nil, nil, goerr.Wrap(ErrUnknownStep, "cannot read step data", goerr.V("step", id))
	}
	data, computed := m.partitionLocked(id)
	return data, computed, nil
}

// syncLocked recomputes the visible steps until they settle, clears steps
// that turned hidden, and repositions the current index.
func (m *Machine) syncLocked(ctx context.Context) {
	for pass := 0; pass <= len(m.steps); pass++ {
		if !m.dirty.Swap(false) {
			return
		}
		data, computed := m.snapshotLocked()

		visible := make([]int, 0, len(m.steps))
		shown := make(map[string]bool, len(m.steps))
		for idx, step := range m.steps {
			if step.Condition == nil || step.Condition(data, computed) {
				visible = append(visible, idx)
				shown[step.ID] = true
			}
		}

		var hidden []string
		for _, step := range m.steps {
			if m.shown[step.ID] && !shown[step.ID] {
				hidden = append(hidden, step.ID)
			}
		}
		m.visible = visible
		m.shown = shown
		m.repositionLocked()

		for _, id := range hidden {
			if err := m.clearLocked(ctx, id); err != nil {
				m.logger.Error("failed to clear hidden step", slog.String("step", id), slog.Any("error", err))
			}
		}
	}
	if m.dirty.Load() {
		m.logger.Warn("step visibility did not settle", slog.Int("steps", len(m.steps)))
	}
}

func (m *Machine) repositionLocked() {
	if m.currentID != "" {
		for pos, idx := range m.visible {
			if m.steps[idx].ID == m.currentID {
				m.index = pos
				return
			}
		}
	}
	if m.index >= len(m.visible) {
		m.index = len(m.visible) - 1
	}
	if m.index < 0 {
		m.index = 0
	}
	m.currentID = m.idAtLocked(m.index)
}

func (m *Machine) snapshotLocked() (map[string]model.FormData, map[string]model.ComputedData) {
	data := make(map[string]model.FormData, len(m.steps))
	computed := make(map[string]model.ComputedData, len(m.steps))
	for _, step := range m.steps {
		data[step.ID], computed[step.ID] = m.partitionLocked(step.ID)
	}
	return data, computed
}

func (m *Machine) partitionLocked(id string) (model.FormData, model.ComputedData) {
	if f, ok := m.forms[id]; ok {
		return f.FormData(), f.ComputedData()
	}
	return m.data[id].Clone(), m.computed[id].Clone()
}

func (m *Machine) stepAtLocked(pos int) (Step, bool) {
	if pos < 0 || pos >= len(m.visible) {
		return Step{}, false
	}
	return m.steps[m.visible[pos]], true
}

func (m *Machine) idAtLocked(pos int) string {
	step, ok := m.stepAtLocked(pos)
	if !ok {
		return ""
	}
	return step.ID
}

func (m *Machine) hasStepLocked(id string) bool {
	for _, step := range m.steps {
		if step.ID == id {
			return true
		}
	}
	return false
}
