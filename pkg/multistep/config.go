package multistep

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/model"
)

var (
	// ErrUnknownStep marks lookups of step ids the machine does not define.
	ErrUnknownStep = errors.New("multistep: unknown step")
	// ErrInvalidConfig marks invalid step lists and presentation options.
	ErrInvalidConfig = errors.New("multistep: invalid configuration")
	// ErrSchemaStep marks partition writes that a step's form owns.
	ErrSchemaStep = errors.New("multistep: step data is owned by its form")
)

// Condition decides whether a step is visible given every step's data.
type Condition func(data map[string]model.FormData, computed map[string]model.ComputedData) bool

// Validation checks the data of one step and returns its messages.
type Validation func(ctx context.Context, data model.FormData, computed model.ComputedData) ([]string, error)

// Step is one page of a multi-step form. Steps with a Schema own a
// form.Form; steps without one are component steps whose partitions are
// written through UpdateStepData and UpdateStepComputedData.
type Step struct {
	ID         string
	Title      string
	Subtitle   string
	Schema     *model.Schema
	Component  string
	Condition  Condition
	Validation Validation
}

// StepPosition places the step indicators.
type StepPosition string

const (
	PositionTop    StepPosition = "top"
	PositionBottom StepPosition = "bottom"
	PositionLeft   StepPosition = "left"
	PositionRight  StepPosition = "right"
)

// StepDisplayMode selects how step indicators are labelled.
type StepDisplayMode string

const (
	DisplayNumbers StepDisplayMode = "numbers"
	DisplayLabels  StepDisplayMode = "labels"
)

// Config carries presentation options for the UI layer and the field
// validation switch.
type Config struct {
	StepPosition        StepPosition    `json:"stepPosition,omitempty" yaml:"stepPosition,omitempty"`
	StepDisplayMode     StepDisplayMode `json:"stepDisplayMode,omitempty" yaml:"stepDisplayMode,omitempty"`
	ShowProgress        bool            `json:"showProgress,omitempty" yaml:"showProgress,omitempty"`
	AllowStepNavigation bool            `json:"allowStepNavigation,omitempty" yaml:"allowStepNavigation,omitempty"`
	// ValidateFields adds each step form's field validation to the step gate.
	ValidateFields bool `json:"validateFields,omitempty" yaml:"validateFields,omitempty"`
}

// Validate rejects unknown positions and display modes.
func (c Config) Validate() error {
	switch c.StepPosition {
	case "", PositionTop, PositionBottom, PositionLeft, PositionRight:
	default:
		return goerr.Wrap(ErrInvalidConfig, "unknown step position", goerr.V("stepPosition", string(c.StepPosition)))
	}
	switch c.StepDisplayMode {
	case "", DisplayNumbers, DisplayLabels:
	default:
		return goerr.Wrap(ErrInvalidConfig, "unknown step display mode", goerr.V("stepDisplayMode", string(c.StepDisplayMode)))
	}
	return nil
}

// Option configures a Machine.
type Option func(*Machine)

// WithConfig sets the presentation options.
func WithConfig(cfg Config) Option {
	return func(m *Machine) {
		m.cfg = cfg
	}
}

// WithLogger sets the logger for the machine and its step forms.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithFormOptions forwards options to every step form.
func WithFormOptions(opts ...form.Option) Option {
	return func(m *Machine) {
		m.formOpts = append(m.formOpts, opts...)
	}
}

// MultiStepFormData is the per-step aggregate of a machine. Partitions are
// keyed by step id and never flattened, so field ids may repeat across steps.
type MultiStepFormData struct {
	Steps         map[string]model.FormData     `json:"steps" yaml:"steps"`
	ComputedSteps map[string]model.ComputedData `json:"computedSteps" yaml:"computedSteps"`
}
