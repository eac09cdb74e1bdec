package options

import (
	"context"

	"github.com/goliatone/go-formflow/pkg/model"
)

// EventKind enumerates the commands the resolver emits.
type EventKind int

const (
	// EventOptionsUpdated replaces the option list of a field.
	EventOptionsUpdated EventKind = iota + 1
	// EventValueReset clears a selection that no longer matches the options.
	EventValueReset
)

func (k EventKind) String() string {
	switch k {
	case EventOptionsUpdated:
		return "options-updated"
	case EventValueReset:
		return "value-reset"
	default:
		return "unknown"
	}
}

// Event is a state change requested by the resolver. The resolver never
// writes to the schema itself; the Sink owning the schema applies events.
type Event struct {
	Kind    EventKind
	Field   string
	Options []model.Option
	Value   any
}

// State exposes the read side the resolver needs.
type State interface {
	FormData() model.FormData
	ComputedData() model.ComputedData
	Field(id string) (model.Field, bool)
}

// Sink applies resolver events to the state owner.
type Sink interface {
	Apply(ctx context.Context, event Event) error
}

// SinkFunc adapts a function into a Sink.
type SinkFunc func(ctx context.Context, event Event) error

// Apply delegates to the underlying function.
func (fn SinkFunc) Apply(ctx context.Context, event Event) error {
	return fn(ctx, event)
}

// Outcome reports what a load attempt did.
type Outcome int

const (
	// OutcomeSkipped means no loader ran (no loader, no dependencies, or an
	// unresolved dependency value).
	OutcomeSkipped Outcome = iota
	// OutcomeUpdated means options were replaced (and the value possibly reset).
	OutcomeUpdated
	// OutcomeStale means a newer request for the same field superseded this one.
	OutcomeStale
	// OutcomeFailed means the loader or the sink returned an error.
	OutcomeFailed
	// OutcomeDiscarded means the field vanished or is not an input.
	OutcomeDiscarded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeUpdated:
		return "updated"
	case OutcomeStale:
		return "stale"
	case OutcomeFailed:
		return "failed"
	case OutcomeDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}
