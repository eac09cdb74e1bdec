// Package multistep implements the multi-step form state machine.
//
// A Machine partitions a form into ordered steps. Each step owns its data,
// keyed by step id, and may carry a visibility condition over every step's
// data and a validation gate for forward navigation. Navigation indexes the
// visible steps only; when a step turns hidden its data is cleared, except
// for fields the user currently cannot edit.
package multistep
