package transform

import (
	"strings"
)

// Stage names the callback that failed.
type Stage string

const (
	StageChange   Stage = "onChange"
	StageComputed Stage = "computedValue"
	StageChildren Stage = "children"
)

// FieldError reports a failed callback for one field. The failure is
// isolated: other fields in the same pass still update.
type FieldError struct {
	Field string
	Child string
	Stage Stage
	Err   error
}

func (e FieldError) Error() string {
	var b strings.Builder
	b.WriteString("transform: ")
	b.WriteString(string(e.Stage))
	b.WriteString(" failed for ")
	b.WriteString(e.Field)
	if e.Child != "" {
		b.WriteString(".")
		b.WriteString(e.Child)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e FieldError) Unwrap() error { return e.Err }

// Errors aggregates the FieldErrors of a single pass.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Error())
	}
	return strings.Join(parts, "; ")
}

// Unwrap exposes the individual failures to errors.Is / errors.As.
func (e Errors) Unwrap() []error {
	out := make([]error, 0, len(e))
	for _, fe := range e {
		out = append(out, fe)
	}
	return out
}

// Fields lists the ids of the failed fields, without duplicates.
func (e Errors) Fields() []string {
	seen := make(map[string]struct{}, len(e))
	var out []string
	for _, fe := range e {
		if _, ok := seen[fe.Field]; ok {
			continue
		}
		seen[fe.Field] = struct{}{}
		out = append(out, fe.Field)
	}
	return out
}

func (e Errors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
