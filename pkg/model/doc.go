// Package model defines the declarative form schema consumed by the engine:
// an insertion-ordered Schema of Field descriptors tagged with a closed
// FieldKind, the Option entries used by select-like and repeat fields, and
// the FormData/ComputedData maps the transformation pipeline derives.
//
// Descriptors carry callbacks (OnChange, ComputedValue, Validation,
// OptionsLoader, Condition) that receive the owning schema. Callbacks must
// treat the schema as read-only and must not call back into the form that
// owns it.
package model
