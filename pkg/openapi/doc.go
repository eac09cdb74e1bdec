// Package openapi imports form schemas from OpenAPI 3 component schemas.
//
// Each property becomes one field: string formats pick Email, Password and
// Date inputs, numbers become NumberInput, booleans CheckboxInput, enums
// SelectInput, and arrays of objects RepeatInput with children. Nested
// objects become a section followed by their prefixed properties. The
// x-formflow-* extensions carry dependencies, conditions and option
// sources.
package openapi
