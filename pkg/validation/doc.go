// Package validation checks field values and manages validation messages.
//
// Messages are values: a failing rule produces text for the UI, never an
// error. Config carries the form-wide default messages and an optional
// Translator for localized output.
package validation
