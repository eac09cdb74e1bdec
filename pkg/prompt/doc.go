// Package prompt drives forms and multi-step machines from a terminal.
//
// A Runner asks each visible input in schema order and writes answers back
// through the form, so dependent options and conditions update between
// prompts. The Driver interface hides the terminal; NewSurveyDriver backs it
// with survey.
package prompt
