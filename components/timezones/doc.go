// Package timezones is a searchable option source of IANA timezone names.
//
// Loader plugs the embedded list into a form field as an OptionsLoader whose
// search filter narrows the results. Handler serves the same search as JSON
// ({"data": [...]}) for endpoint-backed fields.
package timezones
