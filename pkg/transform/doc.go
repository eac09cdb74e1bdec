// Package transform derives FormData from a schema and ComputedData from
// FormData. ComputedData is maintained incrementally: an entry is set,
// updated or deleted only when its FormData value changed under
// values.DeepEqual, so callbacks of untouched fields never rerun.
package transform
