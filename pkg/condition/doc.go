// Package condition compiles small rule strings into field and step
// visibility conditions so declarative documents can express
// `country == 'malawi'` or `step1.field1 != 'skip'` without Go callbacks.
package condition
