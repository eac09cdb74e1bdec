// Package values holds the equality and emptiness predicates that gate every
// recomputation in the form engine. Comparisons follow value semantics rather
// than reference identity so in-place mutations are still detected once a
// snapshot has been cloned with Clone.
package values
