// Package options resolves dependent option lists.
//
// A Resolver keeps a reverse index from dependency ids to the fields whose
// OptionsLoader depends on them. When a dependency changes the resolver
// reloads each dependent field, but only once every dependency holds a
// defined value. Loaded options are handed to a Sink as events, and a
// selection that no longer matches the new options is reset.
//
// HTTPLoader adapts a JSON endpoint into an OptionsLoader.
package options
