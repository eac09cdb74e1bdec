// Package loader reads declarative form documents.
//
// Documents are JSON or YAML. Callbacks cannot be serialised, so documents
// name them and a Registry binds the names to Go functions; conditions are
// written as expressions understood by package condition. Endpoint entries
// become HTTP-backed option loaders.
package loader
