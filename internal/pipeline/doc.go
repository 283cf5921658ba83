// Package pipeline runs the build: environment gate, then clean, fetch,
// compile, umd and publish, strictly in order. The first failing stage aborts
// the rest and its typed error is returned to the caller unchanged.
package pipeline
