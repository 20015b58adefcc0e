// Package logging provides slog construction and the structured-field
// conventions used across subweave: a human console handler, a JSON
// handler, context-derived run/stage attributes, and a sampler that keeps
// progress output readable.
package logging
