// Package store provides in-memory implementations of the core store
// interfaces. They are safe for concurrent access and best suited for tests,
// examples and single-process deployments; the postgres subpackage provides
// the durable equivalents.
package store
