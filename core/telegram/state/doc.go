// Package state keeps per-user conversation sessions in process memory.
// Session values are opaque to the store; callers own their shape.
package state
