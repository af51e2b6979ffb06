// ABOUTME: Package documentation for the MediaRec bridge protocol
// ABOUTME: Describes the wire contract between handles and executors

// Package protocol defines the wire contract of the MediaRec bridge: the
// request envelope sent to an executor, the identifier-keyed status pushes
// coming back, and the constants (states, message kinds, error codes) shared
// by both sides.
package protocol
