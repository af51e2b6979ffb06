// ABOUTME: Package documentation for the media handle registry
// ABOUTME: Explains the handle/registry/executor split

// Package media provides the client-side proxy for device audio playback and
// recording. A Media handle forwards operations to an Executor and a Registry
// routes the executor's asynchronous status events back to the owning handle
// by its identifier.
package media
