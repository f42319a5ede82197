// Package ops defines the closed set of editing operations and the typed
// request descriptors that travel from the gateway, through the task queue,
// to the workers.
//
// Structural validation lives here so both the gateway (synchronously) and the
// pipeline builder see the same rules. Timing checks that need probed media
// durations belong to the pipeline package.
package ops
