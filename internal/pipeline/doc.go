// Package pipeline translates an operation descriptor into an ordered list of
// ffmpeg steps.
//
// Building a plan is pure: the same descriptor, input references, workspace
// directory and defaults always produce the same plan, and nothing is executed.
// Every timing, position and stream check runs before the first step is
// emitted, so an invalid request never reaches the engine.
package pipeline
