// Package engine runs single ffmpeg invocations as child processes.
//
// A run captures the exit code and a bounded tail of stderr. The tail is turned
// into a safe diagnostic summary before it reaches job records or logs: the job
// workspace and other absolute paths are replaced with placeholders, credential
// looking values and URL query strings are masked, and the result is capped.
package engine
