// Command reelsmith runs the media editing daemon and talks to it.
//
// `reelsmith serve` starts the HTTP gateway and the worker pool in the
// foreground. The remaining commands (status, jobs, config) reach a running
// daemon through its gateway and fall back to reading the local job store
// when the daemon is not running.
package main
