// Package daemon coordinates the long-running reelsmith process.
//
// It wires configuration, the job store, the worker pool and the HTTP gateway
// into a single lifecycle with flock-based locking to prevent multiple
// instances sharing one job database. On start it fails jobs a previous
// process left in flight, logs dependency and preflight results, then starts
// the workers and the gateway. On stop the gateway stops accepting requests
// first and the workers are allowed to finish the jobs they hold.
//
// Keep orchestration logic here: job processing lives in workflow and request
// handling in gateway.
package daemon
