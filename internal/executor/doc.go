// Package executor runs pipeline plans inside a per-job workspace.
//
// A Workspace is a private temporary directory under the configured work
// directory. Callers defer Close immediately after opening it; Close removes
// every file the job produced whether the job succeeded or not.
//
// Run executes plan steps strictly in order through an engine.Runner and stops
// at the first failing step. Each step is attempted once. Engine diagnostics
// are sanitized before they are attached to the returned error.
package executor
