// Package deps checks that the external media engine binaries are installed
// and reports their versions for the status command and daemon startup.
package deps
