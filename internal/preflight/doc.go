// Package preflight runs the environment checks shown by the status command
// and logged at daemon startup: workspace and data directory access, free
// space for job workspaces, and media store reachability.
package preflight
