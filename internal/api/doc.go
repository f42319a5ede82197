// Package api defines the wire-format types shared by the HTTP gateway and
// the CLI, plus converters from internal models and a small HTTP client.
//
// # Key Types
//
// Job: transport representation of a job with progress, result media id and
// classified error.
//
// WorkflowStatus and DaemonStatus: worker pool state, job counts, dependency
// and preflight results.
//
// # Converters
//
// FromJob: queue.Job -> Job. FromStatusSummary: workflow.StatusSummary ->
// WorkflowStatus.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Internal enums (queue.Status, ops.Operation)
// are exposed as lowercase strings. Timestamps use RFC3339 with milliseconds.
package api
