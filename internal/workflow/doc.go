// Package workflow runs editing jobs on a pool of workers.
//
// Each worker claims the next task from the job store, so a job is processed
// by exactly one worker. A claimed job moves through downloading, processing
// and uploading before it ends as completed or failed:
//
//   - downloading fetches every referenced input into a private workspace,
//     concurrently, and probes each one
//   - processing plans the operation with the pipeline registry and runs the
//     plan through the executor
//   - uploading stores the output with its metadata and records the new media id
//
// Every job is attempted once. Any error fails the job with a classified
// error kind and nothing is retried. Shutdown stops claiming new work but lets
// in-flight jobs finish; their contexts are detached from the shutdown signal.
package workflow
