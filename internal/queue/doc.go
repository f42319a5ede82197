// Package queue persists jobs and their work tasks in SQLite.
//
// The Store owns the job table and enforces the job state machine in SQL:
// every status change is a single conditional UPDATE guarded by the allowed
// predecessor statuses, progress writes refuse to move percent or timestamps
// backwards, and completion/failure write their terminal fields in one
// statement so readers never observe a completed job without its result or a
// percent below 100.
//
// The task table is the queue transport between the gateway and the workers.
// ClaimNext hands each task to exactly one worker. There is no requeue; tasks
// whose worker disappeared are failed at startup by FailOrphaned.
//
// The database is treated as operational state rather than an archive. Schema
// changes bump schemaVersion; operators clear the database to adopt them.
package queue
