package queue

import (
	"encoding/json"
	"time"

	"reelsmith/internal/ops"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusDownloading Status = "downloading"
	StatusProcessing  Status = "processing"
	StatusUploading   Status = "uploading"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// OrphanedReason is the error recorded for jobs a previous process never finished.
const OrphanedReason = "worker stopped before the job finished"

var allStatuses = []Status{
	StatusQueued,
	StatusDownloading,
	StatusProcessing,
	StatusUploading,
	StatusCompleted,
	StatusFailed,
}

// transitions lists the statuses each status may move to.
var transitions = map[Status][]Status{
	StatusQueued:      {StatusDownloading, StatusFailed},
	StatusDownloading: {StatusProcessing, StatusFailed},
	StatusProcessing:  {StatusUploading, StatusFailed},
	StatusUploading:   {StatusCompleted, StatusFailed},
}

// AllStatuses returns every job status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a string into a Status.
func ParseStatus(value string) (Status, bool) {
	for _, s := range allStatuses {
		if string(s) == value {
			return s, true
		}
	}
	return "", false
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsActive reports whether a worker owns a job in this status.
func (s Status) IsActive() bool {
	return s == StatusDownloading || s == StatusProcessing || s == StatusUploading
}

func predecessors(to Status) []Status {
	var out []Status
	for _, from := range allStatuses {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// Progress is the latest step-boundary update for a job.
type Progress struct {
	Percent   int       `json:"percent"`
	Step      string    `json:"currentStep"`
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Job is one asynchronous editing request and its tracked lifecycle.
type Job struct {
	ID         string
	Operation  ops.Operation
	Params     json.RawMessage
	Inputs     []string
	Metadata   map[string]string
	Status     Status
	Progress   Progress
	ResultRef  string
	Error      string
	ErrorKind  string
	RequestID  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// Descriptor decodes the stored request parameters.
func (j *Job) Descriptor() (ops.Descriptor, error) {
	return ops.Decode(j.Params)
}

// NewJob describes a job to create.
type NewJob struct {
	ID         string
	Descriptor ops.Descriptor
	RequestID  string
}

// Task is one unit of queued work referencing a job.
type Task struct {
	ID        int64
	JobID     string
	Name      string
	Payload   []byte
	Worker    string
	ClaimedAt time.Time
}

// Operation resolves the task name into an operation.
func (t *Task) Operation() (ops.Operation, error) {
	return ops.FromTaskName(t.Name)
}
