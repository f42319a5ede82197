package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes a job in a transport-friendly format.
type Job struct {
	JobID         string            `json:"jobId"`
	Operation     string            `json:"operation"`
	Status        string            `json:"status"`
	Progress      JobProgress       `json:"progress"`
	Inputs        []string          `json:"inputs"`
	ResultMediaID string            `json:"resultMediaId,omitempty"`
	Error         string            `json:"error,omitempty"`
	ErrorKind     string            `json:"errorKind,omitempty"`
	RequestID     string            `json:"requestId,omitempty"`
	CreatedAt     string            `json:"createdAt,omitempty"`
	UpdatedAt     string            `json:"updatedAt,omitempty"`
	StartedAt     string            `json:"startedAt,omitempty"`
	FinishedAt    string            `json:"finishedAt,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// JobProgress captures the latest step-boundary progress.
type JobProgress struct {
	Percent     int    `json:"percent"`
	CurrentStep string `json:"currentStep,omitempty"`
	Message     string `json:"message,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// SubmitResponse is returned when a job is accepted.
type SubmitResponse struct {
	JobID string `json:"jobId"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	OK bool `json:"ok"`
}

// WorkflowStatus summarizes the worker pool.
type WorkflowStatus struct {
	Running   bool              `json:"running"`
	Workers   int               `json:"workers"`
	Active    map[string]string `json:"active,omitempty"`
	JobCounts map[string]int    `json:"jobCounts"`
	LastError string            `json:"lastError,omitempty"`
	LastJob   *Job              `json:"lastJob,omitempty"`
}

// DependencyStatus captures availability of an external binary.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// CheckStatus is one preflight check outcome.
type CheckStatus struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	DatabasePath string             `json:"databasePath"`
	LockFilePath string             `json:"lockFilePath"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
	Checks       []CheckStatus      `json:"checks"`
}
