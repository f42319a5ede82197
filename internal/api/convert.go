package api

import (
	"maps"
	"time"

	"reelsmith/internal/queue"
	"reelsmith/internal/workflow"
)

// FromJob converts a job record to its API representation.
func FromJob(job *queue.Job) Job {
	if job == nil {
		return Job{}
	}
	dto := Job{
		JobID:     job.ID,
		Operation: string(job.Operation),
		Status:    string(job.Status),
		Progress: JobProgress{
			Percent:     job.Progress.Percent,
			CurrentStep: job.Progress.Step,
			Message:     job.Progress.Message,
			UpdatedAt:   formatTime(job.Progress.UpdatedAt),
		},
		Inputs:        job.Inputs,
		ResultMediaID: job.ResultRef,
		Error:         job.Error,
		ErrorKind:     job.ErrorKind,
		RequestID:     job.RequestID,
		CreatedAt:     formatTime(job.CreatedAt),
		UpdatedAt:     formatTime(job.UpdatedAt),
		Metadata:      maps.Clone(job.Metadata),
	}
	if dto.Inputs == nil {
		dto.Inputs = []string{}
	}
	if job.StartedAt != nil {
		dto.StartedAt = formatTime(*job.StartedAt)
	}
	if job.FinishedAt != nil {
		dto.FinishedAt = formatTime(*job.FinishedAt)
	}
	return dto
}

// FromJobs converts job records into API DTOs. The result is never nil.
func FromJobs(jobs []*queue.Job) []Job {
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	counts := make(map[string]int, len(summary.Counts))
	for status, count := range summary.Counts {
		counts[string(status)] = count
	}
	wf := WorkflowStatus{
		Running:   summary.Running,
		Workers:   summary.Workers,
		Active:    summary.Active,
		JobCounts: counts,
		LastError: summary.LastError,
	}
	if summary.LastJob != nil {
		last := FromJob(summary.LastJob)
		wf.LastJob = &last
	}
	return wf
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
