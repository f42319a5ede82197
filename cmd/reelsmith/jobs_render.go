package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"reelsmith/internal/api"
	"reelsmith/internal/textutil"
)

func renderJobTable(jobs []api.Job) string {
	columns := []column{
		{Header: "ID"},
		{Header: "Operation"},
		{Header: "Status"},
		{Header: "Progress", Align: alignRight},
		{Header: "Updated"},
		{Header: "Result", MaxWidth: 48},
	}
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			job.JobID,
			job.Operation,
			job.Status,
			fmt.Sprintf("%d%%", job.Progress.Percent),
			job.UpdatedAt,
			jobOutcome(job),
		})
	}
	return renderTable(columns, rows)
}

func jobOutcome(job api.Job) string {
	switch {
	case job.ResultMediaID != "":
		return job.ResultMediaID
	case job.Error != "":
		return textutil.Ternary(job.ErrorKind != "", job.ErrorKind+": ", "") + job.Error
	default:
		return job.Progress.CurrentStep
	}
}

func writeJobDetail(out io.Writer, job api.Job) {
	line := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		fmt.Fprintf(out, "%-12s %s\n", label+":", value)
	}
	line("Job", job.JobID)
	line("Operation", job.Operation)
	line("Status", job.Status)
	line("Progress", fmt.Sprintf("%d%% %s", job.Progress.Percent, job.Progress.CurrentStep))
	line("Message", job.Progress.Message)
	line("Inputs", strings.Join(job.Inputs, ", "))
	line("Result", job.ResultMediaID)
	line("Error", job.Error)
	line("Error kind", job.ErrorKind)
	line("Request", job.RequestID)
	line("Created", job.CreatedAt)
	line("Started", job.StartedAt)
	line("Finished", job.FinishedAt)
	if len(job.Metadata) > 0 {
		keys := make([]string, 0, len(job.Metadata))
		for key := range job.Metadata {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, key := range keys {
			pairs = append(pairs, key+"="+job.Metadata[key])
		}
		line("Metadata", strings.Join(pairs, " "))
	}
}
