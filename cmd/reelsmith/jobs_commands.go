package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reelsmith/internal/api"
	"reelsmith/internal/ops"
	"reelsmith/internal/queue"
)

const submitWaitInterval = 500 * time.Millisecond

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Submit and inspect editing jobs",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsSubmitCommand(ctx))
	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recent jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := normalizeStatusFlags(statuses)
			return ctx.withJobs(cmd.Context(), func(jobs jobsAPI) error {
				items, err := jobs.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, api.JobListResponse{Jobs: items})
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No jobs found")
					return nil
				}
				fmt.Fprintln(out, renderJobTable(items))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (repeatable or comma separated)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show a single job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withJobs(cmd.Context(), func(jobs jobsAPI) error {
				job, err := jobs.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job %s not found", id)
				}
				if jsonOut {
					return writeJSON(cmd, job)
				}
				writeJobDetail(cmd.OutOrStdout(), *job)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newJobsSubmitCommand(ctx *commandContext) *cobra.Command {
	var data string
	var file string
	var wait bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:       "submit <operation>",
		Short:     "Submit a job to the running daemon",
		Long:      "Submit a job to the running daemon. The request body is read from --data, --file, or stdin when --file is \"-\".",
		Args:      cobra.ExactArgs(1),
		ValidArgs: operationNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := ops.Parse(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			body, err := readSubmitBody(cmd.InOrStdin(), data, file)
			if err != nil {
				return err
			}
			return ctx.withClient(cmd.Context(), func(client *api.Client) error {
				resp, err := client.Submit(cmd.Context(), op.String(), body)
				if err != nil {
					return err
				}
				if !wait {
					if jsonOut {
						return writeJSON(cmd, resp)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Submitted %s job %s\n", op, resp.JobID)
					return nil
				}
				job, err := waitForJob(cmd.Context(), client, resp.JobID, submitWaitInterval)
				if err != nil {
					return err
				}
				if jsonOut {
					if err := writeJSON(cmd, job); err != nil {
						return err
					}
				} else {
					writeJobDetail(cmd.OutOrStdout(), job)
				}
				if job.Status == string(queue.StatusFailed) {
					return fmt.Errorf("job %s failed: %s", job.JobID, job.Error)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "Request body as inline JSON")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the request body from a file (\"-\" for stdin)")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait until the job finishes")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func readSubmitBody(stdin io.Reader, data, file string) ([]byte, error) {
	data = strings.TrimSpace(data)
	file = strings.TrimSpace(file)
	switch {
	case data != "" && file != "":
		return nil, errors.New("use either --data or --file, not both")
	case data != "":
		return []byte(data), nil
	case file == "-":
		body, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return body, nil
	case file != "":
		body, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read request file: %w", err)
		}
		return body, nil
	default:
		return nil, errors.New("a request body is required (--data or --file)")
	}
}

func waitForJob(ctx context.Context, client *api.Client, id string, interval time.Duration) (api.Job, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		job, err := client.Job(ctx, id)
		if err != nil {
			return api.Job{}, err
		}
		if status, ok := queue.ParseStatus(job.Status); ok && status.IsTerminal() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return api.Job{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func normalizeStatusFlags(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.ToLower(strings.TrimSpace(value))
		if value != "" {
			out = append(out, value)
		}
	}
	return out
}

func operationNames() []string {
	all := ops.All()
	names := make([]string, 0, len(all))
	for _, op := range all {
		names = append(names, op.String())
	}
	return names
}
