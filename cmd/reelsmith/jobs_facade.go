package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"reelsmith/internal/api"
	"reelsmith/internal/queue"
)

const jobListLimit = 100

// jobsAPI is the read surface shared by the gateway and the local store.
type jobsAPI interface {
	List(ctx context.Context, statuses []string) ([]api.Job, error)
	Get(ctx context.Context, id string) (*api.Job, error)
	Stats(ctx context.Context) (map[string]int, error)
	Source() string
}

// --- gateway adapter ---

type jobsGatewayAdapter struct {
	client *api.Client
}

func (a *jobsGatewayAdapter) List(ctx context.Context, statuses []string) ([]api.Job, error) {
	return a.client.Jobs(ctx, statuses...)
}

func (a *jobsGatewayAdapter) Get(ctx context.Context, id string) (*api.Job, error) {
	job, err := a.client.Job(ctx, id)
	if err != nil {
		var statusErr *api.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (a *jobsGatewayAdapter) Stats(ctx context.Context) (map[string]int, error) {
	status, err := a.client.Status(ctx)
	if err != nil {
		return nil, err
	}
	return status.Workflow.JobCounts, nil
}

func (a *jobsGatewayAdapter) Source() string { return "daemon" }

// --- store adapter ---

type jobsStoreAdapter struct {
	store *queue.Store
}

func (a *jobsStoreAdapter) List(ctx context.Context, statuses []string) ([]api.Job, error) {
	filter, err := parseStatuses(statuses)
	if err != nil {
		return nil, err
	}
	jobs, err := a.store.List(ctx, jobListLimit, filter...)
	if err != nil {
		return nil, err
	}
	return api.FromJobs(jobs), nil
}

func (a *jobsStoreAdapter) Get(ctx context.Context, id string) (*api.Job, error) {
	job, err := a.store.Get(ctx, id)
	if err != nil || job == nil {
		return nil, err
	}
	dto := api.FromJob(job)
	return &dto, nil
}

func (a *jobsStoreAdapter) Stats(ctx context.Context) (map[string]int, error) {
	counts, err := a.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(counts))
	for status, n := range counts {
		out[string(status)] = n
	}
	return out, nil
}

func (a *jobsStoreAdapter) Source() string { return "local store" }

func parseStatuses(values []string) ([]queue.Status, error) {
	out := make([]queue.Status, 0, len(values))
	for _, value := range values {
		status, ok := queue.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", value)
		}
		out = append(out, status)
	}
	return out, nil
}
