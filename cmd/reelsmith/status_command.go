package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"reelsmith/internal/api"
	"reelsmith/internal/config"
	"reelsmith/internal/deps"
	"reelsmith/internal/preflight"
	"reelsmith/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency and job status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			gateway, _ := ctx.gatewayURL()

			status, err := daemonStatus(cmd.Context(), ctx)
			if err != nil {
				if !errors.Is(err, api.ErrUnavailable) {
					return err
				}
				status, err = localStatus(cmd.Context(), cfg)
				if err != nil {
					return err
				}
			}

			if jsonOut {
				return writeJSON(cmd, status)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderDaemonStatus(status, gateway, shouldColorize(out)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func daemonStatus(cmdCtx context.Context, ctx *commandContext) (api.DaemonStatus, error) {
	client, err := ctx.client()
	if err != nil {
		return api.DaemonStatus{}, fmt.Errorf("%w: %w", api.ErrUnavailable, err)
	}
	return client.Status(cmdCtx)
}

// localStatus inspects the host directly when no daemon answers.
func localStatus(ctx context.Context, cfg *config.Config) (api.DaemonStatus, error) {
	status := api.DaemonStatus{
		DatabasePath: cfg.DatabasePath(),
		LockFilePath: cfg.LockPath(),
		Workflow:     api.WorkflowStatus{Workers: cfg.Workflow.Workers, JobCounts: map[string]int{}},
	}

	for _, dep := range deps.CheckBinaries(ctx, deps.EngineRequirements(cfg)) {
		status.Dependencies = append(status.Dependencies, api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	client := &http.Client{Timeout: cfg.MediaStoreTimeout()}
	for _, r := range preflight.RunAll(ctx, cfg, client) {
		status.Checks = append(status.Checks, api.CheckStatus{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}

	if _, err := os.Stat(cfg.DatabasePath()); err != nil {
		return status, nil
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return status, fmt.Errorf("open job store: %w", err)
	}
	defer store.Close()
	counts, err := store.Stats(ctx)
	if err != nil {
		return status, err
	}
	for s, n := range counts {
		status.Workflow.JobCounts[string(s)] = n
	}
	return status, nil
}
