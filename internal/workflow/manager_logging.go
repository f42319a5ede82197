package workflow

import (
	"context"

	"reelsmith/internal/queue"
	"reelsmith/internal/services"
)

func withJobContext(ctx context.Context, job *queue.Job) context.Context {
	ctx = services.WithJobID(ctx, job.ID)
	ctx = services.WithOperation(ctx, string(job.Operation))
	if job.RequestID != "" {
		ctx = services.WithRequestID(ctx, job.RequestID)
	}
	return ctx
}

func withStage(ctx context.Context, status queue.Status) context.Context {
	return services.WithStage(ctx, string(status))
}
