package testsupport

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"reelsmith/internal/config"
	"reelsmith/internal/ops"
	"reelsmith/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob creates a queued job for desc.
func NewJob(t testing.TB, store *queue.Store, desc ops.Descriptor) *queue.Job {
	t.Helper()

	job, err := store.Create(context.Background(), queue.NewJob{ID: uuid.NewString(), Descriptor: desc, RequestID: "test-request"})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return job
}

// TrimDescriptor returns a minimal valid trim request.
func TrimDescriptor(mediaID string, startMs, endMs int64) ops.Descriptor {
	return ops.Descriptor{
		Operation: ops.Trim,
		Trim:      &ops.TrimParams{Input: mediaID, StartMs: startMs, EndMs: endMs},
	}
}

// ConcatDescriptor returns a concat request over mediaIDs.
func ConcatDescriptor(mediaIDs ...string) ops.Descriptor {
	inputs := make([]ops.ConcatInput, 0, len(mediaIDs))
	for _, id := range mediaIDs {
		inputs = append(inputs, ops.ConcatInput{MediaID: id})
	}
	return ops.Descriptor{
		Operation: ops.Concat,
		Concat:    &ops.ConcatParams{Inputs: inputs},
	}
}
