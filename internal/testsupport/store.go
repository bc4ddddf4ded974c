package testsupport

import (
	"context"
	"testing"

	"neuroscreen/internal/config"
	"neuroscreen/internal/queue"
)

// MustOpenStore opens a queue store on the test config and closes it
// with the test.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open queue store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// Seed submits a job and returns it.
func Seed(t testing.TB, store *queue.Store, modality queue.Modality, mediaRef string) *queue.Job {
	t.Helper()
	job, err := store.Submit(context.Background(), modality, mediaRef, "")
	if err != nil {
		t.Fatalf("submit job: %v", err)
	}
	return job
}
