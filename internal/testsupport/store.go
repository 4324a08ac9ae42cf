package testsupport

import (
	"context"
	"testing"

	"bookforge/internal/config"
	"bookforge/internal/runstore"
)

// MustOpenStore opens the configured run store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *runstore.Store {
	t.Helper()

	store, err := runstore.Open(cfg.Paths.RunStorePath)
	if err != nil {
		t.Fatalf("runstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRun creates a pending run for an order using the provided store.
func NewRun(t testing.TB, store *runstore.Store, orderID string) *runstore.Run {
	t.Helper()

	run, err := store.Create(context.Background(), runstore.Run{OrderID: orderID, ProductID: "square-20"})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return run
}
