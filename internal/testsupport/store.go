package testsupport

import (
	"testing"

	"publisher/internal/config"
	"publisher/internal/tracking"
)

// MustOpenTracking opens a tracking.Store for tests and registers cleanup.
func MustOpenTracking(t testing.TB, cfg *config.Config) *tracking.Store {
	t.Helper()

	store, err := tracking.Open(cfg)
	if err != nil {
		t.Fatalf("tracking.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
