package workdir

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bookforge/internal/logging"
)

func makeRunDir(t *testing.T, root, name string, age time.Duration) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "order.zip"), []byte("archive"), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(dir, stamp, stamp); err != nil {
		t.Fatalf("set time: %v", err)
	}
	return dir
}

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, nil, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldDirectories(t *testing.T) {
	root := t.TempDir()
	oldDir := makeRunDir(t, root, "run-old", 2*time.Hour)
	recentDir := makeRunDir(t, root, "run-recent", 0)

	result := CleanStale(context.Background(), root, time.Hour, nil, logging.NewNop())
	if len(result.Removed) != 1 || result.Removed[0].Path != oldDir {
		t.Fatalf("unexpected removals %+v", result.Removed)
	}
	if result.Bytes() != int64(len("archive")) {
		t.Fatalf("reclaimed bytes = %d", result.Bytes())
	}
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Fatal("old directory should have been removed")
	}
	if _, err := os.Stat(recentDir); err != nil {
		t.Fatal("recent directory should still exist")
	}
}

func TestCleanStaleKeepsActiveRuns(t *testing.T) {
	root := t.TempDir()
	active := makeRunDir(t, root, "run-active", 48*time.Hour)
	makeRunDir(t, root, "run-done", 48*time.Hour)

	result := CleanStale(context.Background(), root, time.Hour, map[string]struct{}{"run-active": {}}, nil)
	if len(result.Removed) != 1 || result.Removed[0].RunID != "run-done" {
		t.Fatalf("unexpected removals %+v", result.Removed)
	}
	if _, err := os.Stat(active); err != nil {
		t.Fatal("active run directory must be kept")
	}
}

func TestListSkipsFilesAndSortsByAge(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "runs.db"), []byte("db"), 0o644); err != nil {
		t.Fatalf("write db: %v", err)
	}
	makeRunDir(t, root, "b", time.Hour)
	makeRunDir(t, root, "a", 3*time.Hour)

	dirs, err := List(root)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(dirs) != 2 || dirs[0].RunID != "a" || dirs[1].RunID != "b" {
		t.Fatalf("unexpected listing %+v", dirs)
	}
}
