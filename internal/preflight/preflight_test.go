package preflight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bookforge/internal/config"
	"bookforge/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDirectoriesAfterEnsure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if failed := Failed(CheckDirectories(cfg)); len(failed) != 3 {
		t.Fatalf("expected all three directories to be missing, got %d failures", len(failed))
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if failed := Failed(CheckDirectories(cfg)); len(failed) != 0 {
		t.Fatalf("unexpected failures %+v", failed)
	}
}

func llmServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": `{"ok":true}`}}},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCheckLLM(t *testing.T) {
	ok := llmServer(t, http.StatusOK)
	result := CheckLLM(context.Background(), "LLM", config.LLM{APIKey: "k", BaseURL: ok.URL, Model: "m"})
	if !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}

	denied := llmServer(t, http.StatusUnauthorized)
	result = CheckLLM(context.Background(), "LLM", config.LLM{APIKey: "k", BaseURL: denied.URL, Model: "m"})
	if result.Passed {
		t.Fatal("expected failure for unauthorized key")
	}

	result = CheckLLM(context.Background(), "LLM", config.LLM{})
	if result.Passed || result.Detail != "API key missing" {
		t.Fatalf("unexpected result for missing key %+v", result)
	}
}

func TestCheckStorageReportsMissingBucket(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("check must not modify storage, got %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithStorage(strings.TrimPrefix(server.URL, "http://"), "books"))
	cfg.Storage.UseSSL = false

	result := CheckStorage(context.Background(), cfg.Storage)
	if !result.Passed || !strings.Contains(result.Detail, "will be created") {
		t.Fatalf("unexpected storage result %+v", result)
	}
}

func TestCheckStorageRejectsScheme(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStorage("http://localhost:9000", "books"))
	if result := CheckStorage(context.Background(), cfg.Storage); result.Passed {
		t.Fatal("expected failure for endpoint with scheme")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_IncludesNotificationsWhenConfigured(t *testing.T) {
	llm := llmServer(t, http.StatusOK)
	var delivered bool
	ntfy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered = r.Header.Get("Title") == "bookforge - Test"
		w.WriteHeader(http.StatusOK)
	}))
	defer ntfy.Close()

	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	cfg.LLM.BaseURL = llm.URL
	cfg.Notifications.NtfyTopic = ntfy.URL

	results := RunAll(context.Background(), cfg)
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	if !delivered {
		t.Fatal("expected a test notification")
	}
}
