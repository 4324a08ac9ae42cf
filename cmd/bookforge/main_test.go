package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"bookforge/internal/config"
	"bookforge/internal/runstore"
	"bookforge/internal/storygen"
	"bookforge/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	gen        *testsupport.FakeGenerator
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("OPENROUTER_API_KEY", "test-openrouter")
	t.Setenv("GEMINI_API_KEY", "test-gemini")

	cfg := testsupport.NewConfig(t, testsupport.WithDPI(72))
	configPath := filepath.Join(base, "bookforge.toml")
	writeTestConfig(t, configPath, cfg)

	gen := testsupport.NewFakeGenerator(4)
	previous := newGenerator
	newGenerator = func(*config.Config) (storygen.Generator, error) { return gen, nil }
	t.Cleanup(func() { newGenerator = previous })

	return &cliTestEnv{cfg: cfg, configPath: configPath, gen: gen}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
work_dir = %q
output_dir = %q
log_dir = %q
catalog_path = %q
run_store_path = %q

[pipeline]
dpi = %.1f
retry_backoff_ms = 0
render_delay_ms = 0

[logging]
format = "json"
level = "warn"
`,
		cfg.Paths.WorkDir,
		cfg.Paths.OutputDir,
		cfg.Paths.LogDir,
		cfg.Paths.CatalogPath,
		cfg.Paths.RunStorePath,
		cfg.Pipeline.DPI,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

const cliOrder = `order:
  id: RWY-CLI001
  customerName: Sam
  language: en
  productId: square-20
story:
  childName: Ari
  age: 4
  spreads: 4
`

func writeCLIOrder(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "order.yaml")
	if err := os.WriteFile(path, []byte(cliOrder), 0o644); err != nil {
		t.Fatalf("write order: %v", err)
	}
	return path
}

func TestProduceThenRunsCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"produce", "--order", writeCLIOrder(t)}, env.configPath)
	if err != nil {
		t.Fatalf("produce: %v\n%s", err, out)
	}
	requireContains(t, out, "skeleton:")
	requireContains(t, out, "spread 04:")
	requireContains(t, out, "Archive:")
	requireContains(t, out, "RWY-CLI001.zip")
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.OutputDir, "RWY-CLI001.zip")); err != nil {
		t.Fatalf("archive missing: %v", err)
	}

	out, _, err = runCLI(t, []string{"runs", "list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	var runs []runstore.Run
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode runs: %v\n%s", err, out)
	}
	if len(runs) != 1 || runs[0].OrderID != "RWY-CLI001" || runs[0].Status != runstore.StatusSucceeded {
		t.Fatalf("unexpected runs %+v", runs)
	}

	out, _, err = runCLI(t, []string{"runs", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("runs list table: %v", err)
	}
	requireContains(t, out, "RWY-CLI001")

	out, _, err = runCLI(t, []string{"runs", "show", runs[0].ID, "--logs"}, env.configPath)
	if err != nil {
		t.Fatalf("runs show: %v", err)
	}
	requireContains(t, out, "raster")
	requireContains(t, out, "layout")
	requireContains(t, out, "cover")

	if _, _, err := runCLI(t, []string{"runs", "log", runs[0].ID, "-n", "5"}, env.configPath); err != nil {
		t.Fatalf("runs log: %v", err)
	}
	if _, _, err := runCLI(t, []string{"runs", "log", "missing-run"}, env.configPath); err == nil {
		t.Fatal("expected runs log for an unknown run to fail")
	}

	out, _, err = runCLI(t, []string{"runs", "prune", "--older-than", "0s", "--dry-run"}, env.configPath)
	if err != nil {
		t.Fatalf("runs prune --dry-run: %v", err)
	}
	requireContains(t, out, "1 director(ies) eligible")
	out, _, err = runCLI(t, []string{"runs", "prune", "--older-than", "0s"}, env.configPath)
	if err != nil {
		t.Fatalf("runs prune: %v", err)
	}
	requireContains(t, out, "Removed 1 director(ies)")
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.WorkDir, runs[0].ID)); !os.IsNotExist(err) {
		t.Fatal("work directory should have been pruned")
	}
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.OutputDir, "RWY-CLI001.zip")); err != nil {
		t.Fatalf("published archive must survive prune: %v", err)
	}

	out, _, err = runCLI(t, []string{"runs", "remove", runs[0].ID}, env.configPath)
	if err != nil {
		t.Fatalf("runs remove: %v", err)
	}
	requireContains(t, out, "Removed run")
	out, _, err = runCLI(t, []string{"runs", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("runs list after remove: %v", err)
	}
	requireContains(t, out, "No runs recorded")
}

func TestProduceJSONReportsFailure(t *testing.T) {
	env := setupCLITestEnv(t)
	env.gen.FailNext("SynthesizeSkeleton", fmt.Errorf("model refused"))

	out, _, err := runCLI(t, []string{"produce", "--order", writeCLIOrder(t), "--json"}, env.configPath)
	if err == nil {
		t.Fatal("expected produce to fail")
	}
	var result produceOutput
	if decodeErr := json.Unmarshal([]byte(out), &result); decodeErr != nil {
		t.Fatalf("decode output: %v\n%s", decodeErr, out)
	}
	if result.RunID == "" || result.Error == "" || result.Archive != "" {
		t.Fatalf("unexpected failure output %+v", result)
	}
}

func TestProduceRequiresOrderFlag(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"produce"}, env.configPath); err == nil {
		t.Fatal("expected missing --order to fail")
	}
}

func TestRunsShowUnknown(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"runs", "show", "nope"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "run not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestCatalogList(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"catalog", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("catalog list: %v", err)
	}
	requireContains(t, out, "square-20")
	requireContains(t, out, "landscape-a4")

	out, _, err = runCLI(t, []string{"catalog", "list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("catalog list json: %v", err)
	}
	var entries []catalogEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode catalog: %v", err)
	}
	if len(entries) == 0 || entries[0].DPI != 72 {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestConfigInitShowValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, redacted)
	if strings.Contains(out, "test-openrouter") {
		t.Fatal("config show leaked the api key")
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}

func TestConfigValidateOnline(t *testing.T) {
	env := setupCLITestEnv(t)
	var denied atomic.Bool
	denied.Store(true)
	llmServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if denied.Load() {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": `{"ok":true}`}}},
		})
	}))
	defer llmServer.Close()

	data, err := os.ReadFile(env.configPath)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	data = append(data, []byte(fmt.Sprintf("\n[llm]\nbase_url = %q\n", llmServer.URL))...)
	if err := os.WriteFile(env.configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, _, err := runCLI(t, []string{"config", "validate", "--online"}, env.configPath)
	if err == nil {
		t.Fatal("expected a rejected api key to fail the online check")
	}
	requireContains(t, out, "read/write ok")

	denied.Store(false)
	out, _, err = runCLI(t, []string{"config", "validate", "--online"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate --online: %v\n%s", err, out)
	}
	requireContains(t, out, "API reachable")
	requireContains(t, out, "Configuration valid")
}

func TestTruncateAndDuration(t *testing.T) {
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
	if formatDuration(0) != "-" || formatDuration(1500*1e6) != "1.5s" {
		t.Fatalf("unexpected durations %q %q", formatDuration(0), formatDuration(1500*1e6))
	}
}
