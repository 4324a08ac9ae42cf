package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"bookforge/internal/config"
)

func TestLoadDefaultConfigUsesEnvKeysAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("GEMINI_API_KEY", "gm-key")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	wantWork := filepath.Join(tempHome, ".local", "share", "bookforge", "work")
	if cfg.Paths.WorkDir != wantWork {
		t.Fatalf("work dir = %q, want %q", cfg.Paths.WorkDir, wantWork)
	}
	if cfg.Paths.RunStorePath != filepath.Join(wantWork, "runs.db") {
		t.Fatalf("run store path = %q", cfg.Paths.RunStorePath)
	}
	if cfg.LLM.APIKey != "or-key" || cfg.Gemini.APIKey != "gm-key" {
		t.Fatalf("env keys not applied: llm=%q gemini=%q", cfg.LLM.APIKey, cfg.Gemini.APIKey)
	}
	if err := cfg.RequireGeneration(); err != nil {
		t.Fatalf("RequireGeneration: %v", err)
	}
	if cfg.Pipeline.DPI != 300 || cfg.Pipeline.RetryAttempts != 3 || cfg.Pipeline.MetadataStripCm != 1.5 {
		t.Fatalf("unexpected pipeline defaults %+v", cfg.Pipeline)
	}
	if cfg.RetryBackoff().Seconds() != 2 {
		t.Fatalf("retry backoff = %s", cfg.RetryBackoff())
	}
}

func TestRequireGenerationWithoutKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	cfg := config.Default()
	err := cfg.RequireGeneration()
	if err == nil || !strings.Contains(err.Error(), "llm.api_key") {
		t.Fatalf("expected llm key error, got %v", err)
	}
}

func TestLoadExplicitFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "bookforge.toml")
	content := `
[paths]
work_dir = "` + filepath.ToSlash(filepath.Join(dir, "work")) + `"
output_dir = "` + filepath.ToSlash(filepath.Join(dir, "out")) + `"

[pipeline]
dpi = 150.0
render_delay_ms = 0

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved=%q exists=%v", resolved, exists)
	}
	if cfg.Pipeline.DPI != 150 || cfg.RenderDelay() != 0 {
		t.Fatalf("pipeline not decoded: %+v", cfg.Pipeline)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging not normalized: %+v", cfg.Logging)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cases := map[string]func(*config.Config){
		"dpi":            func(c *config.Config) { c.Pipeline.DPI = 10 },
		"retry attempts": func(c *config.Config) { c.Pipeline.RetryAttempts = 50 },
		"strip":          func(c *config.Config) { c.Pipeline.MetadataStripCm = -1 },
		"storage":        func(c *config.Config) { c.Storage.Enabled = true; c.Storage.Endpoint = "" },
		"log format":     func(c *config.Config) { c.Logging.Format = "xml" },
		"ntfy topic":     func(c *config.Config) { c.Notifications.NtfyTopic = "bookforge-alerts" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestSampleConfigParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if cfg.Pipeline.MetadataStripCm != 1.5 {
		t.Fatalf("sample strip width = %v", cfg.Pipeline.MetadataStripCm)
	}
	if cfg.Notifications.NtfyTopic != "" || cfg.Notifications.RequestTimeoutSeconds != 10 {
		t.Fatalf("unexpected sample notifications %+v", cfg.Notifications)
	}
}
