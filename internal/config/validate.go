package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. Credentials are checked
// separately by RequireGeneration because read-only commands do not need them.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

// RequireGeneration reports whether the generation collaborators are configured.
func (c *Config) RequireGeneration() error {
	configPath, err := DefaultConfigPath()
	if err != nil {
		configPath = defaultConfigPath
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required. Set OPENROUTER_API_KEY or edit %s (create with 'bookforge config init')", configPath)
	}
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("gemini.api_key is required. Set GEMINI_API_KEY or edit %s", configPath)
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return errors.New("paths.work_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.DPI < 72 || c.Pipeline.DPI > 1200 {
		return fmt.Errorf("pipeline.dpi must be between 72 and 1200, got %v", c.Pipeline.DPI)
	}
	if c.Pipeline.RetryAttempts < 1 || c.Pipeline.RetryAttempts > 10 {
		return fmt.Errorf("pipeline.retry_attempts must be between 1 and 10, got %d", c.Pipeline.RetryAttempts)
	}
	if c.Pipeline.RetryBackoffMS < 0 {
		return errors.New("pipeline.retry_backoff_ms must not be negative")
	}
	if c.Pipeline.RenderDelayMS < 0 {
		return errors.New("pipeline.render_delay_ms must not be negative")
	}
	if c.Pipeline.MetadataStripCm < 0 {
		return errors.New("pipeline.metadata_strip_cm must not be negative")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if !c.Storage.Enabled {
		return nil
	}
	if c.Storage.Endpoint == "" {
		return errors.New("storage.endpoint must be set when storage.enabled is true")
	}
	if c.Storage.Bucket == "" {
		return errors.New("storage.bucket must be set when storage.enabled is true")
	}
	if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
		return errors.New("storage credentials must be set when storage.enabled is true (BOOKFORGE_STORAGE_ACCESS_KEY / BOOKFORGE_STORAGE_SECRET_KEY)")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) URL, got %q", topic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}
