package config

const (
	defaultConfigPath      = "~/.config/bookforge/config.toml"
	defaultWorkDir         = "~/.local/share/bookforge/work"
	defaultOutputDir       = "~/.local/share/bookforge/output"
	defaultLogDir          = "~/.local/share/bookforge/logs"
	defaultCatalogPath     = "~/.config/bookforge/catalog.yaml"
	defaultLogRetention    = 30
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultLLMBaseURL      = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel        = "google/gemini-2.5-flash"
	defaultLLMReferer      = "https://github.com/bookforge/bookforge"
	defaultLLMTitle        = "bookforge"
	defaultLLMTemperature  = 0.7
	defaultLLMTimeout      = 90
	defaultGeminiModel     = "gemini-2.5-flash-image"
	defaultDPI             = 300
	defaultRetryAttempts   = 3
	defaultRetryBackoffMS  = 2000
	defaultRenderDelayMS   = 4000
	defaultMetadataStripCm = 1.5
	defaultStyleGuide      = "Warm, soft watercolor picture-book illustration with gentle light and rounded shapes."
	defaultStorageBucket   = "bookforge-packages"
	defaultStorageRegion   = "us-east-1"
	defaultNtfyTimeout     = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:     defaultWorkDir,
			OutputDir:   defaultOutputDir,
			LogDir:      defaultLogDir,
			CatalogPath: defaultCatalogPath,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			Temperature:    defaultLLMTemperature,
			TimeoutSeconds: defaultLLMTimeout,
		},
		Gemini: Gemini{
			Model: defaultGeminiModel,
		},
		Pipeline: Pipeline{
			DPI:             defaultDPI,
			RetryAttempts:   defaultRetryAttempts,
			RetryBackoffMS:  defaultRetryBackoffMS,
			RenderDelayMS:   defaultRenderDelayMS,
			MetadataStripCm: defaultMetadataStripCm,
			StyleGuide:      defaultStyleGuide,
		},
		Storage: Storage{
			Bucket: defaultStorageBucket,
			Region: defaultStorageRegion,
			UseSSL: true,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetention,
		},
	}
}
