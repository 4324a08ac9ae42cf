package pipeline

import (
	"bookforge/internal/config"
	"bookforge/internal/services"
	"bookforge/internal/services/gemini"
	"bookforge/internal/services/llm"
	"bookforge/internal/storygen"
)

// NewGenerator wires the OpenRouter text client and the Gemini illustrator.
func NewGenerator(cfg *config.Config) (storygen.Generator, error) {
	if err := cfg.RequireGeneration(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "config", "generation", "", err)
	}
	text := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		Temperature:    cfg.LLM.Temperature,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	image := gemini.New(gemini.Config{
		APIKey:      cfg.Gemini.APIKey,
		Model:       cfg.Gemini.Model,
		Temperature: cfg.Gemini.Temperature,
	})
	return storygen.NewClient(text, image), nil
}
