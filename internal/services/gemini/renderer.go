// Package gemini renders book illustrations through the Gemini image models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"bookforge/internal/services"
)

// DefaultModel is the image model used when none is configured. It returns
// image parts from a plain generateContent request.
const DefaultModel = "gemini-2.5-flash-image"

// Config selects the model and credentials.
type Config struct {
	APIKey      string
	Model       string
	Temperature float64
}

// Request is one illustration call. Reference, when present, is an image the
// model should keep the character's likeness consistent with.
type Request struct {
	Prompt    string
	Reference []byte
	// ReferenceFormat is the image format of Reference, e.g. "png" or "jpeg".
	ReferenceFormat string
}

type generateFunc func(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)

// Renderer issues single-attempt illustration requests. Errors are marked
// services.ErrTransient or services.ErrPermanent.
type Renderer struct {
	cfg      Config
	generate generateFunc
}

// New constructs a renderer. The Gemini client is created per call.
func New(cfg Config) *Renderer {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	r := &Renderer{cfg: cfg}
	r.generate = r.generateWithClient
	return r
}

// Render returns the first image blob of the model's response.
func (r *Renderer) Render(ctx context.Context, req Request) ([]byte, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, services.Wrap(services.ErrPermanent, "gemini", "render", "prompt required", nil)
	}
	if err := checkModel(r.cfg.Model); err != nil {
		return nil, err
	}
	parts := []genai.Part{genai.Text(prompt)}
	if len(req.Reference) > 0 {
		format := req.ReferenceFormat
		if format == "" {
			format = "png"
		}
		parts = append(parts, genai.ImageData(format, req.Reference))
	}
	resp, err := r.generate(ctx, parts...)
	if err != nil {
		return nil, classify(err)
	}
	return extractImage(resp)
}

func (r *Renderer) generateWithClient(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	if r.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "gemini", "client", "GEMINI_API_KEY not set", nil)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(r.cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(r.cfg.Model)
	r.configure(model)
	return model.GenerateContent(ctx, parts...)
}

// configure applies the request settings. ResponseMIMEType stays empty:
// image models reject requests that pin a text MIME type.
func (r *Renderer) configure(model *genai.GenerativeModel) {
	model.SetTemperature(float32(r.cfg.Temperature))
	model.SetCandidateCount(1)
}

// checkModel rejects the preview "-image-generation" models. They only answer
// requests that set IMAGE response modalities, which this client cannot send.
func checkModel(model string) error {
	if strings.HasSuffix(model, "-image-generation") {
		return services.Wrap(services.ErrConfiguration, "gemini", "model",
			fmt.Sprintf("%s needs response modalities this client cannot request; use %s", model, DefaultModel), nil)
	}
	return nil
}

func extractImage(resp *genai.GenerateContentResponse) ([]byte, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
			return nil, services.Wrap(services.ErrPermanent, "gemini", "render",
				fmt.Sprintf("prompt blocked: %s", resp.PromptFeedback.BlockReason), nil)
		}
		return nil, services.Wrap(services.ErrTransient, "gemini", "render", "no candidates returned", nil)
	}
	var sawText bool
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			switch p := part.(type) {
			case genai.Blob:
				if strings.HasPrefix(p.MIMEType, "image/") && len(p.Data) > 0 {
					return p.Data, nil
				}
			case genai.Text:
				sawText = true
			}
		}
		if candidate.FinishReason == genai.FinishReasonSafety {
			return nil, services.Wrap(services.ErrPermanent, "gemini", "render", "blocked by safety filter", nil)
		}
	}
	if sawText {
		return nil, services.Wrap(services.ErrTransient, "gemini", "render", "model answered with text instead of an image", nil)
	}
	return nil, services.Wrap(services.ErrTransient, "gemini", "render", "empty content returned", nil)
}

// classify maps gRPC and HTTP API failures onto the retry markers.
func classify(err error) error {
	if errors.Is(err, services.ErrConfiguration) || errors.Is(err, services.ErrPermanent) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return services.Wrap(services.ErrPermanent, "gemini", "render", "cancelled", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTransient, "gemini", "render", "deadline exceeded", err)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code == http.StatusRequestTimeout || apiErr.Code >= http.StatusInternalServerError {
			return services.Wrap(services.ErrTransient, "gemini", "render", fmt.Sprintf("http %d", apiErr.Code), err)
		}
		return services.Wrap(services.ErrPermanent, "gemini", "render", fmt.Sprintf("http %d", apiErr.Code), err)
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Internal, codes.Aborted:
		return services.Wrap(services.ErrTransient, "gemini", "render", status.Code(err).String(), err)
	}
	return services.Wrap(services.ErrPermanent, "gemini", "render", "", err)
}
