package storygen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"bookforge/internal/book"
	"bookforge/internal/services"
	"bookforge/internal/services/gemini"
)

// TextModel completes a JSON chat request into target.
type TextModel interface {
	CompleteInto(ctx context.Context, systemPrompt, userPrompt string, target any) error
}

// Illustrator renders one image.
type Illustrator interface {
	Render(ctx context.Context, req gemini.Request) ([]byte, error)
}

// Client implements Generator over a chat model for text and an image model
// for illustrations. It makes one attempt per call.
type Client struct {
	text  TextModel
	image Illustrator
}

// NewClient wires the text and image collaborators.
func NewClient(text TextModel, image Illustrator) *Client {
	return &Client{text: text, image: image}
}

var _ Generator = (*Client)(nil)

// SynthesizeSkeleton drafts the blueprint from the wizard input.
func (c *Client) SynthesizeSkeleton(ctx context.Context, input book.StoryInput) (*book.Blueprint, error) {
	if err := input.Validate(); err != nil {
		return nil, services.Wrap(services.ErrPermanent, "skeleton", "synthesize", "invalid story input", err)
	}
	var bp book.Blueprint
	if err := c.text.CompleteInto(ctx, skeletonSystemPrompt, mustJSON(input), &bp); err != nil {
		return nil, err
	}
	if err := checkBlueprint(&bp, input.Spreads); err != nil {
		return nil, services.Wrap(services.ErrPermanent, "skeleton", "synthesize", "", err)
	}
	return &bp, nil
}

// AuditSkeleton returns the editor's revision of blueprint.
func (c *Client) AuditSkeleton(ctx context.Context, blueprint *book.Blueprint) (*book.Blueprint, error) {
	if blueprint == nil {
		return nil, services.Wrap(services.ErrPrerequisite, "narrative", "audit", "blueprint missing", nil)
	}
	var revised book.Blueprint
	if err := c.text.CompleteInto(ctx, auditSkeletonSystemPrompt, mustJSON(blueprint), &revised); err != nil {
		return nil, err
	}
	if err := checkBlueprint(&revised, len(blueprint.Spreads)); err != nil {
		return nil, services.Wrap(services.ErrPermanent, "narrative", "audit", "", err)
	}
	return &revised, nil
}

type planPayload struct {
	Spreads []struct {
		Number          int    `json:"number"`
		KeyAction       string `json:"keyAction"`
		MainContentSide string `json:"mainContentSide"`
	} `json:"spreads"`
}

// PlanVisuals asks for one directive per spread.
func (c *Client) PlanVisuals(ctx context.Context, blueprint *book.Blueprint) (book.SpreadPlan, error) {
	if blueprint == nil {
		return nil, services.Wrap(services.ErrPrerequisite, "visual_plan", "plan", "blueprint missing", nil)
	}
	var payload planPayload
	if err := c.text.CompleteInto(ctx, planVisualsSystemPrompt, mustJSON(blueprint), &payload); err != nil {
		return nil, err
	}
	return toPlan("plan", payload, len(blueprint.Spreads))
}

// AuditVisuals returns the reviewed plan.
func (c *Client) AuditVisuals(ctx context.Context, blueprint *book.Blueprint, plan book.SpreadPlan) (book.SpreadPlan, error) {
	if len(plan) == 0 {
		return nil, services.Wrap(services.ErrPrerequisite, "visual_plan", "audit", "plan missing", nil)
	}
	user := mustJSON(map[string]any{"story": blueprint, "plan": plan})
	var payload planPayload
	if err := c.text.CompleteInto(ctx, auditVisualsSystemPrompt, user, &payload); err != nil {
		return nil, err
	}
	return toPlan("audit", payload, len(plan))
}

// SynthesizePrompts writes one illustration prompt per directive plus the cover.
func (c *Client) SynthesizePrompts(ctx context.Context, plan book.SpreadPlan, blueprint *book.Blueprint, styleGuide string) (Prompts, error) {
	if len(plan) == 0 {
		return Prompts{}, services.Wrap(services.ErrPrerequisite, "prompts", "synthesize", "plan missing", nil)
	}
	user := mustJSON(map[string]any{"plan": plan, "story": blueprint, "styleGuide": styleGuide})
	var prompts Prompts
	if err := c.text.CompleteInto(ctx, promptsSystemPrompt, user, &prompts); err != nil {
		return Prompts{}, err
	}
	if err := checkPrompts(prompts, len(plan)); err != nil {
		return Prompts{}, services.Wrap(services.ErrPermanent, "prompts", "synthesize", "", err)
	}
	return prompts, nil
}

// AuditPrompts returns the consistency-checked prompts.
func (c *Client) AuditPrompts(ctx context.Context, prompts Prompts, plan book.SpreadPlan) (Prompts, error) {
	if len(prompts.Spreads) == 0 {
		return Prompts{}, services.Wrap(services.ErrPrerequisite, "quality", "audit", "prompts missing", nil)
	}
	var revised Prompts
	if err := c.text.CompleteInto(ctx, auditPromptsSystemPrompt, mustJSON(prompts), &revised); err != nil {
		return Prompts{}, err
	}
	if err := checkPrompts(revised, len(plan)); err != nil {
		return Prompts{}, services.Wrap(services.ErrPermanent, "quality", "audit", "", err)
	}
	return revised, nil
}

// RenderIllustration renders one spread or the cover with the style lock applied.
func (c *Client) RenderIllustration(ctx context.Context, req IllustrationRequest) ([]byte, error) {
	prompt := fmt.Sprintf(illustrationTemplate,
		strings.TrimSpace(req.Prompt), req.Style.Style, req.Style.Character, req.Style.Age)
	return c.image.Render(ctx, gemini.Request{
		Prompt:          prompt,
		Reference:       req.Style.CharacterPhoto,
		ReferenceFormat: imageFormat(req.Style.CharacterPhoto),
	})
}

func checkBlueprint(bp *book.Blueprint, want int) error {
	if strings.TrimSpace(bp.Title) == "" {
		return fmt.Errorf("blueprint has no title")
	}
	if len(bp.Spreads) != want {
		return fmt.Errorf("blueprint has %d spreads, want %d", len(bp.Spreads), want)
	}
	for i, s := range bp.Spreads {
		if s.Number != i+1 {
			return fmt.Errorf("blueprint spread %d is numbered %d", i+1, s.Number)
		}
		if strings.TrimSpace(s.Text) == "" {
			return fmt.Errorf("blueprint spread %d has no text", s.Number)
		}
	}
	return nil
}

func toPlan(op string, payload planPayload, want int) (book.SpreadPlan, error) {
	plan := make(book.SpreadPlan, 0, len(payload.Spreads))
	for _, entry := range payload.Spreads {
		side, err := book.ParseSide(entry.MainContentSide)
		if err != nil {
			return nil, services.Wrap(services.ErrPermanent, "visual_plan", op, fmt.Sprintf("spread %d", entry.Number), err)
		}
		plan = append(plan, book.SpreadDirective{
			Number:          entry.Number,
			KeyAction:       strings.TrimSpace(entry.KeyAction),
			MainContentSide: side,
		})
	}
	if len(plan) != want {
		return nil, services.Wrap(services.ErrPermanent, "visual_plan", op,
			fmt.Sprintf("plan has %d spreads, want %d", len(plan), want), nil)
	}
	if err := plan.Validate(); err != nil {
		return nil, services.Wrap(services.ErrPermanent, "visual_plan", op, "", err)
	}
	return plan, nil
}

func checkPrompts(p Prompts, want int) error {
	if len(p.Spreads) != want {
		return fmt.Errorf("got %d spread prompts, want %d", len(p.Spreads), want)
	}
	for i, s := range p.Spreads {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("spread prompt %d is empty", i+1)
		}
	}
	if strings.TrimSpace(p.Cover) == "" {
		return fmt.Errorf("cover prompt is empty")
	}
	return nil
}

func mustJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func imageFormat(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return "jpeg"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}
