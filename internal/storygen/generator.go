// Package storygen is the generation collaborator of the production pipeline:
// story skeleton, audits, visual plan, illustration prompts and illustrations.
package storygen

import (
	"context"

	"bookforge/internal/book"
)

// Prompts holds one illustration prompt per spread plus the cover prompt.
type Prompts struct {
	Spreads []string `json:"spreads"`
	Cover   string   `json:"cover"`
}

// IllustrationRequest is one illustration call. Style is the run's style lock
// and is passed unchanged for every spread and the cover.
type IllustrationRequest struct {
	Prompt string
	Style  book.StyleLock
	// Spread is the 1-based spread number, or book.CoverSpread for the cover.
	Spread int
}

// Generator is the narrow set of calls the orchestrator and render loop make.
// Implementations mark errors with services.ErrTransient or services.ErrPermanent.
type Generator interface {
	SynthesizeSkeleton(ctx context.Context, input book.StoryInput) (*book.Blueprint, error)
	AuditSkeleton(ctx context.Context, blueprint *book.Blueprint) (*book.Blueprint, error)
	PlanVisuals(ctx context.Context, blueprint *book.Blueprint) (book.SpreadPlan, error)
	AuditVisuals(ctx context.Context, blueprint *book.Blueprint, plan book.SpreadPlan) (book.SpreadPlan, error)
	SynthesizePrompts(ctx context.Context, plan book.SpreadPlan, blueprint *book.Blueprint, styleGuide string) (Prompts, error)
	AuditPrompts(ctx context.Context, prompts Prompts, plan book.SpreadPlan) (Prompts, error)
	RenderIllustration(ctx context.Context, req IllustrationRequest) ([]byte, error)
}
