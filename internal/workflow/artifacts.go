package workflow

import (
	"bookforge/internal/book"
	"bookforge/internal/storygen"
)

// artifacts holds each stage's output. A nil field means the stage has not
// produced anything since it (or an earlier stage) last ran.
type artifacts struct {
	skeleton  *book.Blueprint
	narrative *book.Blueprint
	plan      book.SpreadPlan
	prompts   *storygen.Prompts
	audited   *storygen.Prompts
	rastered  bool
}

// dropFrom clears the artifacts of stage and every later stage.
func (a *artifacts) dropFrom(stage Stage) {
	if stage <= StageSkeleton {
		a.skeleton = nil
	}
	if stage <= StageNarrative {
		a.narrative = nil
	}
	if stage <= StageVisualPlan {
		a.plan = nil
	}
	if stage <= StagePrompts {
		a.prompts = nil
	}
	if stage <= StageQuality {
		a.audited = nil
	}
	a.rastered = false
}

// missingFor names the first artifact stage needs that is absent.
func (a *artifacts) missingFor(stage Stage, sess *book.Session) string {
	switch stage {
	case StageSkeleton:
		if err := sess.Input.Validate(); err != nil {
			return err.Error()
		}
	case StageNarrative:
		if a.skeleton == nil {
			return "skeleton blueprint"
		}
	case StageVisualPlan:
		if a.narrative == nil {
			return "narrative blueprint"
		}
	case StagePrompts:
		if len(a.plan) == 0 {
			return "visual plan"
		}
	case StageQuality:
		if a.prompts == nil {
			return "illustration prompts"
		}
		if len(a.plan) == 0 {
			return "visual plan"
		}
	case StageRaster:
		if a.audited == nil {
			return "audited prompts"
		}
		if len(a.plan) == 0 {
			return "visual plan"
		}
		if a.narrative == nil {
			return "narrative blueprint"
		}
		if len(a.audited.Spreads) != len(a.plan) {
			return "audited prompts for every planned spread"
		}
	}
	return ""
}

// Approval is the content a finished run hands to layout and packaging.
type Approval struct {
	Blueprint *book.Blueprint
	Plan      book.SpreadPlan
	Prompts   storygen.Prompts
}
