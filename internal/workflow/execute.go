package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookforge/internal/book"
	"bookforge/internal/logging"
	"bookforge/internal/render"
	"bookforge/internal/services"
	"bookforge/internal/storygen"
)

// execute runs one stage against a private copy of the artifacts and returns
// the copy with the stage's output stored.
func (o *Orchestrator) execute(ctx context.Context, stage Stage, current artifacts) (artifacts, error) {
	ctx = services.WithStage(ctx, stage.String())
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, o.logger)
	stageStart := o.now()
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

	var err error
	if stage == StageRaster {
		err = o.executeRaster(ctx, &current)
	} else {
		err = o.executeGeneration(ctx, stage, &current)
	}
	if err != nil {
		logging.ErrorWithContext(logger, "stage failed", "stage_failure",
			logging.ErrorKind(err),
			logging.Error(err),
			logging.Elapsed(stageStart),
			logging.String(logging.FieldErrorHint, hintFor(err)),
		)
		return current, err
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Elapsed(stageStart),
	)
	return current, nil
}

// executeRecovered turns a collaborator panic into a permanent stage failure
// so the orchestrator is never left marked as running.
func (o *Orchestrator) executeRecovered(ctx context.Context, stage Stage, current artifacts) (result artifacts, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = current
			err = services.Wrap(services.ErrPermanent, stage.String(), "execute", fmt.Sprintf("panic: %v", r), nil)
		}
	}()
	return o.execute(ctx, stage, current)
}

func (o *Orchestrator) executeGeneration(ctx context.Context, stage Stage, a *artifacts) error {
	if stage == StageVisualPlan {
		return o.executeVisualPlan(ctx, a)
	}
	output, err := o.attempt(ctx, stage, o.stageInput(stage, a), func(ctx context.Context) (any, error) {
		return o.call(ctx, stage, a)
	})
	if err != nil {
		return err
	}
	o.store(stage, a, output)
	return nil
}

// executeVisualPlan retries the draft and the review separately, so a failed
// review does not discard a good draft.
func (o *Orchestrator) executeVisualPlan(ctx context.Context, a *artifacts) error {
	stage := StageVisualPlan
	draft, err := o.attempt(ctx, stage, book.Snapshot(map[string]any{"step": "plan", "story": a.narrative}), func(ctx context.Context) (any, error) {
		return o.gen.PlanVisuals(ctx, a.narrative)
	})
	if err != nil {
		return err
	}
	plan := draft.(book.SpreadPlan)
	reviewed, err := o.attempt(ctx, stage, book.Snapshot(map[string]any{"step": "audit", "plan": plan}), func(ctx context.Context) (any, error) {
		out, err := o.gen.AuditVisuals(ctx, a.narrative, plan)
		if err != nil {
			return nil, err
		}
		if err := out.Validate(); err != nil {
			return nil, services.Wrap(services.ErrPermanent, stage.String(), "validate plan", err.Error(), nil)
		}
		return out, nil
	})
	if err != nil {
		return err
	}
	o.store(stage, a, reviewed)
	return nil
}

// attempt runs one collaborator call under the retry budget and logs every
// attempt against stage.
func (o *Orchestrator) attempt(ctx context.Context, stage Stage, input []byte, fn func(context.Context) (any, error)) (any, error) {
	var started time.Time
	retrier := o.retrier
	retrier.OnFailure = func(attempt int, err error) {
		o.appendLog(stage, attempt, started, input, nil, err)
		logging.WithContext(ctx, o.logger).Warn("stage attempt failed",
			logging.Int(logging.FieldAttempt, attempt),
			logging.ErrorKind(err),
			logging.Error(err),
		)
	}

	var output any
	attempts, err := retrier.Do(ctx, func(ctx context.Context, _ int) error {
		started = o.now()
		out, err := fn(ctx)
		if err != nil {
			return err
		}
		output = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.appendLog(stage, attempts, started, input, book.Snapshot(output), nil)
	return output, nil
}

// call invokes the collaborator for stage without mutating a.
func (o *Orchestrator) call(ctx context.Context, stage Stage, a *artifacts) (any, error) {
	switch stage {
	case StageSkeleton:
		return nonNil(stage)(o.gen.SynthesizeSkeleton(ctx, o.sess.Input))
	case StageNarrative:
		return nonNil(stage)(o.gen.AuditSkeleton(ctx, a.skeleton))
	case StagePrompts:
		return promptsFor(stage, a.plan)(o.gen.SynthesizePrompts(ctx, a.plan, a.narrative, o.styleGuide))
	case StageQuality:
		return promptsFor(stage, a.plan)(o.gen.AuditPrompts(ctx, *a.prompts, a.plan))
	default:
		return nil, services.Wrap(services.ErrPermanent, stage.String(), "call", "no collaborator for stage", nil)
	}
}

// promptsFor rejects prompt sets that do not carry one prompt per planned
// spread plus a cover prompt.
func promptsFor(stage Stage, plan book.SpreadPlan) func(storygen.Prompts, error) (any, error) {
	return func(p storygen.Prompts, err error) (any, error) {
		if err != nil {
			return nil, err
		}
		if len(p.Spreads) != len(plan) {
			return nil, services.Wrap(services.ErrPermanent, stage.String(), "check prompts",
				fmt.Sprintf("got %d spread prompts for %d planned spreads", len(p.Spreads), len(plan)), nil)
		}
		if strings.TrimSpace(p.Cover) == "" {
			return nil, services.Wrap(services.ErrPermanent, stage.String(), "check prompts", "cover prompt is empty", nil)
		}
		return p, nil
	}
}

func nonNil(stage Stage) func(*book.Blueprint, error) (any, error) {
	return func(bp *book.Blueprint, err error) (any, error) {
		if err != nil {
			return nil, err
		}
		if bp == nil {
			return nil, services.Wrap(services.ErrPermanent, stage.String(), "call", "empty blueprint", nil)
		}
		return bp, nil
	}
}

func (o *Orchestrator) store(stage Stage, a *artifacts, output any) {
	switch stage {
	case StageSkeleton:
		a.skeleton = output.(*book.Blueprint)
	case StageNarrative:
		a.narrative = output.(*book.Blueprint)
	case StageVisualPlan:
		a.plan = output.(book.SpreadPlan)
	case StagePrompts:
		p := output.(storygen.Prompts)
		a.prompts = &p
	case StageQuality:
		p := output.(storygen.Prompts)
		a.audited = &p
	}
}

func (o *Orchestrator) stageInput(stage Stage, a *artifacts) []byte {
	switch stage {
	case StageSkeleton:
		return book.Snapshot(o.sess.Input)
	case StageNarrative:
		return book.Snapshot(a.skeleton)
	case StagePrompts:
		return book.Snapshot(map[string]any{"plan": a.plan, "styleGuide": o.styleGuide})
	case StageQuality:
		return book.Snapshot(a.prompts)
	default:
		return nil
	}
}

func (o *Orchestrator) executeRaster(ctx context.Context, a *artifacts) error {
	if o.raster == nil {
		return services.Wrap(services.ErrConfiguration, StageRaster.String(), "run", "no rasterizer configured", nil)
	}
	if reason := a.missingFor(StageRaster, o.sess); reason != "" {
		return services.Wrap(services.ErrPermanent, StageRaster.String(), "run", reason, nil)
	}
	job := render.Job{CoverPrompt: a.audited.Cover}
	for i, directive := range a.plan {
		job.Spreads = append(job.Spreads, render.SpreadJob{
			Directive: directive,
			Prompt:    a.audited.Spreads[i],
			Text:      a.narrative.TextFor(directive.Number),
		})
	}
	input := book.Snapshot(map[string]any{"spreads": len(job.Spreads)})

	o.sess.ResetPages()
	started := o.now()
	if err := o.raster.Run(ctx, o.sess, job); err != nil {
		o.appendLog(StageRaster, 1, started, input, nil, err)
		return err
	}
	a.rastered = true
	o.appendLog(StageRaster, 1, started, input, book.Snapshot(map[string]any{"pages": len(o.sess.Pages())}), nil)
	return nil
}

func (o *Orchestrator) appendLog(stage Stage, attempt int, started time.Time, input, output []byte, err error) {
	entry := book.WorkflowLog{
		Stage:     stage.String(),
		Attempt:   attempt,
		Timestamp: o.now().UTC(),
		Input:     input,
		Status:    book.LogSucceeded,
		Duration:  o.now().Sub(started),
	}
	if err != nil {
		entry.Status = book.LogFailed
		entry.Error = err.Error()
		entry.ErrorKind = services.Kind(err)
	} else {
		entry.Output = output
	}
	o.sess.AppendLog(entry)
}

func hintFor(err error) string {
	switch services.Kind(err) {
	case "transient_generation":
		return "generation service unavailable; retry the stage later"
	case "permanent_generation":
		return "generation output rejected; retry or retreat to revise earlier stages"
	case "prerequisite_missing":
		return "run the earlier stages first"
	case "configuration":
		return "check API keys and config file"
	default:
		return "check logs for details"
	}
}
