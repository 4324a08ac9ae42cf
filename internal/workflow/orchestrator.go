package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bookforge/internal/book"
	"bookforge/internal/logging"
	"bookforge/internal/render"
	"bookforge/internal/services"
	"bookforge/internal/storygen"
)

var (
	// ErrIllegalTransition is returned when a navigation call is not valid in
	// the current state.
	ErrIllegalTransition = errors.New("illegal stage transition")
	// ErrBusy is returned when a navigation call arrives while a stage runs.
	ErrBusy = errors.New("orchestrator is running a stage")
)

// Rasterizer renders the spreads and cover of an approved plan onto the session.
type Rasterizer interface {
	Run(ctx context.Context, sess *book.Session, job render.Job) error
}

// Options configures an Orchestrator.
type Options struct {
	Generator  storygen.Generator
	Rasterizer Rasterizer
	Retrier    services.Retrier
	StyleGuide string
	Logger     *slog.Logger
}

// Orchestrator sequences the six production stages for one session.
type Orchestrator struct {
	gen        storygen.Generator
	raster     Rasterizer
	retrier    services.Retrier
	styleGuide string
	logger     *slog.Logger
	now        func() time.Time

	sess *book.Session

	mu        sync.Mutex
	stage     Stage
	state     State
	running   bool
	lastErr   error
	artifacts artifacts
}

// NewOrchestrator constructs an orchestrator bound to sess. It starts Idle.
func NewOrchestrator(sess *book.Session, opts Options) *Orchestrator {
	return &Orchestrator{
		gen:        opts.Generator,
		raster:     opts.Rasterizer,
		retrier:    opts.Retrier,
		styleGuide: opts.StyleGuide,
		logger:     logging.NewComponentLogger(opts.Logger, "workflow"),
		now:        time.Now,
		sess:       sess,
		state:      StateIdle,
	}
}

// Snapshot reports the orchestrator state for observers.
type Snapshot struct {
	Stage     Stage  `json:"stage"`
	StageName string `json:"stageName"`
	State     State  `json:"state"`
	Running   bool   `json:"running"`
	Finished  bool   `json:"finished"`
	LastError string `json:"lastError,omitempty"`
}

// Snapshot returns the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	snap := Snapshot{
		Stage:    o.stage,
		State:    o.state,
		Running:  o.running,
		Finished: o.finishedLocked(),
	}
	if o.stage.Valid() {
		snap.StageName = o.stage.String()
	}
	if o.lastErr != nil {
		snap.LastError = o.lastErr.Error()
	}
	return snap
}

// Finished reports whether the raster stage has succeeded.
func (o *Orchestrator) Finished() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.finishedLocked()
}

func (o *Orchestrator) finishedLocked() bool {
	return o.stage == LastStage && o.state == StateSucceeded && o.artifacts.rastered
}

// Approved returns the content approved by a finished run.
func (o *Orchestrator) Approved() (Approval, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.finishedLocked() {
		return Approval{}, false
	}
	return Approval{
		Blueprint: o.artifacts.narrative,
		Plan:      append(book.SpreadPlan(nil), o.artifacts.plan...),
		Prompts:   *o.artifacts.audited,
	}, true
}

// Start clears every artifact and the session's pages, then runs the first stage.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrBusy
	}
	if missing := o.artifacts.missingFor(FirstStage, o.sess); missing != "" {
		o.mu.Unlock()
		return services.Wrap(services.ErrPrerequisite, FirstStage.String(), "start", missing, nil)
	}
	o.artifacts = artifacts{}
	o.sess.ResetPages()
	o.stage = FirstStage
	return o.runLocked(ctx, FirstStage)
}

// Advance runs the next stage. It is legal only after the current stage
// succeeded. A missing prerequisite leaves the stage index and state unchanged.
func (o *Orchestrator) Advance(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrBusy
	}
	if o.state != StateSucceeded || o.stage >= LastStage {
		o.mu.Unlock()
		return o.illegal("advance")
	}
	next := o.stage + 1
	if missing := o.artifacts.missingFor(next, o.sess); missing != "" {
		o.mu.Unlock()
		return services.Wrap(services.ErrPrerequisite, next.String(), "advance", missing, nil)
	}
	o.stage = next
	return o.runLocked(ctx, next)
}

// Retreat moves back one stage and re-executes it.
func (o *Orchestrator) Retreat(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrBusy
	}
	if (o.state != StateSucceeded && o.state != StateFailed) || o.stage <= FirstStage {
		o.mu.Unlock()
		return o.illegal("retreat")
	}
	prev := o.stage - 1
	if missing := o.artifacts.missingFor(prev, o.sess); missing != "" {
		o.mu.Unlock()
		return services.Wrap(services.ErrPrerequisite, prev.String(), "retreat", missing, nil)
	}
	o.stage = prev
	return o.runLocked(ctx, prev)
}

// Retry re-executes the current stage without moving. Earlier stages are not
// invoked.
func (o *Orchestrator) Retry(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrBusy
	}
	if o.state != StateSucceeded && o.state != StateFailed {
		o.mu.Unlock()
		return o.illegal("retry")
	}
	if missing := o.artifacts.missingFor(o.stage, o.sess); missing != "" {
		o.mu.Unlock()
		return services.Wrap(services.ErrPrerequisite, o.stage.String(), "retry", missing, nil)
	}
	return o.runLocked(ctx, o.stage)
}

// RunAll starts the sequence and advances until every stage has succeeded,
// checking ctx between stages.
func (o *Orchestrator) RunAll(ctx context.Context) error {
	if err := o.Start(ctx); err != nil {
		return err
	}
	for !o.Finished() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := o.Advance(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) illegal(op string) error {
	return fmt.Errorf("%w: %s from %s(%s)", ErrIllegalTransition, op, o.state, o.stage)
}

// runLocked is entered with o.mu held and releases it while the stage executes.
func (o *Orchestrator) runLocked(ctx context.Context, stage Stage) error {
	o.running = true
	o.state = StateRunning
	o.lastErr = nil
	o.artifacts.dropFrom(stage)
	current := o.artifacts
	o.mu.Unlock()

	result, err := o.executeRecovered(ctx, stage, current)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.running = false
	if err != nil {
		o.state = StateFailed
		o.lastErr = err
		return err
	}
	o.artifacts = result
	o.state = StateSucceeded
	if stage == LastStage {
		prompts := append(append([]string(nil), result.audited.Spreads...), result.audited.Cover)
		o.sess.SetApproved(result.narrative, result.plan, prompts)
	}
	return nil
}
