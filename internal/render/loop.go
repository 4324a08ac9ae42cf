// Package render drives the per-spread illustration calls of a production run.
package render

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"bookforge/internal/book"
	"bookforge/internal/logging"
	"bookforge/internal/services"
	"bookforge/internal/storygen"
)

const stageName = "raster"

// SpreadJob is the work for one approved spread.
type SpreadJob struct {
	Directive book.SpreadDirective
	Prompt    string
	Text      string
}

// Job is one raster pass: every spread in plan order, then the cover.
type Job struct {
	Spreads     []SpreadJob
	CoverPrompt string
}

// Loop renders illustrations one call at a time, spaced by a fixed delay.
type Loop struct {
	gen     storygen.Generator
	retrier services.Retrier
	delay   time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewLoop builds a render loop. A zero delay disables spacing between calls.
func NewLoop(gen storygen.Generator, retrier services.Retrier, delay time.Duration, logger *slog.Logger) *Loop {
	return &Loop{
		gen:     gen,
		retrier: retrier,
		delay:   delay,
		logger:  logging.NewComponentLogger(logger, "render"),
		now:     time.Now,
	}
}

// Run renders every spread in order, publishing each page to the session before
// starting the next, and then renders the cover. The first failure aborts the
// loop; pages already published stay on the session.
func (l *Loop) Run(ctx context.Context, sess *book.Session, job Job) error {
	if sess == nil {
		return services.Wrap(services.ErrPrerequisite, stageName, "run", "session is required", nil)
	}
	if len(job.Spreads) == 0 {
		return services.Wrap(services.ErrPrerequisite, stageName, "run", "no spreads to render", nil)
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if l.delay > 0 {
		limiter = rate.NewLimiter(rate.Every(l.delay), 1)
	}
	ctx = services.WithStage(ctx, stageName)

	for _, spread := range job.Spreads {
		if err := ctx.Err(); err != nil {
			return err
		}
		number := spread.Directive.Number
		raster, err := l.illustrate(ctx, sess, limiter, number, spread.Prompt)
		if err != nil {
			return err
		}
		sess.AppendPage(book.NewPage(spread.Directive, spread.Text, raster))
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	cover, err := l.illustrate(ctx, sess, limiter, book.CoverSpread, job.CoverPrompt)
	if err != nil {
		return err
	}
	sess.SetCover(cover)
	return nil
}

func (l *Loop) illustrate(ctx context.Context, sess *book.Session, limiter *rate.Limiter, spread int, prompt string) ([]byte, error) {
	if spread > 0 {
		ctx = services.WithSpread(ctx, spread)
	}
	logger := logging.WithContext(ctx, l.logger)
	req := storygen.IllustrationRequest{Prompt: prompt, Style: sess.Style, Spread: spread}
	input := book.Snapshot(map[string]any{"spread": spread, "prompt": prompt})

	var (
		raster  []byte
		started time.Time
	)
	retrier := l.retrier
	retrier.OnFailure = func(attempt int, err error) {
		sess.AppendLog(book.WorkflowLog{
			Stage:     stageName,
			Spread:    spread,
			Attempt:   attempt,
			Timestamp: l.now().UTC(),
			Input:     input,
			Error:     err.Error(),
			ErrorKind: services.Kind(err),
			Status:    book.LogFailed,
			Duration:  l.now().Sub(started),
		})
		logger.Warn("illustration attempt failed",
			logging.Int(logging.FieldAttempt, attempt),
			logging.ErrorKind(err),
			logging.Error(err),
		)
	}

	attempts, err := retrier.Do(ctx, func(ctx context.Context, attempt int) error {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		started = l.now()
		out, err := l.gen.RenderIllustration(ctx, req)
		if err != nil {
			return err
		}
		if len(out) == 0 {
			return services.Wrap(services.ErrTransient, stageName, "render illustration", "empty raster", nil)
		}
		raster = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	sess.AppendLog(book.WorkflowLog{
		Stage:     stageName,
		Spread:    spread,
		Attempt:   attempts,
		Timestamp: l.now().UTC(),
		Input:     input,
		Output:    book.Snapshot(map[string]any{"bytes": len(raster)}),
		Status:    book.LogSucceeded,
		Duration:  l.now().Sub(started),
	})
	logger.Info("illustration rendered",
		logging.Int(logging.FieldAttempt, attempts),
		logging.Int("bytes", len(raster)),
	)
	return raster, nil
}
