package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"bookforge/internal/book"
	"bookforge/internal/catalog"
	"bookforge/internal/config"
	"bookforge/internal/fileutil"
	"bookforge/internal/layout"
	"bookforge/internal/logging"
	"bookforge/internal/logs"
	"bookforge/internal/notifications"
	"bookforge/internal/objectstore"
	"bookforge/internal/packager"
	"bookforge/internal/preflight"
	"bookforge/internal/render"
	"bookforge/internal/runstore"
	"bookforge/internal/services"
	"bookforge/internal/storygen"
	"bookforge/internal/textutil"
	"bookforge/internal/workflow"
)

// Stage names recorded in the run store after the orchestrator finishes.
const (
	StageLayout  = "layout"
	StagePackage = "package"
	StageUpload  = "upload"
)

// Deps are the collaborators a Producer shares across orders. Store and
// Uploader are optional. A nil Notifier is built from the config.
type Deps struct {
	Generator storygen.Generator
	Catalog   *catalog.Catalog
	Store     *runstore.Store
	Uploader  *objectstore.Uploader
	Notifier  notifications.Service
	Logger    *slog.Logger
}

// Hooks observe a run while it executes. They are called synchronously.
type Hooks struct {
	Stage func(name string, snap workflow.Snapshot)
	Page  func(book.Page)
}

// Producer runs orders end to end.
type Producer struct {
	cfg      *config.Config
	gen      storygen.Generator
	catalog  *catalog.Catalog
	store    *runstore.Store
	uploader *objectstore.Uploader
	notifier notifications.Service
	engine   *layout.Engine
	logger   *slog.Logger
	hooks    Hooks
}

// Result describes a finished (or failed) run.
type Result struct {
	RunID         string
	OrderID       string
	Stage         string
	ArchivePath   string
	SHA256        string
	Bytes         int64
	Upload        *objectstore.Upload
	Pages         int
	DocumentPages int
	Snapshot      workflow.Snapshot
	Logs          []book.WorkflowLog
	RunLogPath    string
	// SalvageDir holds the illustrations of a failed run, when any were
	// rendered before the failure.
	SalvageDir string
	Duration   time.Duration
}

// New constructs a Producer. A nil catalog is loaded from the configured path.
func New(cfg *config.Config, deps Deps) (*Producer, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "config is required", nil)
	}
	if deps.Generator == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "generator is required", nil)
	}
	cat := deps.Catalog
	if cat == nil {
		loaded, err := catalog.Load(cfg.Paths.CatalogPath)
		if err != nil {
			return nil, err
		}
		cat = loaded
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg.Notifications)
	}

	var logo image.Image
	if strings.TrimSpace(cfg.Paths.LogoPath) != "" {
		img, err := imaging.Open(cfg.Paths.LogoPath)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "pipeline", "load logo", cfg.Paths.LogoPath, err)
		}
		logo = img
	}

	return &Producer{
		cfg:      cfg,
		gen:      deps.Generator,
		catalog:  cat,
		store:    deps.Store,
		uploader: deps.Uploader,
		notifier: notifier,
		engine: layout.NewEngine(layout.Options{
			DPI:             cfg.Pipeline.DPI,
			MetadataStripCm: cfg.Pipeline.MetadataStripCm,
			Logo:            logo,
			Logger:          logger,
		}),
		logger: logging.NewComponentLogger(logger, "pipeline"),
	}, nil
}

// SetHooks installs observers for subsequent runs.
func (p *Producer) SetHooks(h Hooks) {
	p.hooks = h
}

// Produce runs one order. The returned result is non-nil whenever a run was
// recorded, including on failure, so callers can report the run id.
func (p *Producer) Produce(ctx context.Context, order *OrderFile) (*Result, error) {
	if order == nil {
		return nil, services.Wrap(services.ErrValidation, "order", "produce", "order is required", nil)
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	spec, err := p.catalog.Get(order.Order.ProductID)
	if err != nil {
		return nil, err
	}
	if err := p.cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "ensure directories", "", err)
	}
	if failed := preflight.Failed(preflight.CheckDirectories(p.cfg)); len(failed) > 0 {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "preflight", failed[0].Name+": "+failed[0].Detail, nil)
	}

	started := time.Now()
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	ctx = services.WithOrderID(ctx, order.Order.ID)
	result := &Result{RunID: runID, OrderID: order.Order.ID}

	logger, closeLog := p.runLogger(runID, result)
	defer closeLog()
	logger = logging.WithContext(ctx, logger)

	sess, err := order.Session(p.cfg.Pipeline.StyleGuide)
	if err != nil {
		return nil, err
	}
	if err := p.createRun(ctx, runID, order); err != nil {
		return nil, err
	}

	logger.Info("production run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("product_id", spec.ID),
		logging.Int("spreads", order.Story.Spreads),
		logging.String("direction", string(order.Order.Direction)),
	)
	p.notify(ctx, logger, "run_started", func(nctx context.Context) error {
		return p.notifier.NotifyRunStarted(nctx, order.Order.ID, order.Order.Title)
	})

	sess.OnLog = func(entry book.WorkflowLog) {
		if p.store == nil {
			return
		}
		if err := p.store.AppendLog(context.WithoutCancel(ctx), runID, entry); err != nil {
			logger.Warn("persist workflow log failed", logging.Error(err))
		}
	}
	if p.hooks.Page != nil {
		sess.OnPage = p.hooks.Page
	}

	retrier := services.NewRetrier(p.cfg.Pipeline.RetryAttempts, p.cfg.RetryBackoff())
	orch := workflow.NewOrchestrator(sess, workflow.Options{
		Generator:  p.gen,
		Rasterizer: render.NewLoop(p.gen, retrier, p.cfg.RenderDelay(), logger),
		Retrier:    retrier,
		StyleGuide: p.cfg.Pipeline.StyleGuide,
		Logger:     logger,
	})

	finish := func(err error) (*Result, error) {
		result.Snapshot = orch.Snapshot()
		result.Logs = sess.Logs()
		result.Pages = len(sess.Pages())
		result.Duration = time.Since(started)
		if err != nil {
			if dir, n, serr := p.salvageRasters(sess, runID); serr != nil {
				logging.WarnWithContext(logger, "saving rendered illustrations failed", "salvage_failed",
					logging.String("dir", dir),
					logging.Error(serr),
					logging.String(logging.FieldImpact, "illustrations of the failed run are lost"),
				)
			} else if n > 0 {
				result.SalvageDir = dir
				logger.Info("rendered illustrations kept",
					logging.String(logging.FieldEventType, "salvage_written"),
					logging.String("dir", dir),
					logging.Int("files", n),
				)
			}
			p.failRun(ctx, logger, runID, err)
			p.notify(ctx, logger, "run_failed", func(nctx context.Context) error {
				return p.notifier.NotifyRunFailed(nctx, order.Order.ID, result.Stage, err)
			})
			return result, err
		}
		logger.Info("production run complete",
			logging.String(logging.FieldEventType, "run_complete"),
			logging.String("archive", result.ArchivePath),
			logging.Int("document_pages", result.DocumentPages),
			logging.Duration("duration", result.Duration),
		)
		p.notify(ctx, logger, "run_completed", func(nctx context.Context) error {
			return p.notifier.NotifyRunCompleted(nctx, order.Order.ID, order.Order.Title, result.DocumentPages, result.Duration)
		})
		return result, nil
	}

	if err := p.runStages(ctx, orch, result, logger); err != nil {
		return finish(err)
	}

	p.markStage(ctx, logger, result, StageLayout)
	stitched, err := p.stitch(ctx, sess, spec, order.Order)
	if err != nil {
		return finish(err)
	}
	result.DocumentPages = stitched.DocumentPages()
	p.hookStage(StageLayout, orch.Snapshot())

	p.markStage(ctx, logger, result, StagePackage)
	archive, err := p.writeArchive(ctx, packager.Bundle{Session: sess, Result: stitched, Spec: spec, RunID: runID}, result)
	if err != nil {
		return finish(err)
	}
	p.hookStage(StagePackage, orch.Snapshot())

	if p.uploader != nil {
		p.markStage(ctx, logger, result, StageUpload)
		upload, err := p.uploader.UploadFile(ctx, result.ArchivePath, order.Order.ID)
		if err != nil {
			return finish(err)
		}
		result.Upload = upload
		archive.RemoteKey = upload.Key
		p.hookStage(StageUpload, orch.Snapshot())
	}

	if p.store != nil {
		if err := p.store.Complete(context.WithoutCancel(ctx), runID, archive); err != nil {
			logger.Warn("persist run completion failed", logging.Error(err))
		}
	}
	return finish(nil)
}

// runStages starts the orchestrator and advances it through the last stage,
// recording each stage in the run store before it executes.
func (p *Producer) runStages(ctx context.Context, orch *workflow.Orchestrator, result *Result, logger *slog.Logger) error {
	p.markStage(ctx, logger, result, workflow.FirstStage.String())
	if err := orch.Start(ctx); err != nil {
		return err
	}
	p.hookStage(workflow.FirstStage.String(), orch.Snapshot())
	for !orch.Finished() {
		if err := ctx.Err(); err != nil {
			return err
		}
		next := orch.Snapshot().Stage + 1
		p.markStage(ctx, logger, result, next.String())
		if err := orch.Advance(ctx); err != nil {
			return err
		}
		p.hookStage(next.String(), orch.Snapshot())
	}
	return nil
}

func (p *Producer) writeArchive(ctx context.Context, bundle packager.Bundle, result *Result) (runstore.Archive, error) {
	name := textutil.ArchiveName(bundle.Session.Order.ID)
	workPath := filepath.Join(p.cfg.Paths.WorkDir, bundle.RunID, name)
	if err := packager.WriteFile(workPath, bundle); err != nil {
		return runstore.Archive{}, err
	}
	outputPath := filepath.Join(p.cfg.Paths.OutputDir, name)
	if err := fileutil.CopyFileVerified(workPath, outputPath); err != nil {
		return runstore.Archive{}, services.Wrap(services.ErrPackaging, StagePackage, "publish", outputPath, err)
	}
	sum, size, err := fileutil.SHA256File(outputPath)
	if err != nil {
		return runstore.Archive{}, services.Wrap(services.ErrPackaging, StagePackage, "checksum", outputPath, err)
	}
	result.ArchivePath = outputPath
	result.SHA256 = sum
	result.Bytes = size
	if err := ctx.Err(); err != nil {
		return runstore.Archive{}, err
	}
	return runstore.Archive{Path: outputPath, SHA256: sum, Bytes: size}, nil
}

func (p *Producer) runLogger(runID string, result *Result) (*slog.Logger, func()) {
	path := logs.RunLogPath(p.cfg.Paths.LogDir, runID)
	handler, closer, err := logging.NewRunFileHandler(path, p.cfg.Logging.Level)
	if err != nil {
		p.logger.Warn("run log unavailable", logging.Error(err), logging.String("path", path))
		return p.logger, func() {}
	}
	result.RunLogPath = path
	return logging.TeeLogger(p.logger, handler), func() { _ = closer.Close() }
}

func (p *Producer) createRun(ctx context.Context, runID string, order *OrderFile) error {
	if p.store == nil {
		return nil
	}
	_, err := p.store.Create(ctx, runstore.Run{
		ID:        runID,
		OrderID:   order.Order.ID,
		ProductID: order.Order.ProductID,
		Title:     order.Order.Title,
		Language:  order.Order.Language,
	})
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "pipeline", "record run", "", err)
	}
	return nil
}

func (p *Producer) markStage(ctx context.Context, logger *slog.Logger, result *Result, stage string) {
	result.Stage = stage
	if p.store == nil {
		return
	}
	if err := p.store.SetStage(context.WithoutCancel(ctx), result.RunID, stage); err != nil {
		logger.Warn("persist run stage failed", logging.String(logging.FieldStage, stage), logging.Error(err))
	}
}

// notify delivers an alert. Delivery failures are logged and never fail the run.
func (p *Producer) notify(ctx context.Context, logger *slog.Logger, event string, send func(context.Context) error) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := send(nctx); err != nil {
		logger.Warn("notification failed", logging.String(logging.FieldEventType, event), logging.Error(err))
	}
}

func (p *Producer) hookStage(name string, snap workflow.Snapshot) {
	if p.hooks.Stage != nil {
		p.hooks.Stage(name, snap)
	}
}

func (p *Producer) failRun(ctx context.Context, logger *slog.Logger, runID string, err error) {
	kind := services.Kind(err)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		kind = "canceled"
	}
	logging.ErrorWithContext(logger, "production run failed", "run_failure",
		logging.Error(err),
		logging.String(logging.FieldErrorKind, kind),
	)
	if p.store == nil {
		return
	}
	if storeErr := p.store.Fail(context.WithoutCancel(ctx), runID, err.Error(), kind); storeErr != nil {
		logger.Warn("persist run failure failed", logging.Error(storeErr))
	}
}

// Summary formats a one-line description of a result for terminal output.
func (r *Result) Summary() string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("order %s run %s: %d pages, %s", r.OrderID, r.RunID, r.DocumentPages, r.ArchivePath)
}
