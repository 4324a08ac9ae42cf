package pipeline_test

import (
	"archive/zip"
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"bookforge/internal/book"
	"bookforge/internal/config"
	"bookforge/internal/pipeline"
	"bookforge/internal/runstore"
	"bookforge/internal/services"
	"bookforge/internal/testsupport"
	"bookforge/internal/workflow"
)

const sampleOrder = `
order:
  id: RWY-ABC123
  customerName: Dana Levi
  customerPhone: "+1 555 0100"
  recipient: Noa
  language: en
  productId: square-20
story:
  childName: Noa
  age: 5
  interests: [boats, stars]
  theme: bedtime
  spreads: 4
style:
  style: watercolor
`

func writeOrder(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "order.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write order: %v", err)
	}
	return path
}

func newProducer(t *testing.T, cfg *config.Config, gen *testsupport.FakeGenerator, store *runstore.Store) *pipeline.Producer {
	t.Helper()
	producer, err := pipeline.New(cfg, pipeline.Deps{Generator: gen, Store: store})
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	return producer
}

func TestProduceEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDPI(72))
	store := testsupport.MustOpenStore(t, cfg)
	gen := testsupport.NewFakeGenerator(4)
	producer := newProducer(t, cfg, gen, store)

	var stages []string
	var pages []int
	producer.SetHooks(pipeline.Hooks{
		Stage: func(name string, _ workflow.Snapshot) { stages = append(stages, name) },
		Page:  func(p book.Page) { pages = append(pages, p.Number) },
	})

	order, err := pipeline.LoadOrder(writeOrder(t, sampleOrder))
	if err != nil {
		t.Fatalf("LoadOrder: %v", err)
	}
	result, err := producer.Produce(context.Background(), order)
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}

	if result.DocumentPages != 5 || result.Pages != 4 {
		t.Fatalf("expected 4 spreads and a 5-page document, got %d/%d", result.Pages, result.DocumentPages)
	}
	if !result.Snapshot.Finished {
		t.Fatalf("orchestrator not finished: %+v", result.Snapshot)
	}
	if len(pages) != 4 || pages[0] != 1 || pages[3] != 4 {
		t.Fatalf("unexpected page hooks %v", pages)
	}
	wantStages := []string{"skeleton", "narrative", "visual_plan", "prompts", "quality", "raster", "layout", "package"}
	if strings.Join(stages, ",") != strings.Join(wantStages, ",") {
		t.Fatalf("stages = %v", stages)
	}

	if filepath.Dir(result.ArchivePath) != cfg.Paths.OutputDir {
		t.Fatalf("archive %s not in output dir", result.ArchivePath)
	}
	reader, err := zip.OpenReader(result.ArchivePath)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer reader.Close()
	names := map[string]bool{}
	for _, f := range reader.File {
		names[f.Name] = true
	}
	for _, want := range []string{"manifest.txt", "manifest.json", "book.pdf", "raw/00-cover.png", "raw/04-spread.png", "print/00-cover.png", "print/04-spread.png"} {
		if !names[want] {
			t.Fatalf("archive missing %s", want)
		}
	}
	if len(result.SHA256) != 64 || result.Bytes <= 0 {
		t.Fatalf("unexpected checksum %q size %d", result.SHA256, result.Bytes)
	}

	run, err := store.Get(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("store.Get: %v", err)
	}
	if run.Status != runstore.StatusSucceeded || run.ArchiveSHA256 != result.SHA256 || run.Stage != pipeline.StagePackage {
		t.Fatalf("unexpected stored run %+v", run)
	}
	logs, err := store.Logs(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("store.Logs: %v", err)
	}
	if len(logs) != len(result.Logs) {
		t.Fatalf("stored %d logs, session has %d", len(logs), len(result.Logs))
	}
	if last := logs[len(logs)-1]; last.Stage != pipeline.StageLayout || last.Status != book.LogSucceeded {
		t.Fatalf("expected layout log last, got %+v", last)
	}
	if _, err := os.Stat(result.RunLogPath); err != nil {
		t.Fatalf("run log missing: %v", err)
	}
}

func TestProduceRetriesTransientRender(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDPI(72))
	gen := testsupport.NewFakeGenerator(4)
	quota := services.Wrap(services.ErrTransient, "raster", "render", "quota", nil)
	gen.FailSpread(2, quota, quota)
	producer := newProducer(t, cfg, gen, nil)

	order, err := pipeline.ParseOrder([]byte(sampleOrder))
	if err != nil {
		t.Fatalf("ParseOrder: %v", err)
	}
	result, err := producer.Produce(context.Background(), order)
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if gen.RenderCalls(2) != 3 || gen.RenderCalls(1) != 1 {
		t.Fatalf("render calls spread1=%d spread2=%d", gen.RenderCalls(1), gen.RenderCalls(2))
	}
	var failed int
	for _, entry := range result.Logs {
		if entry.Spread == 2 && entry.Status == book.LogFailed {
			failed++
		}
	}
	if failed != 2 {
		t.Fatalf("expected 2 failed attempts logged for spread 2, got %d", failed)
	}
}

func TestProduceRecordsFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDPI(72))
	store := testsupport.MustOpenStore(t, cfg)
	gen := testsupport.NewFakeGenerator(4)
	gen.FailNext(testsupport.MethodPlan, services.Wrap(services.ErrPermanent, "visual_plan", "plan", "model refused", nil))
	producer := newProducer(t, cfg, gen, store)

	order, err := pipeline.ParseOrder([]byte(sampleOrder))
	if err != nil {
		t.Fatalf("ParseOrder: %v", err)
	}
	result, err := producer.Produce(context.Background(), order)
	if !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if result == nil || result.RunID == "" {
		t.Fatal("expected run id on failure")
	}
	if gen.Calls(testsupport.MethodPrompts) != 0 {
		t.Fatal("later stages must not run after a failure")
	}
	run, err := store.Get(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("store.Get: %v", err)
	}
	if run.Status != runstore.StatusFailed || run.Stage != "visual_plan" || run.ErrorKind != "permanent_generation" {
		t.Fatalf("unexpected failed run %+v", run)
	}
	entries, _ := os.ReadDir(cfg.Paths.OutputDir)
	if len(entries) != 0 {
		t.Fatalf("no archive expected after failure, found %d entries", len(entries))
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
	stage  string
}

func (r *recordingNotifier) record(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingNotifier) NotifyRunStarted(context.Context, string, string) error {
	r.record("started")
	return nil
}

func (r *recordingNotifier) NotifyRunCompleted(context.Context, string, string, int, time.Duration) error {
	r.record("completed")
	return nil
}

func (r *recordingNotifier) NotifyRunFailed(_ context.Context, _, stage string, _ error) error {
	r.record("failed")
	r.mu.Lock()
	r.stage = stage
	r.mu.Unlock()
	return nil
}

func (r *recordingNotifier) TestNotification(context.Context) error { return nil }

func TestProduceNotifiesRunOutcome(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDPI(72))
	order, err := pipeline.ParseOrder([]byte(sampleOrder))
	if err != nil {
		t.Fatalf("ParseOrder: %v", err)
	}

	ok := &recordingNotifier{}
	producer, err := pipeline.New(cfg, pipeline.Deps{Generator: testsupport.NewFakeGenerator(4), Notifier: ok})
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	if _, err := producer.Produce(context.Background(), order); err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if strings.Join(ok.events, ",") != "started,completed" {
		t.Fatalf("unexpected events %v", ok.events)
	}

	failing := &recordingNotifier{}
	gen := testsupport.NewFakeGenerator(4)
	gen.FailNext(testsupport.MethodPrompts, services.Wrap(services.ErrPermanent, "prompts", "prompts", "bad prompt", nil))
	producer, err = pipeline.New(cfg, pipeline.Deps{Generator: gen, Notifier: failing})
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	result, err := producer.Produce(context.Background(), order)
	if err == nil {
		t.Fatal("expected failure")
	}
	if strings.Join(failing.events, ",") != "started,failed" || failing.stage != "prompts" || result.Stage != "prompts" {
		t.Fatalf("unexpected events %v at stage %q", failing.events, failing.stage)
	}
}

func TestProduceUnknownProduct(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	producer := newProducer(t, cfg, testsupport.NewFakeGenerator(4), nil)
	order, err := pipeline.ParseOrder([]byte(strings.Replace(sampleOrder, "square-20", "poster-90", 1)))
	if err != nil {
		t.Fatalf("ParseOrder: %v", err)
	}
	if _, err := producer.Produce(context.Background(), order); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadOrderDerivesDirectionAndPhoto(t *testing.T) {
	dir := t.TempDir()
	photo := filepath.Join(dir, "child.png")
	if err := os.WriteFile(photo, testsupport.SolidPNG(t, 8, 8, color.NRGBA{R: 200, A: 255}), 0o644); err != nil {
		t.Fatalf("write photo: %v", err)
	}
	body := strings.Replace(sampleOrder, "language: en", "language: heb", 1) + "photo: child.png\n"
	path := filepath.Join(dir, "order.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write order: %v", err)
	}

	order, err := pipeline.LoadOrder(path)
	if err != nil {
		t.Fatalf("LoadOrder: %v", err)
	}
	if order.Order.Language != "he" || order.Order.Direction != book.RightToLeft {
		t.Fatalf("language=%q direction=%q", order.Order.Language, order.Order.Direction)
	}
	if order.Story.Language != "he" {
		t.Fatalf("story language = %q", order.Story.Language)
	}
	sess, err := order.Session("soft pastel")
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if len(sess.Style.CharacterPhoto) == 0 || sess.Style.Style != "watercolor" || sess.Style.Age != 5 {
		t.Fatalf("unexpected style lock %+v", sess.Style)
	}
}

func TestParseOrderValidation(t *testing.T) {
	cases := map[string]string{
		"missing id":      strings.Replace(sampleOrder, "id: RWY-ABC123", "id: ''", 1),
		"missing product": strings.Replace(sampleOrder, "productId: square-20", "productId: ''", 1),
		"zero spreads":    strings.Replace(sampleOrder, "spreads: 4", "spreads: 0", 1),
		"bad yaml":        "order: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := pipeline.ParseOrder([]byte(body)); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestNewRequiresGenerator(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := pipeline.New(cfg, pipeline.Deps{}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestFailedRunKeepsRenderedIllustrations(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDPI(72))
	gen := testsupport.NewFakeGenerator(4)
	gen.FailSpread(3, services.Wrap(services.ErrPermanent, "raster", "illustrate", "blocked content", nil))
	producer := newProducer(t, cfg, gen, nil)
	order, err := pipeline.ParseOrder([]byte(sampleOrder))
	if err != nil {
		t.Fatalf("ParseOrder: %v", err)
	}

	result, err := producer.Produce(context.Background(), order)
	if !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("expected permanent failure, got %v", err)
	}
	want := filepath.Join(cfg.Paths.WorkDir, result.RunID, "illustrations")
	if result.SalvageDir != want {
		t.Fatalf("SalvageDir = %q, want %q", result.SalvageDir, want)
	}
	for _, name := range []string{"spread-01.png", "spread-02.png"} {
		data, err := os.ReadFile(filepath.Join(want, name))
		if err != nil || len(data) == 0 {
			t.Fatalf("expected %s to be kept: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(want, "spread-03.png")); !os.IsNotExist(err) {
		t.Fatal("failed spread must not be written")
	}
	if _, err := os.Stat(filepath.Join(want, "cover.png")); !os.IsNotExist(err) {
		t.Fatal("cover was never rendered")
	}
}

func TestSuccessfulRunKeepsNoSalvage(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDPI(72))
	producer := newProducer(t, cfg, testsupport.NewFakeGenerator(4), nil)
	order, err := pipeline.ParseOrder([]byte(sampleOrder))
	if err != nil {
		t.Fatalf("ParseOrder: %v", err)
	}
	result, err := producer.Produce(context.Background(), order)
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if result.SalvageDir != "" {
		t.Fatalf("unexpected salvage dir %q", result.SalvageDir)
	}
}
