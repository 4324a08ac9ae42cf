package testsupport

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"image/png"
	"sync"

	"bookforge/internal/book"
	"bookforge/internal/storygen"
)

// Method names accepted by FakeGenerator.FailNext and Calls.
const (
	MethodSkeleton     = "SynthesizeSkeleton"
	MethodAuditStory   = "AuditSkeleton"
	MethodPlan         = "PlanVisuals"
	MethodAuditPlan    = "AuditVisuals"
	MethodPrompts      = "SynthesizePrompts"
	MethodAuditPrompts = "AuditPrompts"
	MethodIllustrate   = "RenderIllustration"
)

// FakeGenerator is a scripted storygen.Generator. It produces a deterministic
// story of Spreads spreads and small solid rasters, and returns queued errors
// before falling back to success.
type FakeGenerator struct {
	Spreads int
	// RasterSize is the edge length of generated illustrations (default 64).
	RasterSize int

	mu       sync.Mutex
	failures map[string][]error
	calls    map[string]int
	renders  []storygen.IllustrationRequest
}

var _ storygen.Generator = (*FakeGenerator)(nil)

// NewFakeGenerator returns a generator producing a story of n spreads.
func NewFakeGenerator(n int) *FakeGenerator {
	return &FakeGenerator{Spreads: n, failures: map[string][]error{}, calls: map[string]int{}}
}

// FailNext queues errors returned by the next calls to method, in order.
func (f *FakeGenerator) FailNext(method string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method] = append(f.failures[method], errs...)
}

// FailSpread queues errors for RenderIllustration calls of one spread only.
func (f *FakeGenerator) FailSpread(spread int, errs ...error) {
	f.FailNext(spreadKey(spread), errs...)
}

// Calls returns how many times method was invoked.
func (f *FakeGenerator) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// Renders returns a copy of every illustration request received.
func (f *FakeGenerator) Renders() []storygen.IllustrationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]storygen.IllustrationRequest(nil), f.renders...)
}

// RenderCalls counts illustration calls for one spread (book.CoverSpread for the cover).
func (f *FakeGenerator) RenderCalls(spread int) int {
	count := 0
	for _, r := range f.Renders() {
		if r.Spread == spread {
			count++
		}
	}
	return count
}

func (f *FakeGenerator) enter(keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[keys[0]]++
	for _, key := range keys {
		if queued := f.failures[key]; len(queued) > 0 {
			f.failures[key] = queued[1:]
			return queued[0]
		}
	}
	return nil
}

func (f *FakeGenerator) blueprint(title string) *book.Blueprint {
	bp := &book.Blueprint{Title: title, Setting: "a quiet forest", Characters: []string{"hero"}}
	for i := 1; i <= f.Spreads; i++ {
		bp.Spreads = append(bp.Spreads, book.BlueprintSpread{
			Number: i,
			Text:   fmt.Sprintf("Spread %d begins.\n\nSpread %d ends.", i, i),
		})
	}
	return bp
}

func (f *FakeGenerator) SynthesizeSkeleton(_ context.Context, input book.StoryInput) (*book.Blueprint, error) {
	if err := f.enter(MethodSkeleton); err != nil {
		return nil, err
	}
	return f.blueprint(input.ChildName + "'s Adventure"), nil
}

func (f *FakeGenerator) AuditSkeleton(_ context.Context, blueprint *book.Blueprint) (*book.Blueprint, error) {
	if err := f.enter(MethodAuditStory); err != nil {
		return nil, err
	}
	out := *blueprint
	out.Setting = blueprint.Setting + " (audited)"
	return &out, nil
}

func (f *FakeGenerator) PlanVisuals(_ context.Context, blueprint *book.Blueprint) (book.SpreadPlan, error) {
	if err := f.enter(MethodPlan); err != nil {
		return nil, err
	}
	plan := make(book.SpreadPlan, 0, len(blueprint.Spreads))
	for _, s := range blueprint.Spreads {
		side := book.SideLeft
		if s.Number%2 == 0 {
			side = book.SideRight
		}
		plan = append(plan, book.SpreadDirective{Number: s.Number, KeyAction: fmt.Sprintf("action %d", s.Number), MainContentSide: side})
	}
	return plan, nil
}

func (f *FakeGenerator) AuditVisuals(_ context.Context, _ *book.Blueprint, plan book.SpreadPlan) (book.SpreadPlan, error) {
	if err := f.enter(MethodAuditPlan); err != nil {
		return nil, err
	}
	return append(book.SpreadPlan(nil), plan...), nil
}

func (f *FakeGenerator) SynthesizePrompts(_ context.Context, plan book.SpreadPlan, _ *book.Blueprint, styleGuide string) (storygen.Prompts, error) {
	if err := f.enter(MethodPrompts); err != nil {
		return storygen.Prompts{}, err
	}
	p := storygen.Prompts{Cover: "cover in " + styleGuide}
	for _, d := range plan {
		p.Spreads = append(p.Spreads, fmt.Sprintf("%s in %s", d.KeyAction, styleGuide))
	}
	return p, nil
}

func (f *FakeGenerator) AuditPrompts(_ context.Context, prompts storygen.Prompts, _ book.SpreadPlan) (storygen.Prompts, error) {
	if err := f.enter(MethodAuditPrompts); err != nil {
		return storygen.Prompts{}, err
	}
	return prompts, nil
}

func (f *FakeGenerator) RenderIllustration(_ context.Context, req storygen.IllustrationRequest) ([]byte, error) {
	f.mu.Lock()
	f.renders = append(f.renders, req)
	f.mu.Unlock()
	if err := f.enter(MethodIllustrate, spreadKey(req.Spread)); err != nil {
		return nil, err
	}
	size := f.RasterSize
	if size <= 0 {
		size = 64
	}
	shade := uint8(40 * (req.Spread + 2))
	var buf bytes.Buffer
	if err := png.Encode(&buf, SolidImage(size, size, color.NRGBA{R: shade, G: 120, B: 200, A: 255})); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func spreadKey(spread int) string {
	return fmt.Sprintf("%s#%d", MethodIllustrate, spread)
}
