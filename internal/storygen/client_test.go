package storygen

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"bookforge/internal/book"
	"bookforge/internal/services"
	"bookforge/internal/services/gemini"
)

type scriptedText struct {
	replies map[string]string
	users   []string
}

func (s *scriptedText) CompleteInto(_ context.Context, system, user string, target any) error {
	s.users = append(s.users, user)
	reply, ok := s.replies[system]
	if !ok {
		return services.Wrap(services.ErrPermanent, "test", "complete", "no scripted reply", nil)
	}
	return json.Unmarshal([]byte(reply), target)
}

type recordingIllustrator struct {
	last gemini.Request
}

func (r *recordingIllustrator) Render(_ context.Context, req gemini.Request) ([]byte, error) {
	r.last = req
	return []byte("png"), nil
}

func input() book.StoryInput {
	return book.StoryInput{ChildName: "Maya", Age: 5, Language: "en", Spreads: 2}
}

const twoSpreadStory = `{"title":"Maya's Moon","setting":"a quiet harbor town","spreads":[{"number":1,"text":"One."},{"number":2,"text":"Two."}]}`

func TestSynthesizeSkeletonValidatesSpreadCount(t *testing.T) {
	text := &scriptedText{replies: map[string]string{skeletonSystemPrompt: twoSpreadStory}}
	c := NewClient(text, &recordingIllustrator{})
	bp, err := c.SynthesizeSkeleton(context.Background(), input())
	if err != nil {
		t.Fatalf("SynthesizeSkeleton: %v", err)
	}
	if bp.Title != "Maya's Moon" || len(bp.Spreads) != 2 {
		t.Fatalf("unexpected blueprint %+v", bp)
	}
	if !strings.Contains(text.users[0], "Maya") {
		t.Fatalf("story input missing from prompt: %s", text.users[0])
	}

	in := input()
	in.Spreads = 3
	_, err = c.SynthesizeSkeleton(context.Background(), in)
	if !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("expected permanent error for short blueprint, got %v", err)
	}
}

func TestPlanVisualsParsesSides(t *testing.T) {
	text := &scriptedText{replies: map[string]string{
		planVisualsSystemPrompt: `{"spreads":[{"number":1,"keyAction":"waves","mainContentSide":"left"},{"number":2,"keyAction":"sleeps","mainContentSide":"RIGHT"}]}`,
	}}
	c := NewClient(text, &recordingIllustrator{})
	bp := &book.Blueprint{Title: "t", Spreads: []book.BlueprintSpread{{Number: 1, Text: "a"}, {Number: 2, Text: "b"}}}
	plan, err := c.PlanVisuals(context.Background(), bp)
	if err != nil {
		t.Fatalf("PlanVisuals: %v", err)
	}
	if plan[0].MainContentSide != book.SideLeft || plan[1].MainContentSide != book.SideRight {
		t.Fatalf("unexpected sides %+v", plan)
	}
}

func TestPlanVisualsRejectsUnknownSide(t *testing.T) {
	text := &scriptedText{replies: map[string]string{
		planVisualsSystemPrompt: `{"spreads":[{"number":1,"keyAction":"waves","mainContentSide":"middle"}]}`,
	}}
	c := NewClient(text, &recordingIllustrator{})
	bp := &book.Blueprint{Title: "t", Spreads: []book.BlueprintSpread{{Number: 1, Text: "a"}}}
	if _, err := c.PlanVisuals(context.Background(), bp); !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestPromptsMustCoverEverySpread(t *testing.T) {
	plan := book.SpreadPlan{{Number: 1, MainContentSide: book.SideLeft}, {Number: 2, MainContentSide: book.SideRight}}
	text := &scriptedText{replies: map[string]string{
		promptsSystemPrompt:      `{"spreads":["a","b"],"cover":"c"}`,
		auditPromptsSystemPrompt: `{"spreads":["a"],"cover":"c"}`,
	}}
	c := NewClient(text, &recordingIllustrator{})
	prompts, err := c.SynthesizePrompts(context.Background(), plan, nil, "watercolor")
	if err != nil {
		t.Fatalf("SynthesizePrompts: %v", err)
	}
	if !strings.Contains(text.users[0], "watercolor") {
		t.Fatal("style guide missing from prompt request")
	}
	if _, err := c.AuditPrompts(context.Background(), prompts, plan); !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("expected permanent error for dropped prompt, got %v", err)
	}
}

func TestMissingArtifactsArePrerequisiteErrors(t *testing.T) {
	c := NewClient(&scriptedText{}, &recordingIllustrator{})
	if _, err := c.AuditSkeleton(context.Background(), nil); !errors.Is(err, services.ErrPrerequisite) {
		t.Fatalf("AuditSkeleton: %v", err)
	}
	if _, err := c.SynthesizePrompts(context.Background(), nil, nil, ""); !errors.Is(err, services.ErrPrerequisite) {
		t.Fatalf("SynthesizePrompts: %v", err)
	}
}

func TestRenderIllustrationAppliesStyleLock(t *testing.T) {
	img := &recordingIllustrator{}
	c := NewClient(&scriptedText{}, img)
	style := book.StyleLock{Style: "soft watercolor", Character: "Maya, curly hair", Age: 5, CharacterPhoto: []byte("\x89PNG\r\n\x1a\n")}
	if _, err := c.RenderIllustration(context.Background(), IllustrationRequest{Prompt: "Maya waves at the moon", Style: style, Spread: 1}); err != nil {
		t.Fatalf("RenderIllustration: %v", err)
	}
	for _, want := range []string{"Maya waves at the moon", "soft watercolor", "Maya, curly hair", "age 5"} {
		if !strings.Contains(img.last.Prompt, want) {
			t.Fatalf("prompt missing %q: %s", want, img.last.Prompt)
		}
	}
	if img.last.ReferenceFormat != "png" || len(img.last.Reference) == 0 {
		t.Fatalf("reference not forwarded: %+v", img.last)
	}
}
