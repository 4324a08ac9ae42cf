package book

import (
	"errors"
	"fmt"
	"strings"
)

// StoryInput is what the wizard collected about the child and the story.
type StoryInput struct {
	ChildName string   `yaml:"childName" json:"childName"`
	Age       int      `yaml:"age" json:"age"`
	Gender    string   `yaml:"gender" json:"gender,omitempty"`
	Interests []string `yaml:"interests" json:"interests,omitempty"`
	Theme     string   `yaml:"theme" json:"theme,omitempty"`
	Moral     string   `yaml:"moral" json:"moral,omitempty"`
	Language  string   `yaml:"language" json:"language"`
	Spreads   int      `yaml:"spreads" json:"spreads"`
}

// Validate checks the minimum the skeleton stage needs.
func (in StoryInput) Validate() error {
	if strings.TrimSpace(in.ChildName) == "" {
		return errors.New("story input: child name is required")
	}
	if in.Age <= 0 {
		return errors.New("story input: age must be positive")
	}
	if in.Spreads <= 0 {
		return errors.New("story input: spread count must be positive")
	}
	return nil
}

// BlueprintSpread is the story text for one spread.
type BlueprintSpread struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Blueprint is the story skeleton: title, setting, cast, and per-spread text.
type Blueprint struct {
	Title      string            `json:"title"`
	Setting    string            `json:"setting"`
	Characters []string          `json:"characters,omitempty"`
	Spreads    []BlueprintSpread `json:"spreads"`
}

// TextFor returns the story text for a spread number, or "" when absent.
func (b Blueprint) TextFor(number int) string {
	for _, s := range b.Spreads {
		if s.Number == number {
			return s.Text
		}
	}
	return ""
}

// SpreadDirective is one entry of the visual plan.
type SpreadDirective struct {
	Number          int    `json:"number"`
	KeyAction       string `json:"keyAction"`
	MainContentSide Side   `json:"mainContentSide"`
}

// SpreadPlan is the ordered visual plan. Once approved it is not modified.
type SpreadPlan []SpreadDirective

// Validate requires spreads numbered 1..N in order with known sides.
func (p SpreadPlan) Validate() error {
	if len(p) == 0 {
		return errors.New("spread plan is empty")
	}
	for i, d := range p {
		if d.Number != i+1 {
			return fmt.Errorf("spread plan: entry %d has number %d, want %d", i, d.Number, i+1)
		}
		if !d.MainContentSide.Valid() {
			return fmt.Errorf("spread plan: spread %d has unknown side %q", d.Number, d.MainContentSide)
		}
	}
	return nil
}

// Alignment is the horizontal alignment of a text block.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// TextBlock is one paragraph group, positioned relative to its page half
// (X and Y in [0,1]).
type TextBlock struct {
	Text  string    `json:"text"`
	X     float64   `json:"x"`
	Y     float64   `json:"y"`
	Align Alignment `json:"align"`
}

// Page is one interior spread's final content.
type Page struct {
	Number       int         `json:"number"`
	Text         string      `json:"text"`
	Illustration []byte      `json:"-"`
	TextSide     Side        `json:"textSide"`
	Blocks       []TextBlock `json:"blocks"`
}

// NewPage builds the page for a directive. The text sits on the side opposite the
// illustration's main content; blank lines split the text into blocks.
func NewPage(d SpreadDirective, text string, illustration []byte) Page {
	textSide := d.MainContentSide.Opposite()
	return Page{
		Number:       d.Number,
		Text:         text,
		Illustration: illustration,
		TextSide:     textSide,
		Blocks:       SplitBlocks(text, textSide),
	}
}

// SplitBlocks groups paragraphs separated by blank lines into text blocks
// stacked down the middle of the text half.
func SplitBlocks(text string, side Side) []TextBlock {
	var groups []string
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if para = strings.TrimSpace(para); para != "" {
			groups = append(groups, para)
		}
	}
	if len(groups) == 0 {
		return nil
	}
	x := 0.25
	if side == SideRight {
		x = 0.75
	}
	blocks := make([]TextBlock, len(groups))
	step := 1.0 / float64(len(groups)+1)
	for i, g := range groups {
		blocks[i] = TextBlock{Text: g, X: x, Y: step * float64(i+1), Align: AlignCenter}
	}
	return blocks
}

// StyleLock is passed unchanged to every illustration call of a run.
type StyleLock struct {
	Style          string `json:"style"`
	Character      string `json:"character"`
	CharacterPhoto []byte `json:"-"`
	Age            int    `json:"age"`
}
