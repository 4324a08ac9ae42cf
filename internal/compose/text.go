package compose

import (
	_ "embed"
	"image"
	"image/color"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/bidi"

	"bookforge/internal/book"
)

// DejaVu Sans Condensed covers Latin, Hebrew and Arabic. See fonts/README.md.
//
//go:embed fonts/DejaVuSansCondensed.ttf
var bodyFontTTF []byte

var (
	bodyFontOnce sync.Once
	bodyFont     *opentype.Font
	bodyFontErr  error
)

func loadBodyFont() (*opentype.Font, error) {
	bodyFontOnce.Do(func() {
		bodyFont, bodyFontErr = opentype.Parse(bodyFontTTF)
	})
	return bodyFont, bodyFontErr
}

// TextStyle controls how RenderText rasterizes a block of text.
type TextStyle struct {
	// Scale multiplies the 13 pixel base font size; values below 1 are
	// treated as 1.
	Scale int
	// MaxWidth wraps lines to this many output pixels; zero disables wrapping.
	MaxWidth int
	Align    book.Alignment
	Color    color.Color
}

const (
	baseFontPx = 13
	lineGap    = 3
)

// RenderText rasterizes text onto a transparent image sized to fit it. Blank
// lines are preserved as paragraph gaps and right-to-left runs are drawn in
// visual order. Output is deterministic for a given text and style.
func RenderText(text string, style TextStyle) *image.NRGBA {
	scale := style.Scale
	if scale < 1 {
		scale = 1
	}
	ink := style.Color
	if ink == nil {
		ink = color.Black
	}
	f, err := loadBodyFont()
	if err != nil {
		return image.NewNRGBA(image.Rect(0, 0, 1, 1))
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(baseFontPx * scale),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return image.NewNRGBA(image.Rect(0, 0, 1, 1))
	}
	defer face.Close()

	measure := func(s string) int { return font.MeasureString(face, s).Ceil() }
	lines := wrapLines(text, style.MaxWidth, measure)
	if len(lines) == 0 {
		return image.NewNRGBA(image.Rect(0, 0, 1, 1))
	}
	for i, line := range lines {
		lines[i] = visualOrder(line)
	}

	width := 0
	for _, line := range lines {
		if w := measure(line); w > width {
			width = w
		}
	}
	if style.MaxWidth > 0 && style.Align != book.AlignLeft && style.MaxWidth > width {
		width = style.MaxWidth
	}
	if width == 0 {
		width = 1
	}
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	lineHeight := metrics.Height.Ceil() + lineGap*scale
	height := lineHeight * len(lines)

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	drawer := &font.Drawer{Dst: dst, Src: image.NewUniform(ink), Face: face}
	for i, line := range lines {
		w := measure(line)
		x := 0
		switch style.Align {
		case book.AlignCenter:
			x = (width - w) / 2
		case book.AlignRight:
			x = width - w
		}
		drawer.Dot = fixed.P(x, i*lineHeight+ascent)
		drawer.DrawString(line)
	}
	return dst
}

// visualOrder reorders one line from logical to display order. Lines without
// right-to-left characters are returned unchanged.
func visualOrder(line string) string {
	rtlBase, hasRTL := false, false
	seenStrong := false
	for _, r := range line {
		props, _ := bidi.LookupRune(r)
		switch props.Class() {
		case bidi.R, bidi.AL:
			hasRTL = true
			if !seenStrong {
				rtlBase, seenStrong = true, true
			}
		case bidi.L:
			seenStrong = true
		}
	}
	if !hasRTL {
		return line
	}

	var p bidi.Paragraph
	opts := []bidi.Option{}
	if rtlBase {
		opts = append(opts, bidi.DefaultDirection(bidi.RightToLeft))
	}
	if _, err := p.SetString(line, opts...); err != nil {
		return line
	}
	order, err := p.Order()
	if err != nil {
		return line
	}
	runs := make([]string, order.NumRuns())
	for i := range runs {
		run := order.Run(i)
		if run.Direction() == bidi.RightToLeft {
			runs[i] = bidi.ReverseString(run.String())
		} else {
			runs[i] = run.String()
		}
	}
	if rtlBase {
		for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
			runs[i], runs[j] = runs[j], runs[i]
		}
	}
	return strings.Join(runs, "")
}

// wrapLines breaks text on whitespace so no line measures wider than
// maxWidth. Words wider than maxWidth are split between runes. maxWidth <= 0
// only splits on newlines.
func wrapLines(text string, maxWidth int, measure func(string) int) []string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return nil
	}
	var out []string
	for _, raw := range strings.Split(text, "\n") {
		words := strings.Fields(raw)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		if maxWidth <= 0 || measure == nil {
			out = append(out, strings.Join(words, " "))
			continue
		}
		line := ""
		for _, word := range words {
			for measure(word) > maxWidth {
				if line != "" {
					out = append(out, line)
					line = ""
				}
				head := fittingPrefix(word, maxWidth, measure)
				out = append(out, head)
				word = word[len(head):]
			}
			switch {
			case line == "":
				line = word
			case measure(line+" "+word) <= maxWidth:
				line += " " + word
			default:
				out = append(out, line)
				line = word
			}
		}
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// fittingPrefix returns the longest prefix of word that fits maxWidth, and at
// least one rune.
func fittingPrefix(word string, maxWidth int, measure func(string) int) string {
	_, size := utf8.DecodeRuneInString(word)
	end := size
	for end < len(word) {
		_, next := utf8.DecodeRuneInString(word[end:])
		if measure(word[:end+next]) > maxWidth {
			break
		}
		end += next
	}
	return word[:end]
}
