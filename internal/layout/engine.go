// Package layout places illustrations, text, and identifiers onto
// print-accurate cover and spread canvases.
package layout

import (
	"context"
	"image"
	"image/color"
	"log/slog"

	"bookforge/internal/compose"
	"bookforge/internal/geometry"
	"bookforge/internal/logging"
)

// DefaultStripCm is the width of the metadata strip appended to each spread.
const DefaultStripCm = 1.5

// Glyph heights in centimeters for the bitmap face, before integer scaling.
const (
	titleGlyphCm = 1.0
	bodyGlyphCm  = 0.45
	labelGlyphCm = 0.3
	qrCm         = 2.5
	glyphPx      = 13
)

// Options configures an Engine.
type Options struct {
	DPI             float64
	MetadataStripCm float64
	// Logo is drawn beside the order QR code on the back cover when set.
	Logo   image.Image
	Logger *slog.Logger
}

// Engine lays out covers and spreads at a fixed resolution.
type Engine struct {
	resolver geometry.Resolver
	stripCm  float64
	logo     image.Image
	logger   *slog.Logger
}

// NewEngine constructs an engine, substituting defaults for zero options.
func NewEngine(opts Options) *Engine {
	strip := opts.MetadataStripCm
	if strip <= 0 {
		strip = DefaultStripCm
	}
	return &Engine{
		resolver: geometry.NewResolver(opts.DPI),
		stripCm:  strip,
		logo:     opts.Logo,
		logger:   logging.NewComponentLogger(opts.Logger, "layout"),
	}
}

// Resolver exposes the engine's unit conversion.
func (e *Engine) Resolver() geometry.Resolver { return e.resolver }

// StripWidthCm is the metadata strip width added to every spread.
func (e *Engine) StripWidthCm() float64 { return e.stripCm }

func (e *Engine) glyphScale(cm float64) int {
	scale := e.resolver.Px(cm) / glyphPx
	if scale < 1 {
		return 1
	}
	return scale
}

func (e *Engine) flatten(ctx context.Context, base image.Image, overlays []compose.Overlay, width, height int) (*image.NRGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	surface := compose.NewSurface()
	defer surface.Close()
	return surface.Compose(base, overlays, width, height)
}

var ink = color.NRGBA{A: 255}
