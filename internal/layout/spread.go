package layout

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"

	"bookforge/internal/book"
	"bookforge/internal/compose"
	"bookforge/internal/geometry"
	"bookforge/internal/logging"
	"bookforge/internal/services"
)

// spreadPlan is the pixel geometry of one spread, resolved once per call.
type spreadPlan struct {
	geo     geometry.Geometry
	width   int
	stripX  int
	stripW  int
	safe    geometry.Box
	pad     int
	stripQR int
}

func (e *Engine) planSpread(spec book.ProductSpec, textSide book.Side) (spreadPlan, error) {
	geo, err := e.resolver.Resolve(spec)
	if err != nil {
		return spreadPlan{}, err
	}
	m := spec.Margins
	w := spec.Page.WidthCm
	left, right := m.OuterCm, w-m.InnerCm
	if textSide == book.SideRight {
		left, right = w+m.InnerCm, 2*w-m.OuterCm
	}
	stripW := e.resolver.Px(e.stripCm)
	pad := e.resolver.Px(0.15)
	qr := stripW - 2*pad
	if qr < 21 {
		qr = stripW
	}
	return spreadPlan{
		geo:    geo,
		width:  geo.SpreadWidth + stripW,
		stripX: geo.SpreadWidth,
		stripW: stripW,
		safe: geometry.Box{
			X: e.resolver.Px(left),
			Y: geo.MarginTop,
			W: e.resolver.Px(right - left),
			H: e.resolver.Px(spec.Page.HeightCm - m.TopCm - m.BottomCm),
		},
		pad:     pad,
		stripQR: qr,
	}, nil
}

// LayoutSpread composes one interior spread: the illustration filled to two
// joined pages, each text block placed at its relative position inside the
// margins of its half, and the metadata strip appended on the right edge.
func (e *Engine) LayoutSpread(ctx context.Context, spread image.Image, page book.Page, spec book.ProductSpec, index int, orderID string, dir book.Direction) (*image.NRGBA, error) {
	if spread == nil {
		return nil, services.Wrap(services.ErrPrerequisite, "layout", "spread", fmt.Sprintf("spread %d raster is required", index), nil)
	}
	if strings.TrimSpace(orderID) == "" {
		return nil, services.Wrap(services.ErrPrerequisite, "layout", "spread", "order identifier is required", nil)
	}
	if !page.TextSide.Valid() {
		return nil, services.Wrap(services.ErrValidation, "layout", "spread", fmt.Sprintf("spread %d has no text side", index), nil)
	}
	plan, err := e.planSpread(spec, page.TextSide)
	if err != nil {
		return nil, err
	}
	geo := plan.geo

	base, err := compose.AspectFill(spread, geo.SpreadWidth, geo.PageHeight)
	if err != nil {
		return nil, err
	}
	overlays := e.placeBlocks(pageBlocks(page), plan, geo.SpreadWidth, dir)

	qrSize := plan.stripQR
	if need, err := compose.QRMinSize(orderID); err != nil {
		return nil, err
	} else if need > qrSize {
		qrSize = plan.stripW
	}
	qr, err := compose.QRCode(orderID, qrSize)
	if err != nil {
		return nil, err
	}
	qr = compose.RotateCCW(qr)
	qrTop := geo.PageHeight - geo.MarginBottom - plan.pad - qrSize
	overlays = append(overlays, compose.At(qr, plan.stripX+(plan.stripW-qrSize)/2, qrTop))

	labelTop := plan.pad + geo.MarginTop
	label, err := e.stripLabel(fmt.Sprintf("%s  %02d", orderID, index), ink, plan.stripW, qrTop-plan.pad-labelTop)
	if err != nil {
		return nil, err
	}
	overlays = append(overlays, compose.At(label, plan.stripX+(plan.stripW-label.Bounds().Dx())/2, labelTop))

	out, err := e.flatten(ctx, base, overlays, plan.width, geo.PageHeight)
	if err != nil {
		return nil, err
	}
	logging.WithContext(ctx, e.logger).Debug("spread laid out",
		logging.Int(logging.FieldSpread, index),
		logging.String("text_side", string(page.TextSide)),
		logging.Int("width_px", plan.width),
		logging.Int("height_px", geo.PageHeight),
	)
	return out, nil
}

// stripLabel renders the rotated order label at the largest glyph scale that
// fits a maxW x maxH slot of the metadata strip.
func (e *Engine) stripLabel(text string, ink color.Color, maxW, maxH int) (*image.NRGBA, error) {
	for scale := e.glyphScale(labelGlyphCm); scale >= 1; scale-- {
		label := compose.RotateCCW(compose.RenderText(text, compose.TextStyle{Scale: scale, Color: ink}))
		if b := label.Bounds(); b.Dx() <= maxW && b.Dy() <= maxH {
			return label, nil
		}
	}
	return nil, services.Wrap(services.ErrCompositing, "layout", "strip label",
		fmt.Sprintf("%q does not fit a %dx%d slot", text, maxW, maxH), nil)
}

// pageBlocks returns the page's text blocks, or the whole text as one
// centered block when the page carries none.
func pageBlocks(page book.Page) []book.TextBlock {
	if len(page.Blocks) > 0 {
		return page.Blocks
	}
	text := strings.TrimSpace(page.Text)
	if text == "" {
		return nil
	}
	x := 0.25
	if page.TextSide == book.SideRight {
		x = 0.75
	}
	return []book.TextBlock{{Text: text, X: x, Y: 0.5, Align: book.AlignCenter}}
}

// placeBlocks renders each block centered on its relative (X, Y) point, X
// across the spread and Y down the safe area. Blocks are clamped to the safe
// area and pushed down so they never overlap the block above. Centered blocks
// are right aligned in right-to-left books.
func (e *Engine) placeBlocks(blocks []book.TextBlock, plan spreadPlan, spreadW int, dir book.Direction) []compose.Overlay {
	safe := plan.safe
	overlays := make([]compose.Overlay, 0, len(blocks))
	floor := safe.Y
	for _, b := range blocks {
		text := strings.TrimSpace(b.Text)
		if text == "" {
			continue
		}
		align := b.Align
		if align == "" {
			align = book.AlignCenter
		}
		if align == book.AlignCenter && dir == book.RightToLeft {
			align = book.AlignRight
		}
		img := compose.RenderText(text, compose.TextStyle{
			Scale:    e.glyphScale(bodyGlyphCm),
			MaxWidth: safe.W,
			Align:    align,
			Color:    ink,
		})
		w, h := img.Bounds().Dx(), img.Bounds().Dy()
		x := clamp(int(b.X*float64(spreadW))-w/2, safe.X, safe.X+safe.W-w)
		y := clamp(safe.Y+int(b.Y*float64(safe.H))-h/2, floor, safe.Y+safe.H-h)
		overlays = append(overlays, compose.At(img, x, y))
		floor = y + h
	}
	return overlays
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
