package layout

import (
	"context"
	"image"
	"strings"

	"bookforge/internal/book"
	"bookforge/internal/compose"
	"bookforge/internal/geometry"
	"bookforge/internal/logging"
	"bookforge/internal/services"
)

// coverPlan is the pixel geometry of one cover, resolved once per call.
type coverPlan struct {
	geo     geometry.Geometry
	panels  book.CoverPanels
	frontX  int
	backX   int
	qrSize  int
	logoBox geometry.Box
	gap     int
	bottom  int
	barcode geometry.Box
}

func (e *Engine) planCover(spec book.ProductSpec, dir book.Direction) (coverPlan, error) {
	geo, err := e.resolver.Resolve(spec)
	if err != nil {
		return coverPlan{}, err
	}
	panels := book.PanelsFor(dir)
	qr := e.resolver.Px(qrCm)
	if limit := geo.PanelWidth / 3; qr > limit {
		qr = limit
	}
	bottom := geo.MarginBottom
	if bottom == 0 {
		bottom = e.resolver.Px(1)
	}
	plan := coverPlan{
		geo:     geo,
		panels:  panels,
		frontX:  geo.PanelX(panels.FrontSide),
		backX:   geo.PanelX(panels.BackSide),
		qrSize:  qr,
		gap:     e.resolver.Px(0.5),
		bottom:  bottom,
		barcode: e.resolver.BarcodeBox(spec, panels.BackSide),
	}
	if e.logo != nil {
		plan.logoBox = geometry.Box{W: geo.PanelWidth / 3, H: qr}
	}
	return plan, nil
}

// LayoutCover composes the unfolded cover: art filled to the full cover size,
// the title on the front panel, the product name at the format offset, and
// the logo and order QR code on the back panel with the decorative barcode.
func (e *Engine) LayoutCover(ctx context.Context, cover image.Image, spec book.ProductSpec, orderID, title string, dir book.Direction) (*image.NRGBA, error) {
	if cover == nil {
		return nil, services.Wrap(services.ErrPrerequisite, "layout", "cover", "cover raster is required", nil)
	}
	if strings.TrimSpace(orderID) == "" {
		return nil, services.Wrap(services.ErrPrerequisite, "layout", "cover", "order identifier is required", nil)
	}
	plan, err := e.planCover(spec, dir)
	if err != nil {
		return nil, err
	}
	geo := plan.geo

	base, err := compose.AspectFill(cover, geo.CoverWidth, geo.CoverHeight)
	if err != nil {
		return nil, err
	}
	overlays := make([]compose.Overlay, 0, 5)

	if title = strings.TrimSpace(title); title != "" {
		width := geo.TitleWidth
		if width <= 0 || width > geo.PanelWidth {
			width = geo.PanelWidth
		}
		img := compose.RenderText(title, compose.TextStyle{
			Scale:    e.glyphScale(titleGlyphCm),
			MaxWidth: width,
			Align:    book.AlignCenter,
			Color:    ink,
		})
		overlays = append(overlays, centeredIn(img, plan.frontX, geo.PanelWidth, geo.TitleFromTop))
	}

	if name := strings.TrimSpace(spec.Name); name != "" && geo.FormatWidth > 0 {
		img := compose.RenderText(name, compose.TextStyle{
			Scale:    e.glyphScale(labelGlyphCm),
			MaxWidth: geo.FormatWidth,
			Align:    book.AlignCenter,
			Color:    ink,
		})
		overlays = append(overlays, centeredIn(img, plan.frontX, geo.PanelWidth, geo.FormatFromTop))
	}

	qr, err := compose.QRCode(orderID, plan.qrSize)
	if err != nil {
		return nil, err
	}
	qrSize := qr.Bounds().Dx()
	groupY := geo.CoverHeight - plan.bottom - qrSize
	if e.logo != nil {
		logo := compose.Fit(e.logo, plan.logoBox.W, plan.logoBox.H)
		groupW := logo.Bounds().Dx() + plan.gap + qrSize
		x := plan.backX + (geo.PanelWidth-groupW)/2
		overlays = append(overlays,
			compose.At(logo, x, groupY+(qrSize-logo.Bounds().Dy())/2),
			compose.At(qr, x+logo.Bounds().Dx()+plan.gap, groupY),
		)
	} else {
		overlays = append(overlays, compose.At(qr, plan.backX+(geo.PanelWidth-qrSize)/2, groupY))
	}

	if plan.barcode.W > 0 && plan.barcode.H > 0 {
		bar, err := compose.Barcode(orderID, plan.barcode.W, plan.barcode.H)
		if err != nil {
			return nil, err
		}
		overlays = append(overlays, compose.At(bar, plan.barcode.X, plan.barcode.Y))
	}

	out, err := e.flatten(ctx, base, overlays, geo.CoverWidth, geo.CoverHeight)
	if err != nil {
		return nil, err
	}
	logging.WithContext(ctx, e.logger).Debug("cover laid out",
		logging.String("product", spec.ID),
		logging.String("panels", plan.panels.String()),
		logging.Int("width_px", geo.CoverWidth),
		logging.Int("height_px", geo.CoverHeight),
	)
	return out, nil
}

// centeredIn centers img horizontally in the span [x, x+width) at top offset y.
func centeredIn(img image.Image, x, width, y int) compose.Overlay {
	return compose.At(img, x+(width-img.Bounds().Dx())/2, y)
}
