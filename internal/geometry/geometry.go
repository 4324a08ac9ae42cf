// Package geometry converts physical book measurements into pixel geometry.
//
// Every pixel value is computed from centimeters in a single rounding step.
// Sums and differences are taken in centimeters first so that composed
// offsets never accumulate per-component rounding error.
package geometry

import (
	"fmt"
	"math"

	"bookforge/internal/book"
	"bookforge/internal/services"
)

// DefaultDPI is the print resolution used when none is configured.
const DefaultDPI = 300

const cmPerInch = 2.54

// Resolver converts centimeters to pixels at a fixed resolution.
type Resolver struct {
	DPI float64
}

// NewResolver returns a resolver, substituting DefaultDPI for non-positive values.
func NewResolver(dpi float64) Resolver {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return Resolver{DPI: dpi}
}

// Px converts centimeters to the nearest whole pixel.
func (r Resolver) Px(cm float64) int {
	return int(math.Round(cm * r.dpi() / cmPerInch))
}

// CmFromPx converts pixels back to centimeters.
func (r Resolver) CmFromPx(px int) float64 {
	return float64(px) * cmPerInch / r.dpi()
}

func (r Resolver) dpi() float64 {
	if r.DPI <= 0 {
		return DefaultDPI
	}
	return r.DPI
}

// Box is a pixel rectangle anchored at its top-left corner.
type Box struct {
	X, Y, W, H int
}

// Geometry is a product spec resolved to pixels.
type Geometry struct {
	DPI float64

	CoverWidth  int
	CoverHeight int
	SpineWidth  int
	PanelWidth  int
	// LeftPanelX and RightPanelX are the left edges of the two outer cover panels.
	LeftPanelX  int
	RightPanelX int

	PageWidth   int
	PageHeight  int
	SpreadWidth int

	MarginTop    int
	MarginBottom int
	MarginOuter  int
	MarginInner  int

	TitleFromTop  int
	TitleWidth    int
	FormatFromTop int
	FormatWidth   int

	// BarcodeFromOuter is the distance from the back panel's outer edge to
	// the barcode's near edge.
	BarcodeFromOuter int
	BarcodeFromTop   int
	BarcodeWidth     int
	BarcodeHeight    int
}

// PanelX returns the left edge of the outer cover panel on the given side.
func (g Geometry) PanelX(side book.Side) int {
	if side == book.SideRight {
		return g.RightPanelX
	}
	return g.LeftPanelX
}

// Resolve converts spec into pixel geometry. Specs with non-positive page or
// cover dimensions are rejected.
func (r Resolver) Resolve(spec book.ProductSpec) (Geometry, error) {
	if err := spec.Validate(); err != nil {
		return Geometry{}, services.Wrap(services.ErrValidation, "geometry", "resolve", fmt.Sprintf("product %q", spec.ID), err)
	}
	panelCm := spec.PanelWidthCm()
	bc := spec.CoverContent.Barcode
	g := Geometry{
		DPI:              r.dpi(),
		CoverWidth:       r.Px(spec.Cover.TotalWidthCm),
		CoverHeight:      r.Px(spec.Cover.TotalHeightCm),
		SpineWidth:       r.Px(spec.Cover.SpineWidthCm),
		PanelWidth:       r.Px(panelCm),
		LeftPanelX:       0,
		RightPanelX:      r.Px(panelCm + spec.Cover.SpineWidthCm),
		PageWidth:        r.Px(spec.Page.WidthCm),
		PageHeight:       r.Px(spec.Page.HeightCm),
		SpreadWidth:      r.Px(2 * spec.Page.WidthCm),
		MarginTop:        r.Px(spec.Margins.TopCm),
		MarginBottom:     r.Px(spec.Margins.BottomCm),
		MarginOuter:      r.Px(spec.Margins.OuterCm),
		MarginInner:      r.Px(spec.Margins.InnerCm),
		TitleFromTop:     r.Px(spec.CoverContent.Title.FromTopCm),
		TitleWidth:       r.Px(spec.CoverContent.Title.WidthCm),
		FormatFromTop:    r.Px(spec.CoverContent.Format.FromTopCm),
		FormatWidth:      r.Px(spec.CoverContent.Format.WidthCm),
		BarcodeFromOuter: r.Px(bc.FromRightCm),
		BarcodeFromTop:   r.Px(bc.FromTopCm),
		BarcodeWidth:     r.Px(bc.WidthCm),
		BarcodeHeight:    r.Px(bc.HeightCm),
	}
	return g, nil
}

// BarcodeBox places the decorative barcode on the back panel. The offset is
// measured from the back panel's outer edge: the left edge of the canvas when
// the back panel is on the left, the right edge otherwise.
func (r Resolver) BarcodeBox(spec book.ProductSpec, backSide book.Side) Box {
	bc := spec.CoverContent.Barcode
	x := r.Px(bc.FromRightCm)
	if backSide == book.SideRight {
		x = r.Px(spec.Cover.TotalWidthCm - bc.FromRightCm - bc.WidthCm)
	}
	return Box{X: x, Y: r.Px(bc.FromTopCm), W: r.Px(bc.WidthCm), H: r.Px(bc.HeightCm)}
}
