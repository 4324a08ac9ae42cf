package book

import (
	"fmt"
	"image"
	"strings"

	"bookforge/internal/services"
)

// StitchedResult is the terminal artifact set of a successful layout pass.
type StitchedResult struct {
	cover    image.Image
	spreads  []image.Image
	document []byte
	pages    int
}

// NewStitchedResult refuses to build a result unless every required input is
// present: the cover, one raster per approved spread, the product spec, the order
// identifier, and the assembled document.
func NewStitchedResult(cover image.Image, spreads []image.Image, spreadCount int, spec *ProductSpec, orderID string, document []byte, documentPages int) (*StitchedResult, error) {
	missing := make([]string, 0, 4)
	if cover == nil {
		missing = append(missing, "cover raster")
	}
	if spreadCount <= 0 || len(spreads) != spreadCount {
		missing = append(missing, fmt.Sprintf("spread rasters (have %d, want %d)", len(spreads), spreadCount))
	}
	for i, s := range spreads {
		if s == nil {
			missing = append(missing, fmt.Sprintf("spread raster %d", i+1))
		}
	}
	if spec == nil {
		missing = append(missing, "product spec")
	}
	if strings.TrimSpace(orderID) == "" {
		missing = append(missing, "order identifier")
	}
	if len(document) == 0 {
		missing = append(missing, "assembled document")
	}
	if len(missing) > 0 {
		return nil, services.Wrap(services.ErrPrerequisite, "layout", "stitch result", strings.Join(missing, ", "), nil)
	}
	copied := make([]image.Image, len(spreads))
	copy(copied, spreads)
	return &StitchedResult{cover: cover, spreads: copied, document: document, pages: documentPages}, nil
}

// Cover returns the composed cover raster.
func (r *StitchedResult) Cover() image.Image { return r.cover }

// Spreads returns a copy of the composed spread rasters in order.
func (r *StitchedResult) Spreads() []image.Image {
	out := make([]image.Image, len(r.spreads))
	copy(out, r.spreads)
	return out
}

// Document returns the assembled multi-page document bytes.
func (r *StitchedResult) Document() []byte { return r.document }

// DocumentPages is the page count of the assembled document.
func (r *StitchedResult) DocumentPages() int { return r.pages }
