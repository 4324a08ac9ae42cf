// Package document assembles composed rasters into a print PDF sized in
// centimeters.
package document

import (
	"bytes"
	"fmt"
	"image"

	"github.com/jung-kurt/gofpdf"

	"bookforge/internal/book"
	"bookforge/internal/compose"
	"bookforge/internal/services"
)

// Sizes are the physical page sizes of the document.
type Sizes struct {
	CoverWidthCm   float64
	CoverHeightCm  float64
	SpreadWidthCm  float64
	SpreadHeightCm float64
}

// SizesFor derives document sizes from a product spec. Each spread page is two
// joined pages plus the metadata strip.
func SizesFor(spec book.ProductSpec, stripCm float64) Sizes {
	return Sizes{
		CoverWidthCm:   spec.Cover.TotalWidthCm,
		CoverHeightCm:  spec.Cover.TotalHeightCm,
		SpreadWidthCm:  2*spec.Page.WidthCm + stripCm,
		SpreadHeightCm: spec.Page.HeightCm,
	}
}

// Document is an assembled PDF.
type Document struct {
	Data  []byte
	Pages int
}

// Assemble writes the cover as page 1 followed by one page per spread. Every
// image fills its page exactly with no margin.
func Assemble(cover image.Image, spreads []image.Image, sizes Sizes) (Document, error) {
	if cover == nil {
		return Document{}, services.Wrap(services.ErrPrerequisite, "document", "assemble", "cover raster is required", nil)
	}
	if len(spreads) == 0 {
		return Document{}, services.Wrap(services.ErrPrerequisite, "document", "assemble", "at least one spread raster is required", nil)
	}
	if sizes.CoverWidthCm <= 0 || sizes.CoverHeightCm <= 0 || sizes.SpreadWidthCm <= 0 || sizes.SpreadHeightCm <= 0 {
		return Document{}, services.Wrap(services.ErrValidation, "document", "assemble", fmt.Sprintf("invalid page sizes %+v", sizes), nil)
	}

	coverSize := gofpdf.SizeType{Wd: sizes.CoverWidthCm, Ht: sizes.CoverHeightCm}
	spreadSize := gofpdf.SizeType{Wd: sizes.SpreadWidthCm, Ht: sizes.SpreadHeightCm}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "cm", Size: coverSize})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("bookforge", true)

	if err := placePage(pdf, "cover", cover, coverSize); err != nil {
		return Document{}, err
	}
	for i, spread := range spreads {
		if spread == nil {
			return Document{}, services.Wrap(services.ErrPrerequisite, "document", "assemble", fmt.Sprintf("spread %d raster is missing", i+1), nil)
		}
		if err := placePage(pdf, fmt.Sprintf("spread-%02d", i+1), spread, spreadSize); err != nil {
			return Document{}, err
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Document{}, services.Wrap(services.ErrPackaging, "document", "write pdf", "", err)
	}
	return Document{Data: buf.Bytes(), Pages: pdf.PageCount()}, nil
}

func placePage(pdf *gofpdf.Fpdf, name string, img image.Image, size gofpdf.SizeType) error {
	data, err := compose.EncodePNG(img)
	if err != nil {
		return err
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.AddPageFormat("P", size)
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	pdf.ImageOptions(name, 0, 0, size.Wd, size.Ht, false, opts, 0, "")
	if err := pdf.Error(); err != nil {
		return services.Wrap(services.ErrPackaging, "document", "place image", name, err)
	}
	return nil
}
