package document

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"regexp"
	"testing"

	"bookforge/internal/book"
	"bookforge/internal/services"
	"bookforge/internal/testsupport"
)

var pageObject = regexp.MustCompile(`/Type /Page[^s]`)

func TestAssembleCoverPlusSpreads(t *testing.T) {
	spec := book.ProductSpec{
		Cover: book.CoverSize{TotalWidthCm: 42, TotalHeightCm: 21, SpineWidthCm: 1},
		Page:  book.PageSize{WidthCm: 20, HeightCm: 20},
	}
	sizes := SizesFor(spec, 1.5)
	if sizes.SpreadWidthCm != 41.5 || sizes.SpreadHeightCm != 20 {
		t.Fatalf("unexpected spread size %+v", sizes)
	}

	cover := testsupport.SolidImage(84, 42, color.White)
	spreads := make([]image.Image, 4)
	for i := range spreads {
		spreads[i] = testsupport.SolidImage(83, 40, color.NRGBA{R: uint8(50 * i), A: 255})
	}
	doc, err := Assemble(cover, spreads, sizes)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if doc.Pages != 5 {
		t.Fatalf("expected 5 pages, got %d", doc.Pages)
	}
	if !bytes.HasPrefix(doc.Data, []byte("%PDF-")) {
		t.Fatal("output is not a PDF")
	}
	if got := len(pageObject.FindAll(doc.Data, -1)); got != 5 {
		t.Fatalf("expected 5 page objects in output, found %d", got)
	}
}

func TestAssembleRequiresRasters(t *testing.T) {
	sizes := Sizes{CoverWidthCm: 1, CoverHeightCm: 1, SpreadWidthCm: 1, SpreadHeightCm: 1}
	img := testsupport.SolidImage(2, 2, color.White)
	if _, err := Assemble(nil, []image.Image{img}, sizes); !errors.Is(err, services.ErrPrerequisite) {
		t.Fatalf("expected prerequisite error, got %v", err)
	}
	if _, err := Assemble(img, nil, sizes); !errors.Is(err, services.ErrPrerequisite) {
		t.Fatalf("expected prerequisite error, got %v", err)
	}
	if _, err := Assemble(img, []image.Image{img}, Sizes{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
