package book

import (
	"errors"
	"fmt"
	"strings"
)

// CoverSize is the unfolded cover: back panel, spine, and front panel side by side.
type CoverSize struct {
	TotalWidthCm  float64 `yaml:"totalWidthCm" json:"totalWidthCm"`
	TotalHeightCm float64 `yaml:"totalHeightCm" json:"totalHeightCm"`
	SpineWidthCm  float64 `yaml:"spineWidthCm" json:"spineWidthCm"`
}

// PageSize is a single interior page.
type PageSize struct {
	WidthCm  float64 `yaml:"widthCm" json:"widthCm"`
	HeightCm float64 `yaml:"heightCm" json:"heightCm"`
}

// Margins are the interior page safe-area insets.
type Margins struct {
	TopCm    float64 `yaml:"topCm" json:"topCm"`
	BottomCm float64 `yaml:"bottomCm" json:"bottomCm"`
	OuterCm  float64 `yaml:"outerCm" json:"outerCm"`
	InnerCm  float64 `yaml:"innerCm" json:"innerCm"`
}

// TextBox places a line of cover text: offset from the top and the wrap width.
type TextBox struct {
	FromTopCm float64 `yaml:"fromTopCm" json:"fromTopCm"`
	WidthCm   float64 `yaml:"widthCm" json:"widthCm"`
}

// BarcodeBox places the decorative barcode, measured from the back panel's outer edge.
type BarcodeBox struct {
	FromRightCm float64 `yaml:"fromRightCm" json:"fromRightCm"`
	FromTopCm   float64 `yaml:"fromTopCm" json:"fromTopCm"`
	WidthCm     float64 `yaml:"widthCm" json:"widthCm"`
	HeightCm    float64 `yaml:"heightCm" json:"heightCm"`
}

// CoverContent holds the named content-placement boxes on the cover.
type CoverContent struct {
	Title   TextBox    `yaml:"title" json:"title"`
	Format  TextBox    `yaml:"format" json:"format"`
	Barcode BarcodeBox `yaml:"barcode" json:"barcode"`
}

// ProductSpec is a named physical book size. It is reference data owned by the
// catalog and never modified by the pipeline.
type ProductSpec struct {
	ID           string       `yaml:"id" json:"id"`
	Name         string       `yaml:"name" json:"name"`
	Price        float64      `yaml:"price" json:"price"`
	Cover        CoverSize    `yaml:"cover" json:"cover"`
	Page         PageSize     `yaml:"page" json:"page"`
	Margins      Margins      `yaml:"margins" json:"margins"`
	CoverContent CoverContent `yaml:"coverContent" json:"coverContent"`
}

// PanelWidthCm is the width of one of the front/back cover panels.
func (p ProductSpec) PanelWidthCm() float64 {
	return (p.Cover.TotalWidthCm - p.Cover.SpineWidthCm) / 2
}

// SizeLabel renders the physical page size, e.g. "20x20cm".
func (p ProductSpec) SizeLabel() string {
	return fmt.Sprintf("%gx%gcm", p.Page.WidthCm, p.Page.HeightCm)
}

// Validate rejects specs whose geometry cannot be laid out.
func (p ProductSpec) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("product spec: id is required")
	}
	positive := []struct {
		name  string
		value float64
	}{
		{"cover.totalWidthCm", p.Cover.TotalWidthCm},
		{"cover.totalHeightCm", p.Cover.TotalHeightCm},
		{"page.widthCm", p.Page.WidthCm},
		{"page.heightCm", p.Page.HeightCm},
	}
	for _, field := range positive {
		if field.value <= 0 {
			return fmt.Errorf("product spec %s: %s must be positive", p.ID, field.name)
		}
	}
	nonNegative := []struct {
		name  string
		value float64
	}{
		{"cover.spineWidthCm", p.Cover.SpineWidthCm},
		{"margins.topCm", p.Margins.TopCm},
		{"margins.bottomCm", p.Margins.BottomCm},
		{"margins.outerCm", p.Margins.OuterCm},
		{"margins.innerCm", p.Margins.InnerCm},
		{"coverContent.title.fromTopCm", p.CoverContent.Title.FromTopCm},
		{"coverContent.title.widthCm", p.CoverContent.Title.WidthCm},
		{"coverContent.format.fromTopCm", p.CoverContent.Format.FromTopCm},
		{"coverContent.format.widthCm", p.CoverContent.Format.WidthCm},
		{"coverContent.barcode.fromRightCm", p.CoverContent.Barcode.FromRightCm},
		{"coverContent.barcode.fromTopCm", p.CoverContent.Barcode.FromTopCm},
		{"coverContent.barcode.widthCm", p.CoverContent.Barcode.WidthCm},
		{"coverContent.barcode.heightCm", p.CoverContent.Barcode.HeightCm},
	}
	for _, field := range nonNegative {
		if field.value < 0 {
			return fmt.Errorf("product spec %s: %s must not be negative", p.ID, field.name)
		}
	}
	if p.Cover.SpineWidthCm >= p.Cover.TotalWidthCm {
		return fmt.Errorf("product spec %s: spine must be narrower than the cover", p.ID)
	}
	if p.Margins.InnerCm+p.Margins.OuterCm >= p.Page.WidthCm {
		return fmt.Errorf("product spec %s: horizontal margins exceed page width", p.ID)
	}
	if p.Margins.TopCm+p.Margins.BottomCm >= p.Page.HeightCm {
		return fmt.Errorf("product spec %s: vertical margins exceed page height", p.ID)
	}
	return nil
}
