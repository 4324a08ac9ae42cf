package geometry

import (
	"errors"
	"math"
	"testing"

	"bookforge/internal/book"
	"bookforge/internal/services"
)

func squareSpec() book.ProductSpec {
	return book.ProductSpec{
		ID:      "square-20",
		Name:    "Square 20",
		Cover:   book.CoverSize{TotalWidthCm: 42, TotalHeightCm: 21, SpineWidthCm: 1},
		Page:    book.PageSize{WidthCm: 20, HeightCm: 20},
		Margins: book.Margins{TopCm: 1, BottomCm: 1, OuterCm: 1, InnerCm: 1.5},
		CoverContent: book.CoverContent{
			Title:   book.TextBox{FromTopCm: 3, WidthCm: 16},
			Format:  book.TextBox{FromTopCm: 18, WidthCm: 10},
			Barcode: book.BarcodeBox{FromRightCm: 2, FromTopCm: 16, WidthCm: 4, HeightCm: 2},
		},
	}
}

func TestPxRounding(t *testing.T) {
	r := NewResolver(300)
	cases := []struct {
		cm   float64
		want int
	}{
		{20, 2362},
		{2.54, 300},
		{0, 0},
		{1.5, 177},
	}
	for _, tc := range cases {
		if got := r.Px(tc.cm); got != tc.want {
			t.Fatalf("Px(%v) = %d, want %d", tc.cm, got, tc.want)
		}
	}
}

func TestNewResolverDefaultsDPI(t *testing.T) {
	if got := NewResolver(0).DPI; got != DefaultDPI {
		t.Fatalf("dpi = %v, want %v", got, DefaultDPI)
	}
	if got := (Resolver{}).Px(2.54); got != DefaultDPI {
		t.Fatalf("zero resolver px = %d", got)
	}
}

func TestCmFromPxRoundTrip(t *testing.T) {
	r := NewResolver(300)
	if got := r.CmFromPx(300); math.Abs(got-2.54) > 1e-9 {
		t.Fatalf("CmFromPx(300) = %v", got)
	}
	if got := r.Px(r.CmFromPx(2362)); got != 2362 {
		t.Fatalf("round trip = %d", got)
	}
}

func TestResolveComputesFromCentimeters(t *testing.T) {
	r := NewResolver(300)
	g, err := r.Resolve(squareSpec())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if g.PageWidth != 2362 || g.PageHeight != 2362 {
		t.Fatalf("page = %dx%d", g.PageWidth, g.PageHeight)
	}
	if g.SpreadWidth != r.Px(40) {
		t.Fatalf("spread width = %d, want %d", g.SpreadWidth, r.Px(40))
	}
	if g.RightPanelX != r.Px(21.5) {
		t.Fatalf("right panel x = %d, want %d", g.RightPanelX, r.Px(21.5))
	}
	if g.PanelX(book.SideLeft) != 0 || g.PanelX(book.SideRight) != g.RightPanelX {
		t.Fatal("PanelX does not follow the side")
	}
}

func TestResolveRejectsInvalidSpecs(t *testing.T) {
	r := NewResolver(300)
	cases := map[string]func(*book.ProductSpec){
		"zero page width":  func(s *book.ProductSpec) { s.Page.WidthCm = 0 },
		"negative height":  func(s *book.ProductSpec) { s.Cover.TotalHeightCm = -1 },
		"spine too wide":   func(s *book.ProductSpec) { s.Cover.SpineWidthCm = 50 },
		"negative barcode": func(s *book.ProductSpec) { s.CoverContent.Barcode.WidthCm = -2 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			spec := squareSpec()
			mutate(&spec)
			_, err := r.Resolve(spec)
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestBarcodeBoxMirrorsForRightBackPanel(t *testing.T) {
	r := NewResolver(300)
	spec := squareSpec()
	left := r.BarcodeBox(spec, book.SideLeft)
	right := r.BarcodeBox(spec, book.SideRight)
	if left.X != r.Px(2) {
		t.Fatalf("left x = %d", left.X)
	}
	if right.X != r.Px(42-2-4) {
		t.Fatalf("right x = %d", right.X)
	}
	if left.W != right.W || left.Y != right.Y {
		t.Fatal("mirrored box changed size or vertical offset")
	}
}
