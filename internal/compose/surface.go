// Package compose owns raster composition: a white canvas, a base image and
// alpha-blended overlays at absolute pixel offsets.
package compose

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"bookforge/internal/services"
)

// Overlay is an image drawn at an absolute pixel offset on the canvas.
type Overlay struct {
	Image image.Image
	X     int
	Y     int
}

// At builds an overlay positioned at (x, y).
func At(img image.Image, x, y int) Overlay {
	return Overlay{Image: img, X: x, Y: y}
}

var errSurfaceUsed = errors.New("surface already composed")

// Surface is a single-use compositing scope. Callers create it, call Compose
// once, and Close it on every path.
type Surface struct {
	canvas *image.NRGBA
	used   bool
	closed bool
}

// NewSurface allocates an unused surface.
func NewSurface() *Surface {
	return &Surface{}
}

// Compose draws base at its native size in the top-left corner of a white
// canvas, then blends each overlay in order. A zero width or height takes the
// base image's dimension.
func (s *Surface) Compose(base image.Image, overlays []Overlay, width, height int) (out *image.NRGBA, err error) {
	if s.closed {
		return nil, services.Wrap(services.ErrCompositing, "compose", "compose", "surface closed", nil)
	}
	if s.used {
		return nil, services.Wrap(services.ErrCompositing, "compose", "compose", "single-use surface", errSurfaceUsed)
	}
	s.used = true

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = services.Wrap(services.ErrCompositing, "compose", "rasterize", fmt.Sprint(r), nil)
		}
	}()

	if base != nil {
		b := base.Bounds()
		if width == 0 {
			width = b.Dx()
		}
		if height == 0 {
			height = b.Dy()
		}
	}
	if width <= 0 || height <= 0 {
		return nil, services.Wrap(services.ErrCompositing, "compose", "compose",
			fmt.Sprintf("invalid canvas %dx%d", width, height), nil)
	}

	s.canvas = imaging.New(width, height, color.White)
	if base != nil {
		s.canvas = imaging.Overlay(s.canvas, base, image.Pt(0, 0), 1.0)
	}
	for i, ov := range overlays {
		if ov.Image == nil {
			return nil, services.Wrap(services.ErrCompositing, "compose", "overlay",
				fmt.Sprintf("overlay %d has no image", i), nil)
		}
		s.canvas = imaging.Overlay(s.canvas, ov.Image, image.Pt(ov.X, ov.Y), 1.0)
	}
	return s.canvas, nil
}

// Close releases the canvas reference. Closing twice is a no-op.
func (s *Surface) Close() error {
	s.closed = true
	s.canvas = nil
	return nil
}

// Compose runs a one-shot surface.
func Compose(base image.Image, overlays []Overlay, width, height int) (*image.NRGBA, error) {
	s := NewSurface()
	defer s.Close()
	return s.Compose(base, overlays, width, height)
}

// AspectFill scales img to cover width x height and center-crops the excess.
func AspectFill(img image.Image, width, height int) (*image.NRGBA, error) {
	if img == nil {
		return nil, services.Wrap(services.ErrCompositing, "compose", "aspect fill", "missing image", nil)
	}
	if width <= 0 || height <= 0 {
		return nil, services.Wrap(services.ErrCompositing, "compose", "aspect fill",
			fmt.Sprintf("invalid target %dx%d", width, height), nil)
	}
	return imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos), nil
}

// RotateCCW rotates img a quarter turn counter-clockwise, so text reads bottom-to-top.
func RotateCCW(img image.Image) *image.NRGBA {
	return imaging.Rotate90(img)
}

// Fit scales img to fit within width x height preserving aspect ratio.
func Fit(img image.Image, width, height int) *image.NRGBA {
	return imaging.Fit(img, width, height, imaging.Lanczos)
}
