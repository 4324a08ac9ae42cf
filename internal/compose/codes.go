package compose

import (
	"fmt"
	"image"
	"image/color"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/qr"
	"github.com/disintegration/imaging"

	"bookforge/internal/services"
)

// QRCode renders content as a square QR graphic of exactly size pixels,
// including a white quiet zone. Decoding the result yields exactly content. A
// size too small to give every module at least one pixel is rejected.
func QRCode(content string, size int) (*image.NRGBA, error) {
	code, err := encodeQR(content)
	if err != nil {
		return nil, err
	}
	modules := code.Bounds().Dx()
	total := modules + 2*qrQuietModules
	if size < total {
		return nil, services.Wrap(services.ErrCompositing, "compose", "qr",
			fmt.Sprintf("%d px cannot hold %d modules", size, total), nil)
	}
	unit := size / total
	inner := modules * unit
	scaled, err := barcode.Scale(code, inner, inner)
	if err != nil {
		return nil, services.Wrap(services.ErrCompositing, "compose", "qr scale", "", err)
	}
	canvas := imaging.New(size, size, color.White)
	offset := (size - inner) / 2
	return imaging.Paste(canvas, scaled, image.Pt(offset, offset)), nil
}

// QRMinSize is the smallest size QRCode accepts for content.
func QRMinSize(content string) (int, error) {
	code, err := encodeQR(content)
	if err != nil {
		return 0, err
	}
	return code.Bounds().Dx() + 2*qrQuietModules, nil
}

const qrQuietModules = 4

func encodeQR(content string) (barcode.Barcode, error) {
	if content == "" {
		return nil, services.Wrap(services.ErrCompositing, "compose", "qr", "empty content", nil)
	}
	code, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return nil, services.Wrap(services.ErrCompositing, "compose", "qr", "", err)
	}
	return code, nil
}

// Barcode renders a cosmetic Code 128 strip stretched to width x height.
func Barcode(content string, width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, services.Wrap(services.ErrCompositing, "compose", "barcode",
			fmt.Sprintf("invalid size %dx%d", width, height), nil)
	}
	code, err := code128.Encode(content)
	if err != nil {
		return nil, services.Wrap(services.ErrCompositing, "compose", "barcode", "", err)
	}
	return imaging.Resize(code, width, height, imaging.NearestNeighbor), nil
}
