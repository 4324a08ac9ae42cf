package compose

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"

	"bookforge/internal/services"
)

// EncodePNG encodes img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, services.Wrap(services.ErrCompositing, "compose", "encode png", "", err)
	}
	return buf.Bytes(), nil
}

// DecodeImage decodes raster bytes in any registered format.
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, services.Wrap(services.ErrCompositing, "compose", "decode", "empty raster", nil)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, services.Wrap(services.ErrCompositing, "compose", "decode", "", err)
	}
	return img, nil
}
