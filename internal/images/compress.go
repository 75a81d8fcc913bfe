package images

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Compress decodes raw image bytes, rejects anything below the configured
// minimum resolution, flattens transparency onto white, scales the result
// down to fit within maxDimension, and re-encodes as JPEG.
func Compress(raw []byte, maxDimension, quality, minWidth, minHeight int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() < minWidth || bounds.Dy() < minHeight {
		return nil, fmt.Errorf("image too small: %dx%d (need at least %dx%d)",
			bounds.Dx(), bounds.Dy(), minWidth, minHeight)
	}

	flat := flatten(img)

	if bounds.Dx() > maxDimension || bounds.Dy() > maxDimension {
		flat = imaging.Fit(flat, maxDimension, maxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// flatten composites the image onto a white background so PNG and GIF
// transparency does not turn black in the JPEG encode.
func flatten(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	bg := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	return imaging.OverlayCenter(bg, img, 1.0)
}
