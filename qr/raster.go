package qr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
)

// DefaultBorder is the quiet zone width, in modules.
const DefaultBorder = 4

// ScaleFor returns the pixels-per-module for a symbol of the given size.
// Larger symbols get smaller modules so the image stays a reasonable size.
func ScaleFor(size int) int {
	switch {
	case size > 30:
		return 6
	case size > 20:
		return 8
	default:
		return 10
	}
}

// Rasterize paints modules onto a white square RGBA image. Each module
// becomes a scale x scale block of black pixels, offset by border modules
// on every side.
func Rasterize(modules [][]bool, scale, border int) *image.RGBA {
	if scale < 1 {
		scale = 1
	}
	if border < 0 {
		border = 0
	}

	size := len(modules)
	side := (size + 2*border) * scale
	img := image.NewRGBA(image.Rect(0, 0, side, side))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}

	for y := 0; y < side; y++ {
		qy := y/scale - border
		if qy < 0 || qy >= size {
			continue
		}
		row := modules[qy]
		for x := 0; x < side; x++ {
			qx := x/scale - border
			if qx < 0 || qx >= len(row) || !row[qx] {
				continue
			}
			i := img.PixOffset(x, y)
			img.Pix[i+0] = 0
			img.Pix[i+1] = 0
			img.Pix[i+2] = 0
			img.Pix[i+3] = 0xff
		}
	}
	return img
}

// EncodePNG compresses img into PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
