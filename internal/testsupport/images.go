package testsupport

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// SolidPNG encodes a single-color image.
func SolidPNG(t testing.TB, width, height int, fill color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = fill.R
		img.Pix[i+1] = fill.G
		img.Pix[i+2] = fill.B
		img.Pix[i+3] = fill.A
	}
	return encodePNG(t, img)
}

// TwoTonePNG encodes an image split into left and right halves of two colors.
func TwoTonePNG(t testing.TB, width, height int, left, right color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			fill := left
			if x >= width/2 {
				fill = right
			}
			img.SetNRGBA(x, y, fill)
		}
	}
	return encodePNG(t, img)
}

// CheckerPNG encodes a checkerboard with the given cell size.
func CheckerPNG(t testing.TB, width, height, cell int, a, b color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			fill := a
			if ((x/cell)+(y/cell))%2 == 1 {
				fill = b
			}
			img.SetNRGBA(x, y, fill)
		}
	}
	return encodePNG(t, img)
}

func encodePNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}
