package export

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"vectra/internal/segment"
	"vectra/internal/services"
)

// renderRaster paints the layer masks into a bitmap and encodes it. Formats
// without an alpha channel are composited over white first.
func renderRaster(width, height int, layers []segment.Layer, f Format, o Options) ([]byte, error) {
	scale := 1
	if f == FormatPNG {
		scale = o.Resolution
	}
	img := rasterize(width, height, layers, scale)

	var buf bytes.Buffer
	var err error
	switch f {
	case FormatPNG:
		err = png.Encode(&buf, img)
	case FormatJPEG:
		err = jpeg.Encode(&buf, flattenToWhite(img), &jpeg.Options{Quality: o.Quality})
	case FormatGIF:
		err = gif.Encode(&buf, flattenToWhite(img), &gif.Options{NumColors: 256})
	case FormatBMP:
		err = bmp.Encode(&buf, flattenToWhite(img))
	case FormatTIFF:
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate})
	}
	if err != nil {
		return nil, services.Wrap(services.ErrRenderFailure, "export", "encode", string(f), err)
	}
	return buf.Bytes(), nil
}

// rasterize fills each mask pixel as a scale-by-scale block in paint order.
// Unpainted pixels stay transparent.
func rasterize(width, height int, layers []segment.Layer, scale int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width*scale, height*scale))
	for _, layer := range layers {
		if layer.Mask == nil {
			continue
		}
		fill, err := segment.ParseColor(layer.Color)
		if err != nil {
			continue
		}
		for y := 0; y < layer.Mask.H && y < height; y++ {
			for x := 0; x < layer.Mask.W && x < width; x++ {
				if !layer.Mask.At(x, y) {
					continue
				}
				for dy := 0; dy < scale; dy++ {
					off := img.PixOffset(x*scale, y*scale+dy)
					for dx := 0; dx < scale; dx++ {
						img.Pix[off] = fill.R
						img.Pix[off+1] = fill.G
						img.Pix[off+2] = fill.B
						img.Pix[off+3] = 255
						off += 4
					}
				}
			}
		}
	}
	return img
}

func flattenToWhite(img *image.NRGBA) *image.NRGBA {
	out := image.NewNRGBA(img.Rect)
	draw.Draw(out, out.Rect, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(out, out.Rect, img, image.Point{}, draw.Over)
	return out
}
