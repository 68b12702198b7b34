package vectorize

import (
	"bytes"
	"context"
	"image"
	"log/slog"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"vectra/internal/job"
	"vectra/internal/logging"
	"vectra/internal/pipeline"
	"vectra/internal/services"
)

const (
	// maxDimension caps very large sources; tracing cost grows with area and
	// the extra pixels add no path fidelity at typical output sizes.
	maxDimension = 2048
	// minDimension is the floor below which tiny sources are integer-upscaled
	// so contours have enough lattice resolution to trace.
	minDimension = 64
)

// Preprocessor decodes the upload, resolves the auto conversion mode, and
// normalizes the raster to NRGBA within the supported size envelope.
type Preprocessor struct {
	logger *slog.Logger
}

func NewPreprocessor(logger *slog.Logger) *Preprocessor {
	return &Preprocessor{logger: logging.NewComponentLogger(logger, "preprocess")}
}

func (p *Preprocessor) Preprocess(ctx context.Context, source []byte, opts job.Options) (*pipeline.Raster, error) {
	img, formatName, err := image.Decode(bytes.NewReader(source))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "preprocess", "decode", "unsupported or corrupt image", err)
	}
	nrgba := toNRGBA(img)
	if nrgba.Rect.Dx() == 0 || nrgba.Rect.Dy() == 0 {
		return nil, services.Wrap(services.ErrValidation, "preprocess", "decode", "image has no pixels", nil)
	}

	mode := opts.Mode
	if mode == job.ModeAuto || mode == "" {
		mode = detectMode(nrgba)
	}
	nrgba = normalizeSize(nrgba, mode)

	p.logger.Debug("source prepared",
		logging.String("format", formatName),
		logging.String("mode", mode),
		logging.Int("width", nrgba.Rect.Dx()),
		logging.Int("height", nrgba.Rect.Dy()),
	)
	return &pipeline.Raster{Image: nrgba, Mode: mode}, nil
}

func toNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Rect.Min == (image.Point{}) {
		return nrgba
	}
	bounds := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	xdraw.Draw(out, out.Rect, img, bounds.Min, xdraw.Src)
	return out
}

// normalizeSize downscales oversized rasters and integer-upscales tiny ones.
// Pixel art always scales with nearest neighbor to keep cell edges hard.
func normalizeSize(img *image.NRGBA, mode string) *image.NRGBA {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	longest := w
	if h > longest {
		longest = h
	}

	switch {
	case longest > maxDimension:
		scale := float64(maxDimension) / float64(longest)
		dst := image.NewNRGBA(image.Rect(0, 0, round(float64(w)*scale), round(float64(h)*scale)))
		if mode == job.ModePixelArt {
			xdraw.NearestNeighbor.Scale(dst, dst.Rect, img, img.Rect, xdraw.Src, nil)
		} else {
			xdraw.CatmullRom.Scale(dst, dst.Rect, img, img.Rect, xdraw.Src, nil)
		}
		return dst
	case longest < minDimension:
		factor := (minDimension + longest - 1) / longest
		dst := image.NewNRGBA(image.Rect(0, 0, w*factor, h*factor))
		xdraw.NearestNeighbor.Scale(dst, dst.Rect, img, img.Rect, xdraw.Src, nil)
		return dst
	default:
		return img
	}
}

// detectMode classifies the source from sampled pixel statistics. The walk is
// a fixed stride, so classification is repeatable for identical input.
func detectMode(img *image.NRGBA) string {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	stride := 1
	if w*h > 65536 {
		stride = (w*h + 65535) / 65536
	}

	distinct := make(map[uint32]struct{})
	sampled := 0
	grayish := 0
	dark := 0
	light := 0

	for i := 0; i < w*h; i += stride {
		x, y := i%w, i/w
		off := img.PixOffset(x, y)
		r, g, b := img.Pix[off], img.Pix[off+1], img.Pix[off+2]
		distinct[uint32(r)<<16|uint32(g)<<8|uint32(b)] = struct{}{}
		sampled++

		maxC, minC := r, r
		if g > maxC {
			maxC = g
		}
		if b > maxC {
			maxC = b
		}
		if g < minC {
			minC = g
		}
		if b < minC {
			minC = b
		}
		if maxC-minC < 24 {
			grayish++
		}
		luma := (299*int(r) + 587*int(g) + 114*int(b)) / 1000
		if luma < 72 {
			dark++
		} else if luma > 200 {
			light++
		}
	}
	if sampled == 0 {
		return job.ModeLogo
	}

	switch {
	case w <= 256 && h <= 256 && len(distinct) <= 64:
		return job.ModePixelArt
	case grayish*10 >= sampled*9 && (dark+light)*10 >= sampled*9:
		return job.ModeLineArt
	case len(distinct)*20 <= sampled:
		return job.ModeLogo
	default:
		return job.ModePhoto
	}
}

func round(v float64) int {
	if v < 1 {
		return 1
	}
	return int(v + 0.5)
}
